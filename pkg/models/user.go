package models

import (
	"time"
)

type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Username     string      `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string      `gorm:"type:varchar(254);index" json:"email"`
	PasswordHash string      `gorm:"type:varchar(100);not null" json:"-"`
	Profile      UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile holds contact and address data reused to prefill checkout.
type UserProfile struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	FullName            string    `gorm:"type:varchar(200)" json:"full_name"`
	Phone               string    `gorm:"type:varchar(20)" json:"phone"`
	ShippingAddress     Address   `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress      Address   `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`
	SameBillingShipping bool      `gorm:"default:true" json:"same_billing_shipping"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// Buyer is the contact and address data collected at checkout and on the
// profile page.
type Buyer struct {
	FullName            string
	Email               string
	Phone               string
	Shipping            Address
	Billing             Address
	SameBillingShipping bool
}

// Normalize copies shipping into billing when the buyer asked for it and
// defaults empty countries.
func (b *Buyer) Normalize() {
	if b.Shipping.Country == "" {
		b.Shipping.Country = "USA"
	}
	if b.SameBillingShipping || b.Billing.IsZero() {
		b.SameBillingShipping = true
		b.Billing = b.Shipping
	}
	if b.Billing.Country == "" {
		b.Billing.Country = "USA"
	}
}

// Apply overwrites the profile with the buyer data.
func (p *UserProfile) Apply(b Buyer) {
	p.FullName = b.FullName
	p.Phone = b.Phone
	p.ShippingAddress = b.Shipping
	p.BillingAddress = b.Billing
	p.SameBillingShipping = b.SameBillingShipping
}

// BuyerFor prefills checkout from the profile, falling back to the account
// email.
func BuyerFor(u User) Buyer {
	p := u.Profile
	return Buyer{
		FullName:            p.FullName,
		Email:               u.Email,
		Phone:               p.Phone,
		Shipping:            p.ShippingAddress,
		Billing:             p.BillingAddress,
		SameBillingShipping: p.SameBillingShipping,
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is owned either by a user or by an anonymous session, never both.
type Cart struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     *uint      `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionKey *string    `gorm:"type:varchar(64);uniqueIndex" json:"session_key,omitempty"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.TotalPrice())
	}
	return total
}

func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

type CartItem struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	CartID             uint              `gorm:"not null;uniqueIndex:idx_cart_line" json:"cart_id"`
	JewelryID          uint              `gorm:"not null;uniqueIndex:idx_cart_line" json:"jewelry_id"`
	Jewelry            Jewelry           `gorm:"constraint:OnDelete:CASCADE" json:"jewelry"`
	ProductVariationID *uint             `gorm:"uniqueIndex:idx_cart_line" json:"product_variation_id,omitempty"`
	ProductVariation   *ProductVariation `gorm:"constraint:OnDelete:CASCADE" json:"product_variation,omitempty"`
	Quantity           int               `gorm:"not null;default:1" json:"quantity"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// UnitPrice resolves the variation price first and falls back to the base
// jewelry price.
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.ProductVariation != nil {
		v := *i.ProductVariation
		if v.Jewelry.ID == 0 {
			v.Jewelry = i.Jewelry
		}
		return v.TotalPrice()
	}
	return i.Jewelry.Price
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

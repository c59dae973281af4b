package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus maps user input onto a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted,
		OrderStatusShipped, OrderStatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

// Address is embedded with a column prefix on Order and UserProfile.
type Address struct {
	Street  string `gorm:"type:varchar(255)" json:"street"`
	City    string `gorm:"type:varchar(100)" json:"city"`
	State   string `gorm:"type:varchar(100)" json:"state"`
	Zip     string `gorm:"type:varchar(20)" json:"zip"`
	Country string `gorm:"type:varchar(100);default:'USA'" json:"country"`
}

func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.Zip == ""
}

// Order is the immutable record of a purchase. Buyer and address fields are a
// snapshot taken at checkout time.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	User            User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	FullName        string          `gorm:"type:varchar(200);not null" json:"full_name"`
	Email           string          `gorm:"type:varchar(254);not null" json:"email"`
	Phone           string          `gorm:"type:varchar(20)" json:"phone"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address         `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`
	Status          OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PaymentID       string          `gorm:"type:varchar(255);index" json:"payment_id,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// VariationSnapshot freezes what the buyer picked so later catalog edits do
// not rewrite order history.
type VariationSnapshot struct {
	VariationID     uint              `json:"variation_id"`
	SKU             string            `json:"sku"`
	Options         map[string]string `json:"options"`
	PriceAdjustment decimal.Decimal   `json:"price_adjustment"`
}

// SnapshotVariation captures v with its options. Options must be loaded with
// their VariationType.
func SnapshotVariation(v ProductVariation) *VariationSnapshot {
	opts := make(map[string]string, len(v.VariationOptions))
	for _, o := range v.VariationOptions {
		key := o.VariationType.Name
		if key == "" {
			key = fmt.Sprintf("option_%d", o.ID)
		}
		opts[key] = o.Value
	}
	return &VariationSnapshot{
		VariationID:     v.ID,
		SKU:             v.SKU,
		Options:         opts,
		PriceAdjustment: v.PriceAdjustment,
	}
}

type OrderItem struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	OrderID            uint               `gorm:"not null;index" json:"order_id"`
	JewelryID          uint               `gorm:"not null;index" json:"jewelry_id"`
	Jewelry            Jewelry            `gorm:"constraint:OnDelete:RESTRICT" json:"jewelry"`
	ProductVariationID *uint              `gorm:"index" json:"product_variation_id,omitempty"`
	ProductVariation   *ProductVariation  `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Quantity           int                `gorm:"not null;default:1" json:"quantity"`
	Price              decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"price"`
	VariationData      *VariationSnapshot `gorm:"type:text;serializer:json" json:"variation_data,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

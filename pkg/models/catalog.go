package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// VariationType is an attribute axis such as "Color" or "Size".
type VariationType struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	DisplayName string            `gorm:"type:varchar(100)" json:"display_name"`
	Options     []VariationOption `gorm:"foreignKey:VariationTypeID" json:"options,omitempty"`
}

func (VariationType) TableName() string {
	return "variation_types"
}

type VariationOption struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	VariationTypeID uint          `gorm:"not null;index" json:"variation_type_id"`
	VariationType   VariationType `json:"variation_type,omitempty"`
	Value           string        `gorm:"type:varchar(100);not null" json:"value"`
	DisplayValue    string        `gorm:"type:varchar(100)" json:"display_value"`
	ColorHex        string        `gorm:"type:varchar(7)" json:"color_hex,omitempty"`
}

func (VariationOption) TableName() string {
	return "variation_options"
}

// Label prefers the display value.
func (o VariationOption) Label() string {
	if o.DisplayValue != "" {
		return o.DisplayValue
	}
	return o.Value
}

type Jewelry struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	Name           string             `gorm:"type:varchar(100);not null" json:"name"`
	Description    string             `gorm:"type:text" json:"description"`
	Price          decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity  int                `gorm:"default:0" json:"stock_quantity"`
	SKU            string             `gorm:"type:varchar(100)" json:"sku"`
	ImagePath      string             `gorm:"type:varchar(255)" json:"image_path,omitempty"`
	IsActive       bool               `gorm:"default:true" json:"is_active"`
	CategoryID     *uint              `gorm:"index" json:"category_id,omitempty"`
	Category       *Category          `json:"category,omitempty"`
	VariationTypes []VariationType    `gorm:"many2many:jewelry_variation_types" json:"variation_types,omitempty"`
	Variations     []ProductVariation `gorm:"foreignKey:JewelryID;constraint:OnDelete:CASCADE" json:"variations,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (Jewelry) TableName() string {
	return "jewelry"
}

func (j Jewelry) HasVariations() bool {
	return len(j.VariationTypes) > 0
}

// SKUPrefix is the lower-cased, underscore-separated jewelry name that every
// derived variation SKU starts with.
func (j Jewelry) SKUPrefix() string {
	return skuToken(j.Name)
}

// ProductVariation is one concrete combination of options for a jewelry item.
type ProductVariation struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	JewelryID        uint              `gorm:"not null;index" json:"jewelry_id"`
	Jewelry          Jewelry           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	VariationOptions []VariationOption `gorm:"many2many:product_variation_options" json:"variation_options"`
	PriceAdjustment  decimal.Decimal   `gorm:"type:decimal(10,2);not null;default:0" json:"price_adjustment"`
	StockQuantity    int               `gorm:"default:0" json:"stock_quantity"`
	SKU              string            `gorm:"type:varchar(100);index" json:"sku"`
	IsAvailable      bool              `gorm:"default:true" json:"is_available"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (ProductVariation) TableName() string {
	return "product_variations"
}

// TotalPrice is the base jewelry price plus the variation's adjustment.
// Jewelry must be loaded.
func (v ProductVariation) TotalPrice() decimal.Decimal {
	return v.Jewelry.Price.Add(v.PriceAdjustment)
}

// DeriveSKU builds the SKU for the given option set: the jewelry prefix
// followed by the sorted, lower-cased option values.
func DeriveSKU(jewelryName string, options []VariationOption) string {
	values := make([]string, 0, len(options))
	for _, o := range options {
		values = append(values, o.Value)
	}
	sort.Strings(values)

	parts := []string{skuToken(jewelryName)}
	for _, v := range values {
		parts = append(parts, skuToken(v))
	}
	return strings.Join(parts, "_")
}

// RefreshSKU recomputes the SKU from the current options. A manually assigned
// SKU (one that does not contain the jewelry prefix) is left untouched.
// Reports whether the SKU changed. Jewelry and VariationOptions must be loaded.
func (v *ProductVariation) RefreshSKU() bool {
	prefix := v.Jewelry.SKUPrefix()
	if v.SKU != "" && !strings.Contains(v.SKU, prefix) {
		return false
	}
	sku := DeriveSKU(v.Jewelry.Name, v.VariationOptions)
	if sku == v.SKU {
		return false
	}
	v.SKU = sku
	return true
}

// OptionSummary renders "Color: Red, Size: Small".
func (v ProductVariation) OptionSummary() string {
	parts := make([]string, 0, len(v.VariationOptions))
	for _, o := range v.VariationOptions {
		if o.VariationType.Name != "" {
			parts = append(parts, o.VariationType.Name+": "+o.Label())
			continue
		}
		parts = append(parts, o.Label())
	}
	return strings.Join(parts, ", ")
}

func skuToken(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

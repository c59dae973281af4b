package repository

import (
	"context"
	"fmt"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type JewelryFilter struct {
	CategorySlug string
	Query        string
	ActiveOnly   bool
	Limit        int
}

// JewelryUpdate carries the back-office editable fields; nil means unchanged.
type JewelryUpdate struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
	IsActive      *bool            `json:"is_active"`
	CategoryID    *uint            `json:"category_id"`
	ImagePath     *string          `json:"image_path"`
	SKU           *string          `json:"sku"`
}

type VariationUpdate struct {
	PriceAdjustment *decimal.Decimal `json:"price_adjustment"`
	StockQuantity   *int             `json:"stock_quantity"`
	IsAvailable     *bool            `json:"is_available"`
	SKU             *string          `json:"sku"`
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (s *Store) ListJewelry(ctx context.Context, f JewelryFilter) ([]models.Jewelry, error) {
	query := s.db.WithContext(ctx).Model(&models.Jewelry{}).Preload("Category")
	if f.ActiveOnly {
		query = query.Where("jewelry.is_active = ?", true)
	}
	if f.CategorySlug != "" {
		query = query.Joins("JOIN categories ON categories.id = jewelry.category_id").
			Where("categories.slug = ?", f.CategorySlug)
	}
	if f.Query != "" {
		query = query.Where("jewelry.name LIKE ?", "%"+f.Query+"%")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var items []models.Jewelry
	if err := query.Order("jewelry.created_at DESC, jewelry.id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list jewelry: %w", err)
	}
	return items, nil
}

// GetJewelry loads a jewelry item with its category, variation types and
// available variations.
func (s *Store) GetJewelry(ctx context.Context, id uint) (*models.Jewelry, error) {
	var j models.Jewelry
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("VariationTypes.Options").
		Preload("Variations", "is_available = ?", true).
		Preload("Variations.VariationOptions.VariationType").
		First(&j, id).Error
	if err != nil {
		return nil, lookupErr(err, "jewelry")
	}
	AttachParent(&j)
	return &j, nil
}

// AttachParent points every loaded variation back at its jewelry so prices
// can be computed without another query.
func AttachParent(j *models.Jewelry) {
	parent := *j
	parent.Variations = nil
	for i := range j.Variations {
		j.Variations[i].Jewelry = parent
	}
}

func (s *Store) CreateJewelry(ctx context.Context, j *models.Jewelry, variationTypeIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("VariationTypes", "Variations", "Category").Create(j).Error; err != nil {
			return fmt.Errorf("failed to create jewelry: %w", err)
		}
		if len(variationTypeIDs) == 0 {
			return nil
		}
		var types []models.VariationType
		if err := tx.Find(&types, variationTypeIDs).Error; err != nil {
			return fmt.Errorf("failed to load variation types: %w", err)
		}
		if err := tx.Model(j).Association("VariationTypes").Replace(types); err != nil {
			return fmt.Errorf("failed to attach variation types: %w", err)
		}
		j.VariationTypes = types
		return nil
	})
}

func (s *Store) UpdateJewelry(ctx context.Context, id uint, u JewelryUpdate) (*models.Jewelry, error) {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Price != nil {
		updates["price"] = *u.Price
	}
	if u.StockQuantity != nil {
		updates["stock_quantity"] = *u.StockQuantity
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.CategoryID != nil {
		updates["category_id"] = *u.CategoryID
	}
	if u.ImagePath != nil {
		updates["image_path"] = *u.ImagePath
	}
	if u.SKU != nil {
		updates["sku"] = *u.SKU
	}

	var j models.Jewelry
	if err := s.db.WithContext(ctx).First(&j, id).Error; err != nil {
		return nil, lookupErr(err, "jewelry")
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&j).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update jewelry: %w", err)
		}
	}
	return s.GetJewelry(ctx, id)
}

// AllJewelry returns every item, active or not, for exports.
func (s *Store) AllJewelry(ctx context.Context) ([]models.Jewelry, error) {
	var items []models.Jewelry
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("VariationTypes").
		Preload("Variations.VariationOptions.VariationType").
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jewelry: %w", err)
	}
	return items, nil
}

func (s *Store) ListVariationTypes(ctx context.Context) ([]models.VariationType, error) {
	var types []models.VariationType
	if err := s.db.WithContext(ctx).Preload("Options").Order("name").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list variation types: %w", err)
	}
	return types, nil
}

func (s *Store) CreateVariationType(ctx context.Context, t *models.VariationType) error {
	if err := s.db.WithContext(ctx).Omit("Options").Create(t).Error; err != nil {
		return fmt.Errorf("failed to create variation type: %w", err)
	}
	return nil
}

func (s *Store) CreateVariationOption(ctx context.Context, o *models.VariationOption) error {
	var t models.VariationType
	if err := s.db.WithContext(ctx).First(&t, o.VariationTypeID).Error; err != nil {
		return lookupErr(err, "variation type")
	}
	if err := s.db.WithContext(ctx).Omit("VariationType").Create(o).Error; err != nil {
		return fmt.Errorf("failed to create variation option: %w", err)
	}
	o.VariationType = t
	return nil
}

// GetVariation loads a variation with its jewelry and options.
func (s *Store) GetVariation(ctx context.Context, id uint) (*models.ProductVariation, error) {
	var v models.ProductVariation
	err := s.db.WithContext(ctx).
		Preload("Jewelry").
		Preload("VariationOptions.VariationType").
		First(&v, id).Error
	if err != nil {
		return nil, lookupErr(err, "variation")
	}
	return &v, nil
}

// CreateVariation inserts v and attaches the given options, deriving the SKU.
func (s *Store) CreateVariation(ctx context.Context, v *models.ProductVariation, optionIDs []uint) (*models.ProductVariation, error) {
	var created *models.ProductVariation
	err := s.Transaction(ctx, func(tx *Store) error {
		var j models.Jewelry
		if err := tx.db.WithContext(ctx).First(&j, v.JewelryID).Error; err != nil {
			return lookupErr(err, "jewelry")
		}
		if err := tx.db.WithContext(ctx).Omit("Jewelry", "VariationOptions").Create(v).Error; err != nil {
			return fmt.Errorf("failed to create variation: %w", err)
		}
		var err error
		created, err = tx.SetVariationOptions(ctx, v.ID, optionIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateVariation(ctx context.Context, id uint, u VariationUpdate) (*models.ProductVariation, error) {
	updates := map[string]interface{}{}
	if u.PriceAdjustment != nil {
		updates["price_adjustment"] = *u.PriceAdjustment
	}
	if u.StockQuantity != nil {
		updates["stock_quantity"] = *u.StockQuantity
	}
	if u.IsAvailable != nil {
		updates["is_available"] = *u.IsAvailable
	}
	if u.SKU != nil {
		updates["sku"] = *u.SKU
	}

	if _, err := s.GetVariation(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.ProductVariation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update variation: %w", err)
		}
	}
	return s.GetVariation(ctx, id)
}

// SetVariationOptions replaces the option set and re-derives the SKU.
func (s *Store) SetVariationOptions(ctx context.Context, id uint, optionIDs []uint) (*models.ProductVariation, error) {
	return s.mutateOptions(ctx, id, func(assoc *gorm.Association) error {
		if len(optionIDs) == 0 {
			return assoc.Clear()
		}
		opts, err := s.findOptions(ctx, optionIDs)
		if err != nil {
			return err
		}
		return assoc.Replace(opts)
	})
}

func (s *Store) AddVariationOptions(ctx context.Context, id uint, optionIDs []uint) (*models.ProductVariation, error) {
	return s.mutateOptions(ctx, id, func(assoc *gorm.Association) error {
		opts, err := s.findOptions(ctx, optionIDs)
		if err != nil {
			return err
		}
		return assoc.Append(opts)
	})
}

func (s *Store) RemoveVariationOption(ctx context.Context, id, optionID uint) (*models.ProductVariation, error) {
	return s.mutateOptions(ctx, id, func(assoc *gorm.Association) error {
		return assoc.Delete(&models.VariationOption{ID: optionID})
	})
}

func (s *Store) ClearVariationOptions(ctx context.Context, id uint) (*models.ProductVariation, error) {
	return s.mutateOptions(ctx, id, func(assoc *gorm.Association) error {
		return assoc.Clear()
	})
}

// findOptions loads each distinct id once; any unknown id is ErrNotFound.
func (s *Store) findOptions(ctx context.Context, ids []uint) ([]models.VariationOption, error) {
	ids = uniqueIDs(ids)
	var opts []models.VariationOption
	if err := s.db.WithContext(ctx).Find(&opts, ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load variation options: %w", err)
	}
	if len(opts) != len(ids) {
		return nil, fmt.Errorf("variation option: %w", ErrNotFound)
	}
	return opts, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// mutateOptions applies fn to the option association, then reloads the
// variation and refreshes its SKU.
func (s *Store) mutateOptions(ctx context.Context, id uint, fn func(*gorm.Association) error) (*models.ProductVariation, error) {
	v, err := s.GetVariation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s.db.WithContext(ctx).Model(v).Association("VariationOptions")); err != nil {
		return nil, fmt.Errorf("failed to change variation options: %w", err)
	}

	v, err = s.GetVariation(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.RefreshSKU() {
		if err := s.db.WithContext(ctx).Model(&models.ProductVariation{}).Where("id = ?", id).Update("sku", v.SKU).Error; err != nil {
			return nil, fmt.Errorf("failed to update variation sku: %w", err)
		}
	}
	return v, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/example/moonjewelry/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) cartQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Jewelry").
		Preload("Items.ProductVariation.Jewelry").
		Preload("Items.ProductVariation.VariationOptions.VariationType")
}

func (s *Store) CartByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := s.cartQuery(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, lookupErr(err, "cart")
	}
	return &cart, nil
}

func (s *Store) CartBySession(ctx context.Context, sessionKey string) (*models.Cart, error) {
	var cart models.Cart
	if err := s.cartQuery(ctx).Where("session_key = ? AND user_id IS NULL", sessionKey).First(&cart).Error; err != nil {
		return nil, lookupErr(err, "cart")
	}
	return &cart, nil
}

func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error; err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// AssignCartToUser moves an anonymous cart to a user, dropping the session key.
func (s *Store) AssignCartToUser(ctx context.Context, cartID, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).
		Updates(map[string]interface{}{"user_id": userID, "session_key": nil}).Error
	if err != nil {
		return fmt.Errorf("failed to assign cart: %w", err)
	}
	return nil
}

func (s *Store) DeleteCart(ctx context.Context, cartID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		if err := tx.Delete(&models.Cart{}, cartID).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
}

// CartLine finds the line for (jewelry, variation) in a cart. A nil variation
// matches only lines without one.
func (s *Store) CartLine(ctx context.Context, cartID, jewelryID uint, variationID *uint) (*models.CartItem, error) {
	query := s.db.WithContext(ctx).Where("cart_id = ? AND jewelry_id = ?", cartID, jewelryID)
	if variationID == nil {
		query = query.Where("product_variation_id IS NULL")
	} else {
		query = query.Where("product_variation_id = ?", *variationID)
	}

	var item models.CartItem
	if err := query.First(&item).Error; err != nil {
		return nil, lookupErr(err, "cart item")
	}
	return &item, nil
}

// CartItem returns the item only if it belongs to cartID.
func (s *Store) CartItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.WithContext(ctx).Preload("Jewelry").
		Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error
	if err != nil {
		return nil, lookupErr(err, "cart item")
	}
	return &item, nil
}

func (s *Store) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

func (s *Store) SetCartItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	err := s.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", itemID).
		Update("quantity", quantity).Error
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// DeleteCartItem removes an item scoped to its cart.
func (s *Store) DeleteCartItem(ctx context.Context, cartID, itemID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cart item: %w", ErrNotFound)
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, cartID uint) error {
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *Store) MoveCartItem(ctx context.Context, itemID, cartID uint) error {
	err := s.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", itemID).
		Update("cart_id", cartID).Error
	if err != nil {
		return fmt.Errorf("failed to move cart item: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/example/moonjewelry/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	Status   models.OrderStatus
	UserID   uint
	Page     int
	PageSize int
}

// CreateOrder inserts the order together with its items.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := order.Items
		order.Items = nil
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
				return fmt.Errorf("failed to create order items: %w", err)
			}
		}
		order.Items = items
		return nil
	})
}

func (s *Store) orderQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Jewelry")
}

// OrderForUser returns the order only when it belongs to userID.
func (s *Store) OrderForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.orderQuery(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		return nil, lookupErr(err, "order")
	}
	return &order, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.orderQuery(ctx).First(&order, orderID).Error; err != nil {
		return nil, lookupErr(err, "order")
	}
	return &order, nil
}

func (s *Store) OrdersForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.orderQuery(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	var orders []models.Order
	err := query.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	result := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("order: %w", ErrNotFound)
	}
	return s.GetOrder(ctx, orderID)
}

// MarkShipped moves the given orders to shipped and returns the orders that
// actually changed. Unknown ids and orders already shipped are skipped.
func (s *Store) MarkShipped(ctx context.Context, orderIDs []uint) ([]models.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var shipped []models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ? AND status <> ?", orderIDs, models.OrderStatusShipped).
			Order("id").Find(&shipped).Error; err != nil {
			return err
		}
		if len(shipped) == 0 {
			return nil
		}
		ids := make([]uint, len(shipped))
		for i := range shipped {
			ids[i] = shipped[i].ID
			shipped[i].Status = models.OrderStatusShipped
		}
		return tx.Model(&models.Order{}).Where("id IN ?", ids).
			Update("status", models.OrderStatusShipped).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark orders shipped: %w", err)
	}
	return shipped, nil
}

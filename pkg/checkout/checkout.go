package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/moonjewelry/pkg/cart"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/notify"
	"github.com/example/moonjewelry/pkg/payment"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart     = cart.ErrEmptyCart
	ErrPaymentFailed = errors.New("payment failed")
	ErrOrderNotSaved = errors.New("payment captured but order was not saved")
)

// Input is what the checkout form submits.
type Input struct {
	Buyer    models.Buyer
	SourceID string
}

type Service struct {
	store    *repository.Store
	carts    *cart.Service
	gateway  payment.Gateway
	notifier *notify.Notifier
	currency string
	logger   *zap.Logger

	newKey func() string
}

func NewService(
	store *repository.Store,
	carts *cart.Service,
	gateway payment.Gateway,
	notifier *notify.Notifier,
	currency string,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		carts:    carts,
		gateway:  gateway,
		notifier: notifier,
		currency: currency,
		logger:   logger,
		newKey:   uuid.NewString,
	}
}

// Prefill returns the buyer data saved on the profile and the current cart.
func (s *Service) Prefill(ctx context.Context, userID uint) (models.Buyer, *models.Cart, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return models.Buyer{}, nil, err
	}
	c, err := s.carts.Get(ctx, cart.Authenticated(userID))
	if err != nil {
		return models.Buyer{}, nil, err
	}
	return models.BuyerFor(*user), c, nil
}

// Checkout charges the user's cart and turns it into an order.
//
// The profile is overwritten with the submitted buyer data before the
// payment call and stays overwritten when the payment fails. The cart is
// only emptied together with the order insert.
func (s *Service) Checkout(ctx context.Context, userID uint, in Input) (*models.Order, error) {
	c, err := s.carts.Get(ctx, cart.Authenticated(userID))
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	buyer := in.Buyer
	buyer.Normalize()
	if buyer.Email == "" {
		buyer.Email = user.Email
	}

	profile := user.Profile
	profile.UserID = user.ID
	profile.Apply(buyer)
	if err := s.store.SaveProfile(ctx, &profile); err != nil {
		return nil, err
	}
	s.notifier.Send(&notify.ProfileUpdated{UserID: user.ID})

	total := c.TotalPrice()
	key := s.newKey()

	result, err := s.gateway.CreatePayment(ctx, payment.Request{
		SourceID:       in.SourceID,
		IdempotencyKey: key,
		Amount:         total,
		Currency:       s.currency,
		Note:           fmt.Sprintf("cart %d", c.ID),
	})
	if err != nil {
		s.logger.Error("Payment failed",
			zap.Uint("user_id", user.ID),
			zap.Uint("cart_id", c.ID),
			zap.String("idempotency_key", key),
			zap.Error(err))
		s.notifier.Send(&notify.PaymentFailed{
			UserID:         user.ID,
			Amount:         total,
			IdempotencyKey: key,
			Reason:         err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	order := buildOrder(user.ID, buyer, c, result.PaymentID, total)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return cart.Clear(ctx, tx, c.ID)
	})
	if err != nil {
		s.logger.Error("Failed to save paid order",
			zap.Uint("user_id", user.ID),
			zap.String("payment_id", result.PaymentID),
			zap.Error(err))
		s.notifier.Send(&notify.OrderLost{
			UserID:    user.ID,
			PaymentID: result.PaymentID,
			Amount:    total,
			Reason:    err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrOrderNotSaved, err)
	}

	s.logger.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", user.ID),
		zap.String("payment_id", result.PaymentID),
		zap.String("total", total.StringFixed(2)))
	s.notifier.Send(&notify.OrderPlaced{Order: *order})
	return order, nil
}

func buildOrder(userID uint, buyer models.Buyer, c *models.Cart, paymentID string, total decimal.Decimal) *models.Order {
	order := &models.Order{
		UserID:          userID,
		FullName:        buyer.FullName,
		Email:           buyer.Email,
		Phone:           buyer.Phone,
		ShippingAddress: buyer.Shipping,
		BillingAddress:  buyer.Billing,
		Status:          models.OrderStatusCompleted,
		TotalAmount:     total,
		PaymentID:       paymentID,
	}
	for _, item := range c.Items {
		line := models.OrderItem{
			JewelryID:          item.JewelryID,
			Jewelry:            item.Jewelry,
			ProductVariationID: item.ProductVariationID,
			Quantity:           item.Quantity,
			Price:              item.UnitPrice(),
		}
		if item.ProductVariation != nil {
			line.VariationData = models.SnapshotVariation(*item.ProductVariation)
		}
		order.Items = append(order.Items, line)
	}
	return order
}

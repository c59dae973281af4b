package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/repository"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is not available")
	ErrItemNotFound       = errors.New("cart item not found")
	ErrNoOwner            = errors.New("cart owner is not resolved")
)

// Owner identifies whose cart a request works on: either an authenticated
// user or an anonymous session, never both.
type Owner struct {
	userID     uint
	sessionKey string
}

func Authenticated(userID uint) Owner {
	return Owner{userID: userID}
}

func Anonymous(sessionKey string) Owner {
	return Owner{sessionKey: sessionKey}
}

func (o Owner) IsAuthenticated() bool {
	return o.userID != 0
}

func (o Owner) UserID() uint {
	return o.userID
}

func (o Owner) SessionKey() string {
	return o.sessionKey
}

func (o Owner) valid() bool {
	return o.userID != 0 || o.sessionKey != ""
}

func (o Owner) String() string {
	if o.IsAuthenticated() {
		return fmt.Sprintf("user:%d", o.userID)
	}
	return "session:" + o.sessionKey
}

type Service struct {
	store  *repository.Store
	logger *zap.Logger
}

func NewService(store *repository.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Get returns the owner's cart with items loaded, creating it on first use.
func (s *Service) Get(ctx context.Context, owner Owner) (*models.Cart, error) {
	if !owner.valid() {
		return nil, ErrNoOwner
	}

	c, err := s.find(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	c = &models.Cart{}
	if owner.IsAuthenticated() {
		id := owner.userID
		c.UserID = &id
	} else {
		key := owner.sessionKey
		c.SessionKey = &key
	}
	if err := s.store.CreateCart(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Debug("Cart created", zap.Stringer("owner", owner), zap.Uint("cart_id", c.ID))
	return c, nil
}

func (s *Service) find(ctx context.Context, owner Owner) (*models.Cart, error) {
	if owner.IsAuthenticated() {
		return s.store.CartByUser(ctx, owner.userID)
	}
	return s.store.CartBySession(ctx, owner.sessionKey)
}

// Add puts one unit of the jewelry (and optional variation) in the cart,
// incrementing an existing line for the same pair.
func (s *Service) Add(ctx context.Context, owner Owner, jewelryID uint, variationID *uint) (*models.CartItem, error) {
	j, err := s.store.GetJewelry(ctx, jewelryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if !j.IsActive {
		return nil, ErrProductUnavailable
	}

	if variationID != nil {
		v, err := s.store.GetVariation(ctx, *variationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProductUnavailable
			}
			return nil, err
		}
		if v.JewelryID != j.ID || !v.IsAvailable {
			return nil, ErrProductUnavailable
		}
	}

	c, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.store.CartLine(ctx, c.ID, jewelryID, variationID)
	switch {
	case err == nil:
		item.Quantity++
		if err := s.store.SetCartItemQuantity(ctx, item.ID, item.Quantity); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		item = &models.CartItem{
			CartID:             c.ID,
			JewelryID:          jewelryID,
			ProductVariationID: variationID,
			Quantity:           1,
		}
		if err := s.store.CreateCartItem(ctx, item); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	item.Jewelry = *j
	return item, nil
}

// Update sets the line quantity; zero or less removes the line. The returned
// item is nil when the line was removed.
func (s *Service) Update(ctx context.Context, owner Owner, itemID uint, quantity int) (*models.CartItem, error) {
	c, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	item, err := s.store.CartItem(ctx, c.ID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if quantity <= 0 {
		if err := s.store.DeleteCartItem(ctx, c.ID, itemID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := s.store.SetCartItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

// Remove deletes a line from the owner's cart and returns the removed item.
func (s *Service) Remove(ctx context.Context, owner Owner, itemID uint) (*models.CartItem, error) {
	c, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	item, err := s.store.CartItem(ctx, c.ID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if err := s.store.DeleteCartItem(ctx, c.ID, itemID); err != nil {
		return nil, err
	}
	return item, nil
}

// Adopt hands the anonymous session cart to a user who just logged in. The
// session cart becomes the user's cart if they have none, otherwise its lines
// are merged into the user's cart and it is deleted.
func (s *Service) Adopt(ctx context.Context, sessionKey string, userID uint) error {
	if sessionKey == "" || userID == 0 {
		return nil
	}

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		anon, err := tx.CartBySession(ctx, sessionKey)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		mine, err := tx.CartByUser(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return tx.AssignCartToUser(ctx, anon.ID, userID)
		}
		if err != nil {
			return err
		}

		for _, item := range anon.Items {
			line, err := tx.CartLine(ctx, mine.ID, item.JewelryID, item.ProductVariationID)
			switch {
			case err == nil:
				if err := tx.SetCartItemQuantity(ctx, line.ID, line.Quantity+item.Quantity); err != nil {
					return err
				}
				if err := tx.DeleteCartItem(ctx, anon.ID, item.ID); err != nil {
					return err
				}
			case errors.Is(err, repository.ErrNotFound):
				if err := tx.MoveCartItem(ctx, item.ID, mine.ID); err != nil {
					return err
				}
			default:
				return err
			}
		}

		s.logger.Info("Anonymous cart merged",
			zap.Uint("user_id", userID),
			zap.Int("lines", len(anon.Items)))
		return tx.DeleteCart(ctx, anon.ID)
	})
}

// Clear empties the cart. Checkout passes a transaction-bound store.
func Clear(ctx context.Context, store *repository.Store, cartID uint) error {
	return store.ClearCart(ctx, cartID)
}

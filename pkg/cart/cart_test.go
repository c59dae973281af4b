package cart

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	svc     *Service
	store   *repository.Store
	db      *gorm.DB
	ring    models.Jewelry
	chain   models.Jewelry
	variant *models.ProductVariation
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// shared-cache memory databases lock per table across connections
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	ctx := context.Background()
	store := repository.NewStore(db)

	size := models.VariationType{Name: "Size"}
	require.NoError(t, store.CreateVariationType(ctx, &size))
	large := models.VariationOption{VariationTypeID: size.ID, Value: "Large"}
	require.NoError(t, store.CreateVariationOption(ctx, &large))

	ring := models.Jewelry{Name: "Ring", Price: decimal.RequireFromString("100"), IsActive: true}
	require.NoError(t, store.CreateJewelry(ctx, &ring, []uint{size.ID}))
	chain := models.Jewelry{Name: "Chain", Price: decimal.RequireFromString("45.50"), IsActive: true}
	require.NoError(t, store.CreateJewelry(ctx, &chain, nil))

	v, err := store.CreateVariation(ctx, &models.ProductVariation{
		JewelryID:       ring.ID,
		PriceAdjustment: decimal.RequireFromString("12.25"),
		IsAvailable:     true,
	}, []uint{large.ID})
	require.NoError(t, err)

	return &fixture{
		svc:     NewService(store, zap.NewNop()),
		store:   store,
		db:      db,
		ring:    ring,
		chain:   chain,
		variant: v,
	}
}

func TestGetCreatesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Get(ctx, Anonymous("abc"))
	require.NoError(t, err)
	second, err := f.svc.Get(ctx, Anonymous("abc"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsEmpty())

	other, err := f.svc.Get(ctx, Authenticated(7))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = f.svc.Get(ctx, Owner{})
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestAddIncrementsSameLine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := Authenticated(1)

	_, err := f.svc.Add(ctx, owner, f.ring.ID, &f.variant.ID)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, owner, f.ring.ID, &f.variant.ID)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, owner, f.ring.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, owner, f.chain.ID, nil)
	require.NoError(t, err)

	c, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, c.Items, 3)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.True(t, c.Items[0].UnitPrice().Equal(decimal.RequireFromString("112.25")))
	assert.True(t, c.Items[1].UnitPrice().Equal(decimal.RequireFromString("100")))

	// 2*112.25 + 100 + 45.50
	assert.True(t, c.TotalPrice().Equal(decimal.RequireFromString("370.00")), c.TotalPrice().String())
}

func TestAddRejectsUnavailable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := Anonymous("s1")

	_, err := f.svc.Add(ctx, owner, 999, nil)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = f.svc.Add(ctx, owner, f.chain.ID, &f.variant.ID)
	assert.ErrorIs(t, err, ErrProductUnavailable, "variation of another product")

	inactive := false
	_, err = f.store.UpdateJewelry(ctx, f.chain.ID, repository.JewelryUpdate{IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, owner, f.chain.ID, nil)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestUpdateAndRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := Anonymous("s1")

	item, err := f.svc.Add(ctx, owner, f.chain.ID, nil)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, owner, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	t.Run("other owner cannot touch the line", func(t *testing.T) {
		_, err := f.svc.Update(ctx, Anonymous("intruder"), item.ID, 1)
		assert.ErrorIs(t, err, ErrItemNotFound)
		_, err = f.svc.Remove(ctx, Authenticated(3), item.ID)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("zero quantity deletes", func(t *testing.T) {
		gone, err := f.svc.Update(ctx, owner, item.ID, 0)
		require.NoError(t, err)
		assert.Nil(t, gone)

		c, err := f.svc.Get(ctx, owner)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
	})

	t.Run("remove", func(t *testing.T) {
		item, err := f.svc.Add(ctx, owner, f.ring.ID, nil)
		require.NoError(t, err)
		removed, err := f.svc.Remove(ctx, owner, item.ID)
		require.NoError(t, err)
		assert.Equal(t, f.ring.ID, removed.JewelryID)

		_, err = f.svc.Remove(ctx, owner, item.ID)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestAdopt(t *testing.T) {
	ctx := context.Background()

	t.Run("reassigns when the user has no cart", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Add(ctx, Anonymous("guest"), f.chain.ID, nil)
		require.NoError(t, err)

		require.NoError(t, f.svc.Adopt(ctx, "guest", 5))

		c, err := f.svc.Get(ctx, Authenticated(5))
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Nil(t, c.SessionKey)

		_, err = f.store.CartBySession(ctx, "guest")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("merges quantities into the user cart", func(t *testing.T) {
		f := setup(t)
		guest, user := Anonymous("guest"), Authenticated(5)

		_, err := f.svc.Add(ctx, user, f.chain.ID, nil)
		require.NoError(t, err)
		_, err = f.svc.Add(ctx, guest, f.chain.ID, nil)
		require.NoError(t, err)
		_, err = f.svc.Add(ctx, guest, f.chain.ID, nil)
		require.NoError(t, err)
		_, err = f.svc.Add(ctx, guest, f.ring.ID, &f.variant.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.Adopt(ctx, "guest", 5))

		c, err := f.svc.Get(ctx, user)
		require.NoError(t, err)
		require.Len(t, c.Items, 2)
		assert.Equal(t, 3, c.Items[0].Quantity)
		assert.Equal(t, 1, c.Items[1].Quantity)

		var carts int64
		require.NoError(t, f.db.Model(&models.Cart{}).Count(&carts).Error)
		assert.Equal(t, int64(1), carts)
	})

	t.Run("no session cart is a no-op", func(t *testing.T) {
		f := setup(t)
		assert.NoError(t, f.svc.Adopt(ctx, "nobody", 5))
	})
}

func TestOwner(t *testing.T) {
	assert.True(t, Authenticated(3).IsAuthenticated())
	assert.False(t, Anonymous("k").IsAuthenticated())
	assert.Equal(t, "user:3", Authenticated(3).String())
	assert.Equal(t, "session:k", Anonymous("k").String())
}

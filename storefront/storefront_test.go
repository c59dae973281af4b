package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/moonjewelry/pkg/cart"
	"github.com/example/moonjewelry/pkg/checkout"
	"github.com/example/moonjewelry/pkg/config"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/notify"
	"github.com/example/moonjewelry/pkg/payment"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAPIKey = "admin-secret"

type stubGateway struct {
	calls int
	err   error
}

func (g *stubGateway) CreatePayment(_ context.Context, req payment.Request) (*payment.Result, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Result{
		PaymentID: fmt.Sprintf("pay_%d", g.calls),
		Status:    "COMPLETED",
		Amount:    payment.MinorUnits(req.Amount),
	}, nil
}

// memoryCache records how the storefront uses the product cache.
type memoryCache struct {
	mu          sync.Mutex
	items       map[uint]models.Jewelry
	hits        int
	invalidated []uint
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[uint]models.Jewelry)}
}

func (m *memoryCache) GetJewelryCache(_ context.Context, id uint) (*models.Jewelry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.items[id]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	m.hits++
	return &j, nil
}

func (m *memoryCache) CacheJewelry(_ context.Context, j *models.Jewelry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[j.ID] = *j
	return nil
}

func (m *memoryCache) InvalidateJewelry(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	m.invalidated = append(m.invalidated, id)
	return nil
}

func (m *memoryCache) cached(id uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

func (m *memoryCache) invalidations() []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint(nil), m.invalidated...)
}

// memoryAudit is both the notifier's audit sink and the admin audit reader.
type memoryAudit struct {
	mu      sync.Mutex
	entries []*repository.AuditLog
}

func (m *memoryAudit) CreateAuditLog(_ context.Context, entry *repository.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAudit) FindAuditLogs(_ context.Context, filter repository.AuditFilter) ([]*repository.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*repository.AuditLog{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.UserID != 0 && e.UserID != filter.UserID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryAudit) actions(action string) []*repository.AuditLog {
	logs, _ := m.FindAuditLogs(context.Background(), repository.AuditFilter{Action: action})
	return logs
}

type fixture struct {
	server  *httptest.Server
	store   *repository.Store
	db      *gorm.DB
	gateway *stubGateway
	ring    models.Jewelry
	variant *models.ProductVariation
	red     models.VariationOption
	user    models.User
	cache   *memoryCache
	audit   *memoryAudit
}

func newFixture(t *testing.T) *fixture {
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

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Username: "ada", Email: "ada@example.com", PasswordHash: string(hash)}
	require.NoError(t, store.CreateUser(ctx, &user))

	color := models.VariationType{Name: "Color"}
	require.NoError(t, store.CreateVariationType(ctx, &color))
	red := models.VariationOption{VariationTypeID: color.ID, Value: "Red"}
	require.NoError(t, store.CreateVariationOption(ctx, &red))

	ring := models.Jewelry{Name: "Moon Ring", Price: decimal.RequireFromString("100"), IsActive: true}
	require.NoError(t, store.CreateJewelry(ctx, &ring, []uint{color.ID}))
	variant, err := store.CreateVariation(ctx, &models.ProductVariation{
		JewelryID:       ring.ID,
		PriceAdjustment: decimal.RequireFromString("7.50"),
		IsAvailable:     true,
	}, []uint{red.ID})
	require.NoError(t, err)

	cfg := &config.Config{
		HTTP:    config.HTTPConfig{Swagger: true},
		Session: config.SessionConfig{Name: "moon_session", Secret: "test-secret", MaxAge: 3600},
		Admin:   config.AdminConfig{APIKey: testAPIKey},
		Payment: config.PaymentConfig{Currency: "USD", ApplicationID: "app", LocationID: "loc"},
	}

	audit := &memoryAudit{}
	notifier, err := notify.New(notify.Sinks{Audit: audit}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { notifier.Stop(time.Second) })

	gw := &stubGateway{}
	cache := newMemoryCache()
	carts := cart.NewService(store, zap.NewNop())
	sf, err := New(Deps{
		Config:   cfg,
		Store:    store,
		Carts:    carts,
		Checkout: checkout.NewService(store, carts, gw, notifier, "USD", zap.NewNop()),
		Cache:    cache,
		Audit:    audit,
		Notifier: notifier,
		Feed:     NewFeed(zap.NewNop()),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	server := httptest.NewServer(sf.Handler())
	t.Cleanup(server.Close)

	return &fixture{
		server:  server,
		store:   store,
		db:      db,
		gateway: gw,
		ring:    ring,
		variant: variant,
		red:     red,
		user:    user,
		cache:   cache,
		audit:   audit,
	}
}

// browser keeps cookies and reports redirects instead of following them.
func (f *fixture) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *fixture) get(t *testing.T, client *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *fixture) post(t *testing.T, client *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(f.server.URL+path, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (f *fixture) login(t *testing.T, client *http.Client) {
	t.Helper()
	resp := f.post(t, client, "/accounts/login", url.Values{
		"username": {"ada"},
		"password": {"correct-horse"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func (f *fixture) admin(t *testing.T, method, path string, payload interface{}) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func checkoutValues() url.Values {
	return url.Values{
		"full_name":             {"Ada Lovelace"},
		"email":                 {"ada@example.com"},
		"phone":                 {"555-0100"},
		"shipping_street":       {"1 Main St"},
		"shipping_city":         {"Austin"},
		"shipping_state":        {"TX"},
		"shipping_zip":          {"73301"},
		"same_billing_shipping": {"true"},
		"source_id":             {"cnon:card-nonce-ok"},
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, http.DefaultClient, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"ok"`)
}

func TestSwaggerDocs(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, http.DefaultClient, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "Moon Jewelry Admin API", doc.Info.Title)
	assert.Equal(t, "/admin", doc.BasePath)
	assert.Contains(t, doc.Paths, "/orders/ship")
	assert.Contains(t, doc.Paths, "/variations/{id}/options")
}

func TestProductPages(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)

	resp, body := f.get(t, client, "/products")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Moon Ring")

	resp, body = f.get(t, client, fmt.Sprintf("/products/%d", f.ring.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Moon Ring")

	resp, _ = f.get(t, client, "/products/9999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.admin(t, http.MethodPatch, fmt.Sprintf("/admin/jewelry/%d", f.ring.ID), map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.get(t, client, fmt.Sprintf("/products/%d", f.ring.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductDetailCache(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)
	path := fmt.Sprintf("/products/%d", f.ring.ID)

	resp, body := f.get(t, client, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "$100.00")
	assert.True(t, f.cache.cached(f.ring.ID))

	// a write that skips the admin API leaves the cached copy in place
	price := decimal.RequireFromString("150")
	_, err := f.store.UpdateJewelry(context.Background(), f.ring.ID, repository.JewelryUpdate{Price: &price})
	require.NoError(t, err)
	resp, body = f.get(t, client, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "$100.00")
	assert.Equal(t, 1, f.cache.hits)

	resp, _ = f.admin(t, http.MethodPatch, fmt.Sprintf("/admin/jewelry/%d", f.ring.ID), map[string]string{"price": "175"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, f.cache.cached(f.ring.ID))

	resp, body = f.get(t, client, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "$175.00")
	assert.True(t, f.cache.cached(f.ring.ID))
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)

	resp := f.post(t, client, fmt.Sprintf("/cart/add/%d", f.ring.ID), url.Values{
		"variation_id": {fmt.Sprint(f.variant.ID)},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	resp, body := f.get(t, client, "/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Moon Ring added to your cart.")
	assert.Contains(t, body, "$107.50")

	var item models.CartItem
	require.NoError(t, f.db.First(&item).Error)

	resp = f.post(t, client, fmt.Sprintf("/cart/update/%d", item.ID), url.Values{"quantity": {"3"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, body = f.get(t, client, "/cart")
	assert.Contains(t, body, "$322.50")

	resp = f.post(t, client, fmt.Sprintf("/cart/update/%d", item.ID), url.Values{"quantity": {"0"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, body = f.get(t, client, "/cart")
	assert.Contains(t, body, "Item removed from your cart.")

	var count int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&count).Error)
	assert.Zero(t, count)

	t.Run("unavailable product", func(t *testing.T) {
		resp := f.post(t, client, "/cart/add/9999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("another visitor's line", func(t *testing.T) {
		other := f.browser(t)
		f.post(t, other, fmt.Sprintf("/cart/add/%d", f.ring.ID), nil)
		var theirs models.CartItem
		require.NoError(t, f.db.Order("id desc").First(&theirs).Error)

		resp := f.post(t, client, fmt.Sprintf("/cart/remove/%d", theirs.ID), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCheckoutRequiresLogin(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)

	resp, _ := f.get(t, client, "/checkout")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/login?next=%2Fcheckout", resp.Header.Get("Location"))

	resp = f.post(t, client, "/accounts/login", url.Values{
		"username": {"ada"},
		"password": {"correct-horse"},
		"next":     {"/orders/history"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/orders/history", resp.Header.Get("Location"))

	t.Run("wrong password", func(t *testing.T) {
		resp := f.post(t, f.browser(t), "/accounts/login", url.Values{
			"username": {"ada"},
			"password": {"nope"},
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("offsite next", func(t *testing.T) {
		resp := f.post(t, f.browser(t), "/accounts/login", url.Values{
			"username": {"ada"},
			"password": {"correct-horse"},
			"next":     {"//evil.example"},
		})
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)
	f.login(t, client)

	resp, _ := f.get(t, client, "/checkout")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	resp = f.post(t, client, "/checkout/process", checkoutValues())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	_, body := f.get(t, client, "/cart")
	assert.Contains(t, body, "Your cart is empty.")
	assert.Zero(t, f.gateway.calls)
}

func TestCheckoutSuccess(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)

	// added anonymously, carried over by login
	f.post(t, client, fmt.Sprintf("/cart/add/%d", f.ring.ID), url.Values{
		"variation_id": {fmt.Sprint(f.variant.ID)},
	})
	f.login(t, client)

	resp, body := f.get(t, client, "/checkout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "$107.50")
	assert.Contains(t, body, `value="ada@example.com"`)

	resp = f.post(t, client, "/checkout/process", checkoutValues())
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var order models.Order
	require.NoError(t, f.db.Preload("Items").First(&order).Error)
	assert.Equal(t, fmt.Sprintf("/order/%d/confirmation", order.ID), resp.Header.Get("Location"))
	assert.Equal(t, "pay_1", order.PaymentID)
	assert.True(t, decimal.RequireFromString("107.50").Equal(order.TotalAmount))
	require.Len(t, order.Items, 1)

	resp, body = f.get(t, client, resp.Header.Get("Location"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your order has been placed successfully!")
	assert.Contains(t, body, "Moon Ring")

	_, body = f.get(t, client, "/orders/history")
	assert.Contains(t, body, fmt.Sprintf("#%d", order.ID))

	var lines int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&lines).Error)
	assert.Zero(t, lines)

	t.Run("other users cannot see it", func(t *testing.T) {
		ctx := context.Background()
		other := models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
		require.NoError(t, f.store.CreateUser(ctx, &other))
		_, err := f.store.OrderForUser(ctx, other.ID, order.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCheckoutPaymentFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = fmt.Errorf("card declined: %w", payment.ErrDeclined)
	client := f.browser(t)
	f.login(t, client)
	f.post(t, client, fmt.Sprintf("/cart/add/%d", f.ring.ID), nil)

	resp := f.post(t, client, "/checkout/process", checkoutValues())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/checkout", resp.Header.Get("Location"))

	_, body := f.get(t, client, "/checkout")
	assert.Contains(t, body, paymentErrorMessage)
	assert.NotContains(t, body, "declined")

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	t.Run("transport errors look the same", func(t *testing.T) {
		f.gateway.err = errors.New("connection reset")
		resp := f.post(t, client, "/checkout/process", checkoutValues())
		assert.Equal(t, "/checkout", resp.Header.Get("Location"))
	})

	t.Run("invalid form re-renders", func(t *testing.T) {
		values := checkoutValues()
		values.Del("same_billing_shipping")
		resp := f.post(t, client, "/checkout/process", values)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSignupAdoptsCart(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)
	f.post(t, client, fmt.Sprintf("/cart/add/%d", f.ring.ID), nil)

	resp := f.post(t, client, "/accounts/signup", url.Values{
		"username":  {"grace"},
		"email":     {"grace@example.com"},
		"password1": {"long-enough-1"},
		"password2": {"long-enough-1"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	user, err := f.store.UserByUsername(context.Background(), "grace")
	require.NoError(t, err)
	c, err := f.store.CartByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ItemCount())

	t.Run("duplicate username", func(t *testing.T) {
		resp := f.post(t, f.browser(t), "/accounts/signup", url.Values{
			"username":  {"grace"},
			"email":     {"other@example.com"},
			"password1": {"long-enough-1"},
			"password2": {"long-enough-1"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("mismatched passwords", func(t *testing.T) {
		resp := f.post(t, f.browser(t), "/accounts/signup", url.Values{
			"username":  {"linus"},
			"email":     {"linus@example.com"},
			"password1": {"long-enough-1"},
			"password2": {"long-enough-2"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)
	f.login(t, client)

	resp := f.post(t, client, "/profile", url.Values{
		"full_name":             {"Ada King"},
		"phone":                 {"555-0199"},
		"shipping_street":       {"2 Side St"},
		"shipping_city":         {"Dallas"},
		"shipping_state":        {"TX"},
		"shipping_zip":          {"75001"},
		"same_billing_shipping": {"true"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	user, err := f.store.UserByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada King", user.Profile.FullName)
	assert.Equal(t, "Dallas", user.Profile.ShippingAddress.City)
	assert.Equal(t, "Dallas", user.Profile.BillingAddress.City)

	_, body := f.get(t, client, "/profile")
	assert.Contains(t, body, "Your profile has been updated.")
	assert.Contains(t, body, `value="Ada King"`)
}

func TestAdminRequiresAPIKey(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/admin/jewelry")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.admin(t, http.MethodGet, "/admin/jewelry", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminVariationOptions(t *testing.T) {
	f := newFixture(t)

	resp, data := f.admin(t, http.MethodPost, "/admin/variation-types", map[string]string{"name": "Size"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var size models.VariationType
	require.NoError(t, json.Unmarshal(data, &size))

	resp, data = f.admin(t, http.MethodPost, fmt.Sprintf("/admin/variation-types/%d/options", size.ID),
		map[string]string{"value": "Small"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var small models.VariationOption
	require.NoError(t, json.Unmarshal(data, &small))

	var v models.ProductVariation
	resp, data = f.admin(t, http.MethodPost, fmt.Sprintf("/admin/variations/%d/options", f.variant.ID),
		map[string][]uint{"option_ids": {small.ID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, "moon_ring_red_small", v.SKU)

	resp, data = f.admin(t, http.MethodDelete, fmt.Sprintf("/admin/variations/%d/options/%d", f.variant.ID, f.red.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, "moon_ring_small", v.SKU)

	resp, data = f.admin(t, http.MethodDelete, fmt.Sprintf("/admin/variations/%d/options", f.variant.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, "moon_ring", v.SKU)

	resp, _ = f.admin(t, http.MethodDelete, "/admin/variations/9999/options", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// every successful option change drops the cached product page
	assert.Equal(t, []uint{f.ring.ID, f.ring.ID, f.ring.ID}, f.cache.invalidations())
}

func TestAdminOrders(t *testing.T) {
	f := newFixture(t)
	client := f.browser(t)
	f.login(t, client)
	f.post(t, client, fmt.Sprintf("/cart/add/%d", f.ring.ID), nil)
	f.post(t, client, "/checkout/process", checkoutValues())

	var order models.Order
	require.NoError(t, f.db.First(&order).Error)

	resp, _ := f.admin(t, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID),
		map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := f.admin(t, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", order.ID),
		map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"processing"`)

	resp, data = f.admin(t, http.MethodPost, "/admin/orders/ship", map[string][]uint{"order_ids": {order.ID, 9999}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"updated":1}`, string(data))

	resp, data = f.admin(t, http.MethodPost, "/admin/orders/ship", map[string][]uint{"order_ids": {order.ID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"updated":0}`, string(data))

	resp, data = f.admin(t, http.MethodGet, "/admin/orders?status=shipped", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(data, &listed))
	assert.Equal(t, int64(1), listed.Total)

	// processing, then one real shipment; the unknown id and the repeat are not recorded
	require.Eventually(t, func() bool {
		return len(f.audit.actions(repository.AuditOrderStatus)) == 2
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	changes := f.audit.actions(repository.AuditOrderStatus)
	require.Len(t, changes, 2)
	assert.Equal(t, notify.OrderEntity(order.ID), changes[0].EntityID)
	assert.Equal(t, f.user.ID, changes[0].UserID)
	assert.Equal(t, "shipped", changes[0].Data["status"])

	resp, data = f.admin(t, http.MethodGet, fmt.Sprintf("/admin/orders/%d/audit?action=%s", order.ID, repository.AuditOrderStatus), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var trail struct {
		Audit []repository.AuditLog `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(data, &trail))
	require.Len(t, trail.Audit, 2)
	assert.Equal(t, "shipped", trail.Audit[0].Data["status"])

	resp, data = f.admin(t, http.MethodGet, fmt.Sprintf("/admin/audit?user_id=%d&action=%s", f.user.ID, repository.AuditOrderPlaced), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trail.Audit = nil
	require.NoError(t, json.Unmarshal(data, &trail))
	require.Len(t, trail.Audit, 1)
	assert.Equal(t, notify.OrderEntity(order.ID), trail.Audit[0].EntityID)

	resp, _ = f.admin(t, http.MethodGet, "/admin/audit?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminExport(t *testing.T) {
	f := newFixture(t)

	resp, data := f.admin(t, http.MethodGet, "/admin/jewelry/export.xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=jewelry.xlsx", resp.Header.Get("Content-Disposition"))
	// xlsx files are zip archives
	assert.True(t, strings.HasPrefix(string(data), "PK"))
}

func TestAdminJewelryList(t *testing.T) {
	f := newFixture(t)

	resp, data := f.admin(t, http.MethodPost, "/admin/jewelry", map[string]interface{}{
		"name":  "Star Studs",
		"price": "40",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data = f.admin(t, http.MethodGet, "/admin/jewelry", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Jewelry []struct {
			Name          string `json:"name"`
			HasVariations bool   `json:"has_variations"`
		} `json:"jewelry"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(data, &listed))
	require.Equal(t, 2, listed.Total)
	assert.Equal(t, "Moon Ring", listed.Jewelry[0].Name)
	assert.True(t, listed.Jewelry[0].HasVariations)
	assert.Equal(t, "Star Studs", listed.Jewelry[1].Name)
	assert.False(t, listed.Jewelry[1].HasVariations)
}

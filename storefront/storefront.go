package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/moonjewelry/pkg/cart"
	"github.com/example/moonjewelry/pkg/checkout"
	"github.com/example/moonjewelry/pkg/config"
	"github.com/example/moonjewelry/pkg/logging"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/notify"
	"github.com/example/moonjewelry/pkg/repository"
	_ "github.com/example/moonjewelry/storefront/docs"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// JewelryCache is the product detail cache. *repository.RedisRepository
// implements it.
type JewelryCache interface {
	GetJewelryCache(ctx context.Context, id uint) (*models.Jewelry, error)
	CacheJewelry(ctx context.Context, j *models.Jewelry) error
	InvalidateJewelry(ctx context.Context, id uint) error
}

// AuditReader serves the back-office audit trail. *repository.MongoRepository
// implements it.
type AuditReader interface {
	FindAuditLogs(ctx context.Context, filter repository.AuditFilter) ([]*repository.AuditLog, error)
}

// Deps wires the storefront. Cache, Audit, Notifier and Feed are optional.
type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Carts    *cart.Service
	Checkout *checkout.Service
	Cache    JewelryCache
	Audit    AuditReader
	Notifier *notify.Notifier
	Feed     *Feed
	Logger   *zap.Logger
}

type Storefront struct {
	config   *config.Config
	store    *repository.Store
	carts    *cart.Service
	checkout *checkout.Service
	cache    JewelryCache
	audit    AuditReader
	notifier *notify.Notifier
	feed     *Feed
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
}

func New(deps Deps) (*Storefront, error) {
	if deps.Config.Session.Secret == "" {
		return nil, errors.New("session secret is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware(deps.Logger))

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	s := &Storefront{
		config:   deps.Config,
		store:    deps.Store,
		carts:    deps.Carts,
		checkout: deps.Checkout,
		cache:    deps.Cache,
		audit:    deps.Audit,
		notifier: deps.Notifier,
		feed:     deps.Feed,
		logger:   deps.Logger,
		router:   router,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Storefront) sessionStore() sessions.Store {
	store := cookie.NewStore([]byte(s.config.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.config.Session.MaxAge,
		HttpOnly: true,
		Secure:   s.config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

func (s *Storefront) setupRoutes() {
	r := s.router

	r.GET("/health", s.health)
	if s.config.HTTP.MediaDir != "" {
		r.Static("/media", s.config.HTTP.MediaDir)
	}
	if s.config.HTTP.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	s.setupAdminRoutes(r.Group("/admin"))

	site := r.Group("/")
	site.Use(sessions.Sessions(s.config.Session.Name, s.sessionStore()))
	site.Use(s.resolveOwner())
	{
		site.GET("/", s.home)
		site.GET("/products", s.productList)
		site.GET("/products/:id", s.productDetail)
		site.GET("/events", s.eventList)

		site.GET("/cart", s.cartDetail)
		site.POST("/cart/add/:jewelryID", s.addToCart)
		site.POST("/cart/update/:itemID", s.updateCart)
		site.POST("/cart/remove/:itemID", s.removeFromCart)

		site.GET("/accounts/signup", s.signupForm)
		site.POST("/accounts/signup", s.signup)
		site.GET("/accounts/login", s.loginForm)
		site.POST("/accounts/login", s.login)
		site.POST("/accounts/logout", s.logout)

		member := site.Group("/")
		member.Use(requireLogin())
		{
			member.GET("/checkout", s.checkoutForm)
			member.POST("/checkout/process", s.processCheckout)
			member.GET("/order/:orderID/confirmation", s.orderConfirmation)
			member.GET("/orders/history", s.orderHistory)
			member.GET("/profile", s.profileForm)
			member.POST("/profile", s.updateProfile)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		s.notFound(c)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Storefront) Handler() http.Handler {
	return s.router
}

func (s *Storefront) Start() error {
	addr := s.config.HTTP.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Storefront starting", zap.String("address", addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("storefront stopped: %w", err)
	}
	return nil
}

func (s *Storefront) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Storefront) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

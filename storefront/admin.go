package storefront

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/notify"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-KEY"

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"max=120"`
	Description string `json:"description"`
}

type variationTypeRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type optionRequest struct {
	Value        string `json:"value" binding:"required,max=100"`
	DisplayValue string `json:"display_value" binding:"max=100"`
	ColorHex     string `json:"color_hex" binding:"omitempty,hexcolor"`
}

type jewelryRequest struct {
	Name             string          `json:"name" binding:"required,max=100"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	StockQuantity    int             `json:"stock_quantity" binding:"min=0"`
	SKU              string          `json:"sku" binding:"max=100"`
	ImagePath        string          `json:"image_path"`
	IsActive         *bool           `json:"is_active"`
	CategoryID       *uint           `json:"category_id"`
	VariationTypeIDs []uint          `json:"variation_type_ids"`
}

type variationRequest struct {
	JewelryID       uint            `json:"jewelry_id" binding:"required"`
	OptionIDs       []uint          `json:"option_ids"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	StockQuantity   int             `json:"stock_quantity" binding:"min=0"`
	SKU             string          `json:"sku" binding:"max=100"`
	IsAvailable     *bool           `json:"is_available"`
}

type optionIDsRequest struct {
	OptionIDs []uint `json:"option_ids" binding:"required,min=1"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type shipRequest struct {
	OrderIDs []uint `json:"order_ids" binding:"required,min=1"`
}

type eventRequest struct {
	Title        string    `json:"title" binding:"required,max=200"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date" binding:"required"`
	Location     string    `json:"location" binding:"max=200"`
	ImagePath    string    `json:"image_path"`
	MaxAttendees *int      `json:"max_attendees" binding:"omitempty,min=1"`
	IsActive     *bool     `json:"is_active"`
}

func (s *Storefront) setupAdminRoutes(admin *gin.RouterGroup) {
	if origins := s.config.Admin.AllowedOrigins; len(origins) > 0 {
		admin.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", apiKeyHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	admin.Use(s.apiKeyAuth())

	admin.GET("/categories", s.adminListCategories)
	admin.POST("/categories", s.adminCreateCategory)

	admin.GET("/variation-types", s.adminListVariationTypes)
	admin.POST("/variation-types", s.adminCreateVariationType)
	admin.POST("/variation-types/:id/options", s.adminCreateOption)

	jewelry := admin.Group("/jewelry")
	{
		jewelry.GET("", s.adminListJewelry)
		jewelry.POST("", s.adminCreateJewelry)
		jewelry.GET("/export.xlsx", s.adminExportJewelry)
		jewelry.PATCH("/:id", s.adminUpdateJewelry)
	}

	variations := admin.Group("/variations")
	{
		variations.POST("", s.adminCreateVariation)
		variations.PATCH("/:id", s.adminUpdateVariation)
		variations.PUT("/:id/options", s.adminSetOptions)
		variations.POST("/:id/options", s.adminAddOptions)
		variations.DELETE("/:id/options/:optionID", s.adminRemoveOption)
		variations.DELETE("/:id/options", s.adminClearOptions)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("", s.adminListOrders)
		orders.GET("/:id", s.adminGetOrder)
		orders.PUT("/:id/status", s.adminUpdateOrderStatus)
		orders.POST("/ship", s.adminMarkShipped)
		orders.GET("/:id/audit", s.adminOrderAudit)
	}
	admin.GET("/audit", s.adminAudit)

	events := admin.Group("/events")
	{
		events.GET("", s.adminListEvents)
		events.POST("", s.adminCreateEvent)
		events.PATCH("/:id", s.adminUpdateEvent)
	}

	if s.feed != nil {
		admin.GET("/feed", s.feed.ServeWS)
	}
}

// apiKeyAuth guards the back office. Browsers cannot set headers on a
// websocket handshake, so the key may also come as ?api_key=.
func (s *Storefront) apiKeyAuth() gin.HandlerFunc {
	want := []byte(s.config.Admin.APIKey)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			key = c.Query("api_key")
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(key), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API key"})
			return
		}
		c.Next()
	}
}

// adminError maps repository errors onto JSON responses.
func (s *Storefront) adminError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error("Admin request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func adminID(c *gin.Context, name string) (uint, bool) {
	id, ok := parseID(c, name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
	}
	return id, ok
}

func slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// adminListCategories godoc
// @Summary List categories
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /categories [get]
func (s *Storefront) adminListCategories(c *gin.Context) {
	categories, err := s.store.ListCategories(c.Request.Context())
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// adminCreateCategory godoc
// @Summary Create a category
// @Tags catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body object true "Category"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /categories [post]
func (s *Storefront) adminCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	category := models.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	}
	if category.Slug == "" {
		category.Slug = slugify(req.Name)
	}
	if err := s.store.CreateCategory(c.Request.Context(), &category); err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// adminListVariationTypes godoc
// @Summary List variation types with their options
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /variation-types [get]
func (s *Storefront) adminListVariationTypes(c *gin.Context) {
	types, err := s.store.ListVariationTypes(c.Request.Context())
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variation_types": types})
}

// adminCreateVariationType godoc
// @Summary Create a variation type
// @Tags catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body object true "Variation type"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /variation-types [post]
func (s *Storefront) adminCreateVariationType(c *gin.Context) {
	var req variationTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t := models.VariationType{Name: req.Name, DisplayName: req.DisplayName}
	if err := s.store.CreateVariationType(c.Request.Context(), &t); err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// adminCreateOption godoc
// @Summary Add an option to a variation type
// @Tags catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Variation type ID"
// @Param body body object true "Option"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variation-types/{id}/options [post]
func (s *Storefront) adminCreateOption(c *gin.Context) {
	typeID, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	option := models.VariationOption{
		VariationTypeID: typeID,
		Value:           req.Value,
		DisplayValue:    req.DisplayValue,
		ColorHex:        req.ColorHex,
	}
	if err := s.store.CreateVariationOption(c.Request.Context(), &option); err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, option)
}

type jewelryRow struct {
	models.Jewelry
	HasVariations bool `json:"has_variations"`
}

// adminListJewelry godoc
// @Summary List all jewelry, active or not
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /jewelry [get]
func (s *Storefront) adminListJewelry(c *gin.Context) {
	items, err := s.store.AllJewelry(c.Request.Context())
	if err != nil {
		s.adminError(c, err)
		return
	}
	rows := make([]jewelryRow, len(items))
	for i, j := range items {
		rows[i] = jewelryRow{Jewelry: j, HasVariations: j.HasVariations()}
	}
	c.JSON(http.StatusOK, gin.H{"jewelry": rows, "total": len(rows)})
}

// adminCreateJewelry godoc
// @Summary Create a jewelry item
// @Tags catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body object true "Jewelry"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /jewelry [post]
func (s *Storefront) adminCreateJewelry(c *gin.Context) {
	ctx := c.Request.Context()

	var req jewelryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Price.IsNegative() {
		badRequest(c, errors.New("price must not be negative"))
		return
	}

	j := models.Jewelry{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		SKU:           req.SKU,
		ImagePath:     req.ImagePath,
		IsActive:      true,
		CategoryID:    req.CategoryID,
	}
	if err := s.store.CreateJewelry(ctx, &j, req.VariationTypeIDs); err != nil {
		s.adminError(c, err)
		return
	}
	// a false default column value is skipped on insert
	if req.IsActive != nil && !*req.IsActive {
		if _, err := s.store.UpdateJewelry(ctx, j.ID, repository.JewelryUpdate{IsActive: req.IsActive}); err != nil {
			s.adminError(c, err)
			return
		}
	}

	created, err := s.store.GetJewelry(ctx, j.ID)
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// adminUpdateJewelry godoc
// @Summary Update a jewelry item
// @Tags catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Jewelry ID"
// @Param body body object true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /jewelry/{id} [patch]
func (s *Storefront) adminUpdateJewelry(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req repository.JewelryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		badRequest(c, errors.New("price must not be negative"))
		return
	}

	j, err := s.store.UpdateJewelry(c.Request.Context(), id, req)
	if err != nil {
		s.adminError(c, err)
		return
	}
	s.invalidateJewelry(c, id)
	c.JSON(http.StatusOK, j)
}

// adminExportJewelry godoc
// @Summary Export jewelry and variations as a spreadsheet
// @Tags catalog
// @Produce octet-stream
// @Security ApiKeyAuth
// @Success 200 {file} file
// @Router /jewelry/export.xlsx [get]
func (s *Storefront) adminExportJewelry(c *gin.Context) {
	items, err := s.store.AllJewelry(c.Request.Context())
	if err != nil {
		s.adminError(c, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Jewelry")
	if err != nil {
		s.adminError(c, fmt.Errorf("failed to create sheet: %w", err))
		return
	}

	headers := []string{
		"ID", "Name", "Category", "SKU", "Price", "Stock", "Active", "Has Variations",
		"Variation", "Variation SKU", "Variation Price", "Variation Stock", "Available",
	}
	header := sheet.AddRow()
	for _, h := range headers {
		header.AddCell().SetValue(h)
	}

	for _, j := range items {
		category := ""
		if j.Category != nil {
			category = j.Category.Name
		}
		base := func() *xlsx.Row {
			row := sheet.AddRow()
			row.AddCell().SetValue(j.ID)
			row.AddCell().SetValue(j.Name)
			row.AddCell().SetValue(category)
			row.AddCell().SetValue(j.SKU)
			row.AddCell().SetValue(j.Price.StringFixed(2))
			row.AddCell().SetValue(j.StockQuantity)
			row.AddCell().SetValue(j.IsActive)
			row.AddCell().SetValue(j.HasVariations())
			return row
		}

		if len(j.Variations) == 0 {
			base()
			continue
		}
		for _, v := range j.Variations {
			v.Jewelry = j
			row := base()
			row.AddCell().SetValue(v.OptionSummary())
			row.AddCell().SetValue(v.SKU)
			row.AddCell().SetValue(v.TotalPrice().StringFixed(2))
			row.AddCell().SetValue(v.StockQuantity)
			row.AddCell().SetValue(v.IsAvailable)
		}
	}

	c.Header("Content-Disposition", "attachment; filename=jewelry.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")
	if err := file.Write(c.Writer); err != nil {
		s.logger.Error("Failed to write jewelry export", zap.Error(err))
	}
}

// adminCreateVariation godoc
// @Summary Create a variation
// @Tags variations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body object true "Variation"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variations [post]
func (s *Storefront) adminCreateVariation(c *gin.Context) {
	ctx := c.Request.Context()

	var req variationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	v := models.ProductVariation{
		JewelryID:       req.JewelryID,
		PriceAdjustment: req.PriceAdjustment,
		StockQuantity:   req.StockQuantity,
		SKU:             req.SKU,
		IsAvailable:     true,
	}
	created, err := s.store.CreateVariation(ctx, &v, req.OptionIDs)
	if err != nil {
		s.adminError(c, err)
		return
	}
	if req.IsAvailable != nil && !*req.IsAvailable {
		created, err = s.store.UpdateVariation(ctx, created.ID, repository.VariationUpdate{IsAvailable: req.IsAvailable})
		if err != nil {
			s.adminError(c, err)
			return
		}
	}
	s.invalidateJewelry(c, created.JewelryID)
	c.JSON(http.StatusCreated, created)
}

// adminUpdateVariation godoc
// @Summary Update a variation
// @Tags variations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Variation ID"
// @Param body body object true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variations/{id} [patch]
func (s *Storefront) adminUpdateVariation(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req repository.VariationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.store.UpdateVariation(c.Request.Context(), id, req)
	s.respondVariation(c, v, err)
}

// adminSetOptions godoc
// @Summary Replace the option set of a variation
// @Tags variations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Variation ID"
// @Param body body object true "Option IDs"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variations/{id}/options [put]
func (s *Storefront) adminSetOptions(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req struct {
		OptionIDs []uint `json:"option_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.store.SetVariationOptions(c.Request.Context(), id, req.OptionIDs)
	s.respondVariation(c, v, err)
}

// adminAddOptions godoc
// @Summary Add options to a variation
// @Tags variations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Variation ID"
// @Param body body object true "Option IDs"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variations/{id}/options [post]
func (s *Storefront) adminAddOptions(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req optionIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.store.AddVariationOptions(c.Request.Context(), id, req.OptionIDs)
	s.respondVariation(c, v, err)
}

// adminRemoveOption godoc
// @Summary Remove one option from a variation
// @Tags variations
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Variation ID"
// @Param optionID path integer true "Option ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variations/{id}/options/{optionID} [delete]
func (s *Storefront) adminRemoveOption(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	optionID, ok := adminID(c, "optionID")
	if !ok {
		return
	}
	v, err := s.store.RemoveVariationOption(c.Request.Context(), id, optionID)
	s.respondVariation(c, v, err)
}

// adminClearOptions godoc
// @Summary Remove every option from a variation
// @Tags variations
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Variation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /variations/{id}/options [delete]
func (s *Storefront) adminClearOptions(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	v, err := s.store.ClearVariationOptions(c.Request.Context(), id)
	s.respondVariation(c, v, err)
}

func (s *Storefront) respondVariation(c *gin.Context, v *models.ProductVariation, err error) {
	if err != nil {
		s.adminError(c, err)
		return
	}
	s.invalidateJewelry(c, v.JewelryID)
	c.JSON(http.StatusOK, v)
}

// adminListOrders godoc
// @Summary List orders
// @Tags orders
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Order status"
// @Param user_id query integer false "Buyer"
// @Param page query integer false "Page"
// @Param page_size query integer false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /orders [get]
func (s *Storefront) adminListOrders(c *gin.Context) {
	filter := repository.OrderFilter{}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Status = status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}

	orders, total, err := s.store.ListOrders(c.Request.Context(), filter)
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// adminGetOrder godoc
// @Summary Get an order with its items
// @Tags orders
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Storefront) adminGetOrder(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	order, err := s.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// adminUpdateOrderStatus godoc
// @Summary Change the status of an order
// @Tags orders
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Order ID"
// @Param body body object true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/status [put]
func (s *Storefront) adminUpdateOrderStatus(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	order, err := s.store.UpdateOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		s.adminError(c, err)
		return
	}
	s.notifier.Send(&notify.OrderStatusChanged{OrderID: order.ID, UserID: order.UserID, Status: order.Status})
	c.JSON(http.StatusOK, order)
}

// adminMarkShipped godoc
// @Summary Mark orders as shipped
// @Tags orders
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body object true "Order IDs"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /orders/ship [post]
func (s *Storefront) adminMarkShipped(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	shipped, err := s.store.MarkShipped(c.Request.Context(), req.OrderIDs)
	if err != nil {
		s.adminError(c, err)
		return
	}
	for _, order := range shipped {
		s.notifier.Send(&notify.OrderStatusChanged{OrderID: order.ID, UserID: order.UserID, Status: order.Status})
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(shipped)})
}

// auditFilter reads the shared audit query parameters: action, user_id,
// since (RFC 3339) and limit.
func auditFilter(c *gin.Context) (repository.AuditFilter, error) {
	filter := repository.AuditFilter{Action: c.Query("action")}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid user_id %q", raw)
		}
		filter.UserID = uint(userID)
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid since %q", raw)
		}
		filter.Since = since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

// adminOrderAudit godoc
// @Summary Audit trail of one order
// @Tags audit
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Order ID"
// @Param action query string false "Action"
// @Param limit query integer false "Limit"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /orders/{id}/audit [get]
func (s *Storefront) adminOrderAudit(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	filter, err := auditFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter.EntityID = notify.OrderEntity(id)
	s.respondAudit(c, filter)
}

// adminAudit godoc
// @Summary Search the audit trail
// @Tags audit
// @Produce json
// @Security ApiKeyAuth
// @Param action query string false "Action"
// @Param user_id query integer false "User ID"
// @Param since query string false "RFC 3339 time"
// @Param limit query integer false "Limit"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /audit [get]
func (s *Storefront) adminAudit(c *gin.Context) {
	filter, err := auditFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.respondAudit(c, filter)
}

func (s *Storefront) respondAudit(c *gin.Context, filter repository.AuditFilter) {
	if s.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log is not configured"})
		return
	}
	logs, err := s.audit.FindAuditLogs(c.Request.Context(), filter)
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": logs})
}

// adminListEvents godoc
// @Summary List active events
// @Tags events
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /events [get]
func (s *Storefront) adminListEvents(c *gin.Context) {
	events, err := s.store.ActiveEvents(c.Request.Context())
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// adminCreateEvent godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body object true "Event"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (s *Storefront) adminCreateEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e := models.Event{
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		Location:     req.Location,
		ImagePath:    req.ImagePath,
		MaxAttendees: req.MaxAttendees,
		IsActive:     true,
	}
	if err := s.store.CreateEvent(ctx, &e); err != nil {
		s.adminError(c, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		updated, err := s.store.UpdateEvent(ctx, e.ID, repository.EventUpdate{IsActive: req.IsActive})
		if err != nil {
			s.adminError(c, err)
			return
		}
		e = *updated
	}
	c.JSON(http.StatusCreated, e)
}

// adminUpdateEvent godoc
// @Summary Update an event
// @Tags events
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path integer true "Event ID"
// @Param body body object true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id} [patch]
func (s *Storefront) adminUpdateEvent(c *gin.Context) {
	id, ok := adminID(c, "id")
	if !ok {
		return
	}
	var req repository.EventUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := s.store.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		s.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

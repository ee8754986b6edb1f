package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cartService      *service.CartService
	inventoryService *service.InventoryService
}

// NewHandler creates a new HTTP handler
func NewHandler(cartService *service.CartService, inventoryService *service.InventoryService) *Handler {
	return &Handler{
		cartService:      cartService,
		inventoryService: inventoryService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/api/product/:id/sizes/:color", h.sizesForColor)
	router.POST("/api/product/:id/resolve", h.resolveSelection)
	router.POST("/api/product/:id/add-to-bag", h.addToBag)

	router.GET("/api/cart/:userID", h.getCart)
	router.POST("/update-cart-quantity", h.updateCartQuantity)
	router.POST("/remove-from-cart", h.removeFromCart)
	router.POST("/set-checkout-items", h.setCheckoutItems)
	router.POST("/save-for-later", h.saveForLater)

	seller := router.Group("/api/seller/inventory")
	{
		seller.GET("", h.inventorySnapshot)
		seller.POST("/add", h.inventoryAdd)
		seller.POST("/edit/:id", h.inventoryEdit)
		seller.POST("/quick-edit/:id", h.inventoryQuickEdit)
		seller.POST("/batch-update", h.inventoryBatchUpdate)
		seller.POST("/batch-delete", h.inventoryBatchDelete)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// sizesForColor answers the product page size picker
func (h *Handler) sizesForColor(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid product id"})
		return
	}

	sizes, err := h.cartService.SizesForColor(c.Request.Context(), productID, c.Param("color"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	type sizeInfo struct {
		Stock     int  `json:"stock"`
		Available bool `json:"available"`
	}
	out := make(map[string]sizeInfo, len(sizes))
	for label, st := range sizes {
		out[label] = sizeInfo{Stock: st.Quantity, Available: st.Quantity > 0}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "sizes": out})
}

// resolveSelection resolves a posted partial selection
func (h *Handler) resolveSelection(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid product id"})
		return
	}

	var sel models.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	res, err := h.cartService.ResolveSelection(c.Request.Context(), productID, sel)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "resolution": res})
}

type addToBagRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Color    string `json:"color"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// addToBag commits a ready selection into a cart line
func (h *Handler) addToBag(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid product id"})
		return
	}

	var req addToBagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	sel := models.Selection{Color: req.Color, Size: req.Size, Quantity: req.Quantity}
	line, err := h.cartService.CommitSelection(c.Request.Context(), req.UserID, productID, sel)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "line": line})
}

// getCart returns the reconciled cart for a user
func (h *Handler) getCart(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user id"})
		return
	}

	result, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type updateCartQuantityRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required"`
}

func (h *Handler) updateCartQuantity(c *gin.Context) {
	var req updateCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if err := h.cartService.UpdateQuantity(c.Request.Context(), req.ItemID, req.Quantity); err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type removeFromCartRequest struct {
	ItemID int64 `json:"item_id" binding:"required"`
}

func (h *Handler) removeFromCart(c *gin.Context) {
	var req removeFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if err := h.cartService.Remove(c.Request.Context(), req.ItemID); err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type setCheckoutItemsRequest struct {
	UserID          int64   `json:"user_id" binding:"required"`
	SelectedItemIDs []int64 `json:"selected_item_ids"`
}

func (h *Handler) setCheckoutItems(c *gin.Context) {
	var req setCheckoutItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if err := h.cartService.SetCheckoutItems(c.Request.Context(), req.UserID, req.SelectedItemIDs); err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) saveForLater(c *gin.Context) {
	var req removeFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if err := h.cartService.SaveForLater(c.Request.Context(), req.ItemID); err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// inventorySnapshot returns all rows plus aggregate counts
func (h *Handler) inventorySnapshot(c *gin.Context) {
	rows, summary, err := h.inventoryService.Snapshot(c.Request.Context())
	if err != nil {
		writeSellerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"items":   rows,
		"summary": summary,
	})
}

func (h *Handler) inventoryAdd(c *gin.Context) {
	var req service.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	row, err := h.inventoryService.Add(c.Request.Context(), req)
	if err != nil {
		writeSellerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "item added", "item": row})
}

type inventoryEditRequest struct {
	Quantity  int `json:"stock"`
	Threshold int `json:"low_stock_threshold"`
}

func (h *Handler) inventoryEdit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid id"})
		return
	}

	var req inventoryEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	row, err := h.inventoryService.Edit(c.Request.Context(), id, req.Quantity, req.Threshold)
	if err != nil {
		writeSellerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "item updated", "item": row})
}

type quickEditRequest struct {
	Field string `json:"field" binding:"required"`
	Value int    `json:"value"`
}

func (h *Handler) inventoryQuickEdit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid id"})
		return
	}

	var req quickEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	row, err := h.inventoryService.QuickEdit(c.Request.Context(), id, req.Field, req.Value)
	if err != nil {
		writeSellerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "field updated", "item": row})
}

type batchUpdateRequest struct {
	IDs    []int64 `json:"ids" binding:"required,min=1"`
	Action string  `json:"action" binding:"required"`
	Value  int     `json:"value"`
}

func (h *Handler) inventoryBatchUpdate(c *gin.Context) {
	var req batchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	result, err := h.inventoryService.BatchUpdate(c.Request.Context(), req.IDs, req.Action, req.Value)
	if err != nil {
		writeSellerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "batch update applied",
		"items":   result.Rows,
		"skipped": result.Skipped,
	})
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

func (h *Handler) inventoryBatchDelete(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	deleted, err := h.inventoryService.BatchDelete(c.Request.Context(), req.IDs)
	if err != nil {
		writeSellerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "items deleted",
		"deleted": deleted,
	})
}

// writeDomainError maps shopper-facing domain errors to HTTP statuses
func writeDomainError(c *gin.Context, err error) {
	if se, ok := models.IsSelectionError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   se.Message,
			"kind":    se.Kind,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrUnknownVariant):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, models.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}

// writeSellerError maps seller mutation errors to the
// {status, message} envelope the admin UI consumes
func writeSellerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

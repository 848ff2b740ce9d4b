package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"warung-service/internal/service"
	"warung-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the engine over HTTP. Every error crosses the boundary as
// a structured {kind, message} payload, never as a bare string.
type Handler struct {
	orders  *service.OrderService
	catalog *service.CatalogService
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, catalog *service.CatalogService) *Handler {
	return &Handler{
		orders:  orders,
		catalog: catalog,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/last", h.getLastOrder)
		v1.PUT("/orders/last", h.updateLastOrder)
		v1.DELETE("/orders/last", h.cancelLastOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PUT("/orders/:id", h.updateOrder)
		v1.DELETE("/orders/:id", h.cancelOrder)

		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
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

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, itemErrs, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, itemErrs)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":       result.Order,
		"items":       result.Items,
		"item_errors": itemErrorList(itemErrs),
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": result.Order,
		"items": result.Items,
	})
}

// listOrders returns all orders with their line items
func (h *Handler) listOrders(c *gin.Context) {
	results, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": results})
}

// getLastOrder returns the most recent order
func (h *Handler) getLastOrder(c *gin.Context) {
	result, err := h.orders.LastOrder(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": result.Order,
		"items": result.Items,
	})
}

// updateOrder handles order reconciliation against a desired item list
func (h *Handler) updateOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	h.reconcile(c, orderID)
}

// updateLastOrder reconciles the most recent order; the chat layer's
// "change the last transaction" tool lands here.
func (h *Handler) updateLastOrder(c *gin.Context) {
	last, err := h.orders.LastOrder(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}
	h.reconcile(c, last.Order.ID)
}

func (h *Handler) reconcile(c *gin.Context, orderID int64) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, itemErrs, err := h.orders.UpdateOrder(c.Request.Context(), orderID, &req)
	if err != nil {
		writeError(c, err, itemErrs)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":       result.Order,
		"items":       result.Items,
		"item_errors": itemErrorList(itemErrs),
	})
}

// cancelOrder deletes an order and replenishes stock for its items
func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	h.cancel(c, orderID)
}

// cancelLastOrder cancels the most recent order
func (h *Handler) cancelLastOrder(c *gin.Context) {
	last, err := h.orders.LastOrder(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}
	h.cancel(c, last.Order.ID)
}

func (h *Handler) cancel(c *gin.Context, orderID int64) {
	itemErrs, err := h.orders.CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err, itemErrs)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted":     true,
		"order_id":    orderID,
		"item_errors": itemErrorList(itemErrs),
	})
}

// createProduct adds a product to the catalog
func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// getProduct retrieves a product by ID
func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// listProducts lists the catalog; ?name= narrows to the first
// case-insensitive substring match.
func (h *Handler) listProducts(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		product, err := h.catalog.GetProductByName(c.Request.Context(), name)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product})
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// updateProduct replaces a product's editable fields
func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// deleteProduct removes a product from the catalog
func (h *Handler) deleteProduct(c *gin.Context) {
	productID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), productID); err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "product_id": productID})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"kind":    string(service.KindValidation),
				"message": "invalid id: " + c.Param("id"),
			},
		})
		return 0, false
	}
	return id, true
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"kind":    string(service.KindValidation),
			"message": "invalid request body: " + err.Error(),
		},
	})
}

func writeError(c *gin.Context, err error, itemErrs []service.ItemError) {
	kind := service.KindOf(err)

	message := err.Error()
	var typed *service.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}

	payload := gin.H{
		"error": gin.H{
			"kind":    string(kind),
			"message": message,
		},
	}
	if len(itemErrs) > 0 {
		payload["item_errors"] = itemErrs
	}

	c.JSON(statusForKind(kind), payload)
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindInsufficientStock, service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// itemErrorList keeps the item_errors field an array, never null.
func itemErrorList(errs []service.ItemError) []service.ItemError {
	if errs == nil {
		return []service.ItemError{}
	}
	return errs
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

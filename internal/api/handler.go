package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	reservations *service.ReservationService
	counts       *service.StockCountService
}

// NewHandler creates a new HTTP handler
func NewHandler(reservations *service.ReservationService, counts *service.StockCountService) *Handler {
	return &Handler{
		reservations: reservations,
		counts:       counts,
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

	v1 := router.Group("/api/v1")
	{
		v1.POST("/availability/check", h.checkAvailability)
		v1.POST("/reservations", h.reserve)
		v1.POST("/reservations/:orderId/commit", h.commit)
		v1.POST("/reservations/:orderId/release", h.release)
		v1.GET("/reservations/:orderId", h.getReservations)

		v1.POST("/stock", h.addStock)
		v1.POST("/stock/transfers", h.transferStock)
		v1.GET("/stock/products/:id", h.getProductStock)
		v1.GET("/stock/movements", h.getMovements)

		v1.GET("/warehouses", h.getWarehouses)
		v1.POST("/stock-counts/validate-location", h.validateCountLocation)
		v1.POST("/stock-counts", h.submitStockCount)
		v1.GET("/stock-counts/:id", h.getStockCount)
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

// checkAvailability handles availability queries. Shortages come back
// with a 200: they are an expected answer, not a failure.
func (h *Handler) checkAvailability(c *gin.Context) {
	var req service.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.reservations.CheckAvailability(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// reserve handles reservation requests
func (h *Handler) reserve(c *gin.Context) {
	var req service.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.reservations.Reserve(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": req.OrderID,
		"status":   "reserved",
	})
}

// commit handles reservation commit requests
func (h *Handler) commit(c *gin.Context) {
	orderID := c.Param("orderId")

	if err := h.reservations.Commit(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"status":   "committed",
	})
}

// release handles reservation release requests
func (h *Handler) release(c *gin.Context) {
	orderID := c.Param("orderId")

	if err := h.reservations.Release(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"status":   "released",
	})
}

// getReservations lists reservations for an order
func (h *Handler) getReservations(c *gin.Context) {
	reservations, err := h.reservations.GetReservations(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// addStock handles stock additions
func (h *Handler) addStock(c *gin.Context) {
	var req service.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	movementID, err := h.reservations.AddStock(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"movement_id": movementID})
}

// transferStock handles inter-location transfers
func (h *Handler) transferStock(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	transferID, err := h.reservations.TransferStock(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transfer_id": transferID})
}

// getProductStock lists per-location stock for a product
func (h *Handler) getProductStock(c *gin.Context) {
	stock, err := h.reservations.GetProductStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// getMovements lists recent movements for a product
func (h *Handler) getMovements(c *gin.Context) {
	productID := c.Query("product_id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	movements, err := h.reservations.GetMovements(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

// getWarehouses lists warehouses for the count workflow
func (h *Handler) getWarehouses(c *gin.Context) {
	warehouses, err := h.reservations.GetWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
}

type validateLocationRequest struct {
	WarehouseID string              `json:"warehouse_id" binding:"required"`
	GPS         service.GPSLocation `json:"gps" binding:"required"`
}

// validateCountLocation runs the GPS gate for a count session. A
// too-far result returns the measured distance so the operator knows
// how much closer to move.
func (h *Handler) validateCountLocation(c *gin.Context) {
	var req validateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.counts.ValidateLocation(c.Request.Context(), req.WarehouseID, req.GPS)
	if err != nil {
		var tooFar *service.LocationTooFarError
		if errors.As(err, &tooFar) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "location_too_far",
				"result": result,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// submitStockCount handles count submissions
func (h *Handler) submitStockCount(c *gin.Context) {
	var req service.SubmitStockCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	countID, err := h.counts.SubmitStockCount(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"count_id": countID})
}

// getStockCount retrieves a submitted count
func (h *Handler) getStockCount(c *gin.Context) {
	count, err := h.counts.GetStockCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request body",
		"details": err.Error(),
	})
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Shortages and validation failures carry enough detail for the caller
// to show actionable guidance.
func respondError(c *gin.Context, err error) {
	var insufficient *store.InsufficientStockError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_stock",
			"shortages": insufficient.Shortages,
		})
		return
	}

	var unknownProduct *store.UnknownProductError
	if errors.As(err, &unknownProduct) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "unknown_product",
			"product_id": unknownProduct.ProductID,
		})
		return
	}

	var unknownLocation *store.UnknownLocationError
	if errors.As(err, &unknownLocation) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":       "unknown_location",
			"location_id": unknownLocation.LocationID,
		})
		return
	}

	var tooFar *service.LocationTooFarError
	if errors.As(err, &tooFar) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":           "location_too_far",
			"distance_meters": tooFar.DistanceMeters,
			"max_meters":      tooFar.MaxMeters,
		})
		return
	}

	var missingReason *service.MissingVarianceReasonError
	if errors.As(err, &missingReason) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "missing_variance_reason",
			"product_id": missingReason.ProductID,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrMissingEvidence):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "missing_evidence"})
	case errors.Is(err, service.ErrEmptyCount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "empty_count"})
	case errors.Is(err, service.ErrCountInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "count_in_progress"})
	case errors.Is(err, store.ErrBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "busy", "retryable": true})
	case errors.Is(err, store.ErrLedgerCorruption):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger_corruption"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"details": err.Error(),
		})
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

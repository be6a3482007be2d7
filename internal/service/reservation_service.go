package service

import (
	"context"
	"fmt"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService governs how ordered quantities move between
// available, reserved and committed states of the stock ledger.
type ReservationService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewReservationService creates a new reservation service
func NewReservationService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *ReservationService {
	return &ReservationService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ReserveItemRequest represents one requested product quantity
type ReserveItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CheckAvailabilityRequest represents an availability query
type CheckAvailabilityRequest struct {
	Items      []ReserveItemRequest `json:"items" binding:"required,min=1,dive"`
	LocationID string               `json:"location_id,omitempty"`
}

// AvailabilityResult reports per-product shortages. A shortage is a
// normal outcome, not an error.
type AvailabilityResult struct {
	OK        bool             `json:"ok"`
	Shortages []store.Shortage `json:"shortages"`
}

// ReserveRequest represents a reservation request for an order
type ReserveRequest struct {
	OrderID    string               `json:"order_id" binding:"required"`
	Items      []ReserveItemRequest `json:"items" binding:"required,min=1,dive"`
	LocationID string               `json:"location_id,omitempty"`
}

// AddStockRequest represents a stock addition
type AddStockRequest struct {
	ProductID     string `json:"product_id" binding:"required"`
	LocationID    string `json:"location_id" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	CostPrice     int64  `json:"cost_price,omitempty"`
	ReferenceType string `json:"reference_type" binding:"required"`
	ReferenceID   string `json:"reference_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// TransferRequest represents an inter-location stock transfer
type TransferRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	FromLocationID string `json:"from_location_id" binding:"required"`
	ToLocationID   string `json:"to_location_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	Notes          string `json:"notes,omitempty"`
}

// CheckAvailability computes per-product availability and reports any
// shortages. Pure read; single-location queries go through the Redis
// cache with a database fallback.
func (s *ReservationService) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*AvailabilityResult, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CheckAvailability")
	defer span.End()

	if err := s.validateProducts(ctx, req.Items); err != nil {
		return nil, err
	}

	shortages := make([]store.Shortage, 0)
	for _, item := range req.Items {
		available, err := s.availability(ctx, item.ProductID, req.LocationID)
		if err != nil {
			return nil, fmt.Errorf("failed to read availability: %w", err)
		}
		if available < item.Quantity {
			shortages = append(shortages, store.Shortage{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
				Short:     item.Quantity - available,
			})
		}
	}

	return &AvailabilityResult{OK: len(shortages) == 0, Shortages: shortages}, nil
}

func (s *ReservationService) availability(ctx context.Context, productID, locationID string) (int, error) {
	if locationID == "" {
		return s.store.AvailabilityTotal(ctx, productID)
	}

	onHand, reserved, found, err := s.redis.GetStock(ctx, productID, locationID)
	if err == nil && found {
		return onHand - reserved, nil
	}
	if err != nil {
		s.logger.Warn("Stock cache read failed, falling back to DB",
			zap.String("product_id", productID),
			zap.Error(err))
	}
	return s.store.AvailabilityAt(ctx, productID, locationID)
}

// Reserve earmarks stock for an order. All items succeed or none do.
func (s *ReservationService) Reserve(ctx context.Context, req *ReserveRequest) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReserveLatency.Observe(time.Since(start).Seconds())
	}()

	if err := s.validateProducts(ctx, req.Items); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("unknown_product").Inc()
		return err
	}

	items := make([]store.ReserveItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = store.ReserveItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	applied, err := s.store.Reserve(ctx, req.OrderID, items, req.LocationID)
	if err != nil {
		util.ReservationsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return err
	}

	util.ReservationsCreatedTotal.Inc()
	s.logger.Info("Stock reserved",
		zap.String("order_id", req.OrderID),
		zap.Int("items", len(applied)))

	s.mirrorApplied(ctx, applied, s.redis.MirrorReserve)

	event := &models.StockReservedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockReserved),
		OrderID:   req.OrderID,
		Items:     toEventItems(applied),
	}
	if err := s.eventPublisher.PublishStockReserved(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockReserved event", zap.Error(err))
	}

	return nil
}

// Commit deducts reserved stock for an order. Idempotent; an order with
// no active reservations is a no-op.
func (s *ReservationService) Commit(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.Commit")
	defer span.End()

	applied, err := s.store.CommitOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		s.logger.Info("Commit was a no-op, no active reservations",
			zap.String("order_id", orderID))
		return nil
	}

	util.StockCommitsTotal.Inc()
	s.logger.Info("Stock committed",
		zap.String("order_id", orderID),
		zap.Int("items", len(applied)))

	s.mirrorApplied(ctx, applied, s.redis.MirrorCommit)

	event := &models.StockCommittedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockCommitted),
		OrderID:   orderID,
		Items:     toEventItems(applied),
	}
	if err := s.eventPublisher.PublishStockCommitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockCommitted event", zap.Error(err))
	}

	return nil
}

// Release returns reserved stock to the pool. Idempotent; an order with
// no active reservations is a no-op, including after a commit.
func (s *ReservationService) Release(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.Release")
	defer span.End()

	applied, err := s.store.ReleaseOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		s.logger.Info("Release was a no-op, no active reservations",
			zap.String("order_id", orderID))
		return nil
	}

	util.StockReleasesTotal.Inc()
	s.logger.Info("Stock released",
		zap.String("order_id", orderID),
		zap.Int("items", len(applied)))

	s.mirrorApplied(ctx, applied, s.redis.MirrorRelease)

	event := &models.StockReleasedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockReleased),
		OrderID:   orderID,
		Items:     toEventItems(applied),
	}
	if err := s.eventPublisher.PublishStockReleased(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockReleased event", zap.Error(err))
	}

	return nil
}

// AddStock records incoming stock from purchases, production or
// adjustments. Returns the movement ID.
func (s *ReservationService) AddStock(ctx context.Context, req *AddStockRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.AddStock")
	defer span.End()

	if _, err := s.store.GetProductByID(ctx, req.ProductID); err != nil {
		return "", err
	}
	if _, err := s.store.GetWarehouseByID(ctx, req.LocationID); err != nil {
		return "", err
	}

	movementID, err := s.store.AddStock(ctx, store.AddStockParams{
		ProductID:     req.ProductID,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		CostPrice:     req.CostPrice,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
	})
	if err != nil {
		return "", err
	}

	util.StockAddedUnits.Add(float64(req.Quantity))
	s.logger.Info("Stock added",
		zap.String("product_id", req.ProductID),
		zap.String("location_id", req.LocationID),
		zap.Int("quantity", req.Quantity))

	s.refreshCache(ctx, req.ProductID, req.LocationID)
	return movementID, nil
}

// TransferStock moves available stock between two locations. Returns
// the transfer ID shared by the paired movements.
func (s *ReservationService) TransferStock(ctx context.Context, req *TransferRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.TransferStock")
	defer span.End()

	if _, err := s.store.GetProductByID(ctx, req.ProductID); err != nil {
		return "", err
	}
	for _, loc := range []string{req.FromLocationID, req.ToLocationID} {
		if _, err := s.store.GetWarehouseByID(ctx, loc); err != nil {
			return "", err
		}
	}

	transferID, err := s.store.TransferStock(ctx, store.TransferParams{
		ProductID:      req.ProductID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Quantity:       req.Quantity,
		Notes:          req.Notes,
	})
	if err != nil {
		return "", err
	}

	util.StockTransfersTotal.Inc()
	s.logger.Info("Stock transferred",
		zap.String("product_id", req.ProductID),
		zap.String("from", req.FromLocationID),
		zap.String("to", req.ToLocationID),
		zap.Int("quantity", req.Quantity))

	s.refreshCache(ctx, req.ProductID, req.FromLocationID)
	s.refreshCache(ctx, req.ProductID, req.ToLocationID)

	event := &models.StockTransferredEvent{
		BaseEvent:      newBaseEvent(models.EventTypeStockTransferred),
		TransferID:     transferID,
		ProductID:      req.ProductID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Quantity:       req.Quantity,
	}
	if err := s.eventPublisher.PublishStockTransferred(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockTransferred event", zap.Error(err))
	}

	return transferID, nil
}

// GetProductStock retrieves per-location stock levels for a product
func (s *ReservationService) GetProductStock(ctx context.Context, productID string) ([]models.ProductStock, error) {
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.GetProductStock(ctx, productID)
}

// GetReservations retrieves all reservations tied to an order
func (s *ReservationService) GetReservations(ctx context.Context, orderID string) ([]models.Reservation, error) {
	return s.store.GetReservationsByOrderID(ctx, orderID)
}

// GetMovements retrieves recent movements for a product
func (s *ReservationService) GetMovements(ctx context.Context, productID string, limit int) ([]models.StockMovement, error) {
	return s.store.GetMovements(ctx, productID, limit)
}

// GetWarehouses retrieves all warehouses
func (s *ReservationService) GetWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return s.store.GetWarehouses(ctx)
}

// SyncLedgerToRedis warms the availability cache from the database
func (s *ReservationService) SyncLedgerToRedis(ctx context.Context) error {
	s.logger.Info("Starting ledger sync to Redis")

	entries, err := s.store.GetAllLedgerEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}

	for _, e := range entries {
		if err := s.redis.SetStock(ctx, e.ProductID, e.LocationID, e.QuantityOnHand, e.QuantityReserved); err != nil {
			s.logger.Error("Failed to cache ledger row",
				zap.String("product_id", e.ProductID),
				zap.String("location_id", e.LocationID),
				zap.Error(err))
		}
	}

	s.logger.Info("Ledger sync completed", zap.Int("rows", len(entries)))
	return nil
}

// validateProducts ensures every referenced product exists
func (s *ReservationService) validateProducts(ctx context.Context, items []ReserveItemRequest) error {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return &store.UnknownProductError{ProductID: id}
		}
	}
	return nil
}

// mirrorApplied pushes ledger deltas into the cache, best effort
func (s *ReservationService) mirrorApplied(ctx context.Context, applied []store.AppliedItem, mirror func(context.Context, string, string, int) error) {
	for _, item := range applied {
		if err := mirror(ctx, item.ProductID, item.LocationID, item.Quantity); err != nil {
			s.logger.Warn("Failed to mirror ledger change to cache",
				zap.String("product_id", item.ProductID),
				zap.String("location_id", item.LocationID),
				zap.Error(err))
		}
	}
}

// refreshCache overwrites the cached hash from the database row
func (s *ReservationService) refreshCache(ctx context.Context, productID, locationID string) {
	entry, err := s.store.GetLedgerEntry(ctx, productID, locationID)
	if err != nil {
		s.logger.Warn("Failed to refresh stock cache",
			zap.String("product_id", productID),
			zap.String("location_id", locationID),
			zap.Error(err))
		return
	}
	if err := s.redis.SetStock(ctx, productID, locationID, entry.QuantityOnHand, entry.QuantityReserved); err != nil {
		s.logger.Warn("Failed to write stock cache",
			zap.String("product_id", productID),
			zap.String("location_id", locationID),
			zap.Error(err))
	}
}

func toEventItems(applied []store.AppliedItem) []models.StockItemData {
	items := make([]models.StockItemData, len(applied))
	for i, a := range applied {
		items[i] = models.StockItemData{
			ProductID:  a.ProductID,
			LocationID: a.LocationID,
			Quantity:   a.Quantity,
		}
	}
	return items
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func failureReason(err error) string {
	switch {
	case isInsufficientStock(err):
		return "insufficient_stock"
	case isBusy(err):
		return "busy"
	default:
		return "error"
	}
}

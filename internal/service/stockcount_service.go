package service

import (
	"context"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockCountService governs location-validated physical counts and
// their authoritative application to the stock ledger.
type StockCountService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	geofenceRadius float64
	countLockTTL   time.Duration
}

// NewStockCountService creates a new stock count service
func NewStockCountService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	geofenceRadiusMeters float64,
	countLockTTL time.Duration,
) *StockCountService {
	return &StockCountService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		geofenceRadius: geofenceRadiusMeters,
		countLockTTL:   countLockTTL,
	}
}

// GPSLocation is a device position reported by the count workflow
type GPSLocation struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// CountItemRequest is one counted line as submitted by the operator
type CountItemRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	SystemQuantity  int    `json:"system_quantity" binding:"min=0"`
	CountedQuantity int    `json:"counted_quantity" binding:"min=0"`
	VarianceReason  string `json:"variance_reason,omitempty"`
}

// SubmitStockCountRequest represents a completed count session
type SubmitStockCountRequest struct {
	WarehouseID string             `json:"warehouse_id" binding:"required"`
	GPS         GPSLocation        `json:"gps" binding:"required"`
	Items       []CountItemRequest `json:"items" binding:"required,min=1,dive"`
	PhotoRef    string             `json:"photo_ref"`
	Notes       string             `json:"notes,omitempty"`
}

// ValidateLocationResult reports the measured distance for the GPS gate
type ValidateLocationResult struct {
	DistanceMeters float64 `json:"distance_meters"`
	MaxMeters      float64 `json:"max_meters"`
	WithinRange    bool    `json:"within_range"`
}

// ValidateLocation measures the operator's distance to the warehouse.
// The count workflow cannot advance past location validation until the
// device is inside the geofence; the measured distance is surfaced so
// the operator knows how far to move.
func (s *StockCountService) ValidateLocation(ctx context.Context, warehouseID string, gps GPSLocation) (*ValidateLocationResult, error) {
	ctx, span := util.StartSpan(ctx, "StockCountService.ValidateLocation")
	defer span.End()

	warehouse, err := s.store.GetWarehouseByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	distance := distanceMeters(gps.Latitude, gps.Longitude, warehouse.Latitude, warehouse.Longitude)
	result := &ValidateLocationResult{
		DistanceMeters: distance,
		MaxMeters:      s.geofenceRadius,
		WithinRange:    distance <= s.geofenceRadius,
	}
	if !result.WithinRange {
		return result, &LocationTooFarError{DistanceMeters: distance, MaxMeters: s.geofenceRadius}
	}
	return result, nil
}

// SubmitStockCount validates and applies a completed count session.
// Validation happens before any transaction starts; the count record
// and its ledger adjustments then commit atomically. Counted values
// are authoritative and overwrite on-hand quantities.
func (s *StockCountService) SubmitStockCount(ctx context.Context, req *SubmitStockCountRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "StockCountService.SubmitStockCount")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CountSubmitLatency.Observe(time.Since(start).Seconds())
	}()

	if err := validateCountRequest(req); err != nil {
		util.CountsRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		return "", err
	}

	if _, err := s.ValidateLocation(ctx, req.WarehouseID, req.GPS); err != nil {
		util.CountsRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		return "", err
	}

	locked, err := s.redis.AcquireCountLock(ctx, req.WarehouseID, s.countLockTTL)
	if err != nil {
		s.logger.Warn("Count lock unavailable, proceeding without it",
			zap.String("warehouse_id", req.WarehouseID),
			zap.Error(err))
	} else if !locked {
		util.CountsRejectedTotal.WithLabelValues("count_in_progress").Inc()
		return "", ErrCountInProgress
	} else {
		defer func() {
			if err := s.redis.ReleaseCountLock(context.Background(), req.WarehouseID); err != nil {
				s.logger.Warn("Failed to release count lock",
					zap.String("warehouse_id", req.WarehouseID),
					zap.Error(err))
			}
		}()
	}

	count := &models.StockCount{
		ID:          uuid.New().String(),
		WarehouseID: req.WarehouseID,
		Latitude:    req.GPS.Latitude,
		Longitude:   req.GPS.Longitude,
		PhotoRef:    req.PhotoRef,
		Notes:       req.Notes,
		Items:       make([]models.StockCountItem, len(req.Items)),
	}
	varianceUnits := 0
	for i, item := range req.Items {
		variance := item.CountedQuantity - item.SystemQuantity
		if variance < 0 {
			varianceUnits -= variance
		} else {
			varianceUnits += variance
		}
		count.Items[i] = models.StockCountItem{
			ProductID:       item.ProductID,
			SystemQuantity:  item.SystemQuantity,
			CountedQuantity: item.CountedQuantity,
			Variance:        variance,
			VarianceReason:  item.VarianceReason,
		}
	}

	shortfalls, err := s.store.SubmitStockCount(ctx, count)
	if err != nil {
		return "", err
	}

	util.CountsSubmittedTotal.Inc()
	util.CountVarianceUnits.Add(float64(varianceUnits))
	s.logger.Info("Stock count submitted",
		zap.String("count_id", count.ID),
		zap.String("warehouse_id", count.WarehouseID),
		zap.Int("items", len(count.Items)),
		zap.Int("variance_units", varianceUnits))

	for _, item := range count.Items {
		s.refreshCache(ctx, item.ProductID, count.WarehouseID)
	}

	event := &models.StockCountSubmittedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeStockCountSubmitted),
		CountID:       count.ID,
		WarehouseID:   count.WarehouseID,
		ItemCount:     len(count.Items),
		VarianceUnits: varianceUnits,
	}
	if err := s.eventPublisher.PublishStockCountSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockCountSubmitted event", zap.Error(err))
	}

	for _, sf := range shortfalls {
		util.OverReservationAlertsTotal.Inc()
		s.logger.Error("Count revealed less stock than is reserved",
			zap.String("product_id", sf.ProductID),
			zap.String("location_id", sf.LocationID),
			zap.Int("on_hand", sf.OnHand),
			zap.Int("reserved", sf.Reserved))

		alert := &models.StockShortfallAlertEvent{
			BaseEvent:  newBaseEvent(models.EventTypeStockShortfallAlert),
			ProductID:  sf.ProductID,
			LocationID: sf.LocationID,
			OnHand:     sf.OnHand,
			Reserved:   sf.Reserved,
		}
		if err := s.eventPublisher.PublishStockShortfallAlert(ctx, alert); err != nil {
			s.logger.Error("Failed to publish StockShortfallAlert event", zap.Error(err))
		}
	}

	return count.ID, nil
}

// GetStockCount retrieves a submitted count
func (s *StockCountService) GetStockCount(ctx context.Context, countID string) (*models.StockCount, error) {
	return s.store.GetStockCount(ctx, countID)
}

func (s *StockCountService) refreshCache(ctx context.Context, productID, locationID string) {
	entry, err := s.store.GetLedgerEntry(ctx, productID, locationID)
	if err != nil {
		return
	}
	if err := s.redis.SetStock(ctx, productID, locationID, entry.QuantityOnHand, entry.QuantityReserved); err != nil {
		s.logger.Warn("Failed to refresh stock cache after count",
			zap.String("product_id", productID),
			zap.Error(err))
	}
}

// validateCountRequest enforces count preconditions before any
// transaction starts: photo evidence present, at least one item, and a
// reason on every line whose count disagrees with the system quantity.
func validateCountRequest(req *SubmitStockCountRequest) error {
	if req.PhotoRef == "" {
		return ErrMissingEvidence
	}
	if len(req.Items) == 0 {
		return ErrEmptyCount
	}
	for _, item := range req.Items {
		if item.CountedQuantity < 0 {
			return &InvalidQuantityError{Field: "counted_quantity", Value: item.CountedQuantity}
		}
		if item.CountedQuantity != item.SystemQuantity && item.VarianceReason == "" {
			return &MissingVarianceReasonError{ProductID: item.ProductID}
		}
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case err == ErrMissingEvidence:
		return "missing_evidence"
	case err == ErrEmptyCount:
		return "empty_count"
	default:
		if _, ok := err.(*MissingVarianceReasonError); ok {
			return "missing_variance_reason"
		}
		if _, ok := err.(*LocationTooFarError); ok {
			return "location_too_far"
		}
		return "invalid"
	}
}

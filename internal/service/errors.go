package service

import (
	"errors"
	"fmt"

	"inventory-service/internal/store"
)

// ErrMissingEvidence rejects a count submitted without a photo reference.
var ErrMissingEvidence = errors.New("stock count requires photo evidence")

// ErrEmptyCount rejects a count with no items.
var ErrEmptyCount = errors.New("stock count has no items")

// ErrCountInProgress indicates another count session already holds the
// warehouse lock. Transient; the operator retries later.
var ErrCountInProgress = errors.New("another count is in progress for this warehouse")

// LocationTooFarError is returned when the operator's GPS position is
// outside the warehouse geofence. Carries the measured distance so the
// caller can tell the operator how far to move.
type LocationTooFarError struct {
	DistanceMeters float64
	MaxMeters      float64
}

func (e *LocationTooFarError) Error() string {
	return fmt.Sprintf("location is %.0fm from warehouse, max %.0fm", e.DistanceMeters, e.MaxMeters)
}

// MissingVarianceReasonError is returned when a counted line disagrees
// with the system quantity but carries no justification.
type MissingVarianceReasonError struct {
	ProductID string
}

func (e *MissingVarianceReasonError) Error() string {
	return fmt.Sprintf("variance on product %s requires a reason", e.ProductID)
}

// InvalidQuantityError rejects non-positive or negative quantities
// before any transaction starts.
type InvalidQuantityError struct {
	Field string
	Value int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid %s: %d", e.Field, e.Value)
}

func isInsufficientStock(err error) bool {
	var target *store.InsufficientStockError
	return errors.As(err, &target)
}

func isBusy(err error) bool {
	return errors.Is(err, store.ErrBusy)
}

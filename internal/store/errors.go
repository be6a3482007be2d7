package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrBusy indicates a lock wait or serialization conflict. Safe to
// retry with backoff.
var ErrBusy = errors.New("ledger row busy, retry")

// ErrLedgerCorruption indicates a ledger invariant violation
// (reserved > on hand, or a negative quantity) produced by a mutator.
// It is never clamped; the enclosing transaction aborts.
var ErrLedgerCorruption = errors.New("ledger invariant violated")

// UnknownProductError indicates a reference to a product that does not exist.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product: %s", e.ProductID)
}

// UnknownLocationError indicates a reference to a location that does not exist.
type UnknownLocationError struct {
	LocationID string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("unknown location: %s", e.LocationID)
}

// Shortage describes one product that could not be satisfied.
type Shortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Short     int    `json:"short"`
}

// InsufficientStockError is a business condition, not a defect. It is
// returned to the caller for display and never retried automatically.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Shortages))
}

// mapTxError translates driver-level lock failures into ErrBusy so
// callers can distinguish transient contention from real failures.
// 55P03 lock_not_available, 40P01 deadlock_detected, 40001 serialization_failure.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03", "40P01", "40001":
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
	}
	return err
}

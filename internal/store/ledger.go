package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"inventory-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReserveItem is one line of a reservation request.
type ReserveItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AppliedItem describes one ledger mutation applied by commit/release,
// used by callers to publish events and refresh caches.
type AppliedItem struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

// AddStockParams carries the inputs for a stock addition.
type AddStockParams struct {
	ProductID     string
	LocationID    string
	Quantity      int
	CostPrice     int64
	ReferenceType string
	ReferenceID   string
	Notes         string
}

// TransferParams carries the inputs for an inter-location transfer.
type TransferParams struct {
	ProductID      string
	FromLocationID string
	ToLocationID   string
	Quantity       int
	Notes          string
}

// Reserve creates a reservation per item and increments each target
// ledger row's reserved quantity, all inside one transaction. The batch
// is all-or-nothing: the first unsatisfiable item aborts everything.
// Rows are locked FOR UPDATE in ascending (product_id, location_id)
// order so concurrent reservations cannot deadlock or double-promise
// the same shortfall. Returns the per-item locations that were chosen.
func (s *Store) Reserve(ctx context.Context, orderID string, items []ReserveItem, locationID string) ([]AppliedItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapTxError(err)
	}
	defer tx.Rollback()

	sorted := make([]ReserveItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	applied := make([]AppliedItem, 0, len(sorted))
	for _, item := range sorted {
		var target string

		if locationID != "" {
			entry, found, err := lockLedgerRow(ctx, tx, item.ProductID, locationID)
			if err != nil {
				return nil, mapTxError(err)
			}
			available := 0
			if found {
				available = entry.Available()
			}
			if available < item.Quantity {
				return nil, shortageError(item, available)
			}
			target = locationID
		} else {
			entries, err := lockLedgerRowsByProduct(ctx, tx, item.ProductID)
			if err != nil {
				return nil, mapTxError(err)
			}
			picked, total, ok := pickLocation(entries, item.Quantity)
			if !ok {
				return nil, shortageError(item, total)
			}
			target = picked
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservations (id, order_id, product_id, location_id, quantity, status)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), orderID, item.ProductID, target, item.Quantity,
			models.ReservationStatusReserved)
		if err != nil {
			return nil, mapTxError(err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE stock_ledger
			SET quantity_reserved = quantity_reserved + $1, last_updated = NOW()
			WHERE product_id = $2 AND location_id = $3`,
			item.Quantity, item.ProductID, target)
		if err != nil {
			return nil, mapTxError(err)
		}

		if err := verifyLedgerRow(ctx, tx, item.ProductID, target); err != nil {
			return nil, err
		}

		applied = append(applied, AppliedItem{
			ProductID:  item.ProductID,
			LocationID: target,
			Quantity:   item.Quantity,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return applied, nil
}

// CommitOrder transitions every reserved reservation for the order to
// committed: stock leaves the building. On-hand and reserved both drop
// by the reserved quantity and an OUT movement is appended per item.
// Idempotent: already-terminal reservations are not revisited, and an
// unknown order is a no-op.
func (s *Store) CommitOrder(ctx context.Context, orderID string) ([]AppliedItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapTxError(err)
	}
	defer tx.Rollback()

	reservations, err := lockActiveReservations(ctx, tx, orderID)
	if err != nil {
		return nil, mapTxError(err)
	}
	if len(reservations) == 0 {
		return nil, nil
	}

	applied := make([]AppliedItem, 0, len(reservations))
	for _, rsv := range reservations {
		if _, _, err := lockLedgerRow(ctx, tx, rsv.ProductID, rsv.LocationID); err != nil {
			return nil, mapTxError(err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE stock_ledger
			SET quantity_on_hand = quantity_on_hand - $1,
			    quantity_reserved = quantity_reserved - $1,
			    last_updated = NOW()
			WHERE product_id = $2 AND location_id = $3`,
			rsv.Quantity, rsv.ProductID, rsv.LocationID)
		if err != nil {
			return nil, mapTxError(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: reservation %s has no ledger row", ErrLedgerCorruption, rsv.ID)
		}

		if err := insertMovement(ctx, tx, &models.StockMovement{
			ID:            uuid.New().String(),
			ProductID:     rsv.ProductID,
			LocationID:    rsv.LocationID,
			Type:          models.MovementTypeOut,
			Quantity:      rsv.Quantity,
			ReferenceType: models.ReferenceTypeOrder,
			ReferenceID:   orderID,
		}); err != nil {
			return nil, mapTxError(err)
		}

		if err := setReservationStatus(ctx, tx, rsv.ID, models.ReservationStatusCommitted); err != nil {
			return nil, mapTxError(err)
		}

		if err := verifyLedgerRow(ctx, tx, rsv.ProductID, rsv.LocationID); err != nil {
			return nil, err
		}

		applied = append(applied, AppliedItem{
			ProductID:  rsv.ProductID,
			LocationID: rsv.LocationID,
			Quantity:   rsv.Quantity,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return applied, nil
}

// ReleaseOrder transitions every reserved reservation for the order to
// released, returning the hold to the pool. On-hand is untouched and no
// movement is written. Idempotent; unknown order is a no-op.
func (s *Store) ReleaseOrder(ctx context.Context, orderID string) ([]AppliedItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapTxError(err)
	}
	defer tx.Rollback()

	reservations, err := lockActiveReservations(ctx, tx, orderID)
	if err != nil {
		return nil, mapTxError(err)
	}
	if len(reservations) == 0 {
		return nil, nil
	}

	applied := make([]AppliedItem, 0, len(reservations))
	for _, rsv := range reservations {
		if _, _, err := lockLedgerRow(ctx, tx, rsv.ProductID, rsv.LocationID); err != nil {
			return nil, mapTxError(err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE stock_ledger
			SET quantity_reserved = quantity_reserved - $1, last_updated = NOW()
			WHERE product_id = $2 AND location_id = $3`,
			rsv.Quantity, rsv.ProductID, rsv.LocationID)
		if err != nil {
			return nil, mapTxError(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: reservation %s has no ledger row", ErrLedgerCorruption, rsv.ID)
		}

		if err := setReservationStatus(ctx, tx, rsv.ID, models.ReservationStatusReleased); err != nil {
			return nil, mapTxError(err)
		}

		if err := verifyLedgerRow(ctx, tx, rsv.ProductID, rsv.LocationID); err != nil {
			return nil, err
		}

		applied = append(applied, AppliedItem{
			ProductID:  rsv.ProductID,
			LocationID: rsv.LocationID,
			Quantity:   rsv.Quantity,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return applied, nil
}

// AddStock increments on-hand stock, creating the ledger row on first
// addition, and appends an IN movement. Returns the movement ID.
func (s *Store) AddStock(ctx context.Context, params AddStockParams) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", mapTxError(err)
	}
	defer tx.Rollback()

	if err := upsertLedgerQuantity(ctx, tx, params.ProductID, params.LocationID, params.Quantity); err != nil {
		return "", mapTxError(err)
	}

	movementID := uuid.New().String()
	if err := insertMovement(ctx, tx, &models.StockMovement{
		ID:            movementID,
		ProductID:     params.ProductID,
		LocationID:    params.LocationID,
		Type:          models.MovementTypeIn,
		Quantity:      params.Quantity,
		CostPrice:     params.CostPrice,
		ReferenceType: params.ReferenceType,
		ReferenceID:   params.ReferenceID,
		Notes:         params.Notes,
	}); err != nil {
		return "", mapTxError(err)
	}

	if err := verifyLedgerRow(ctx, tx, params.ProductID, params.LocationID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", mapTxError(err)
	}
	return movementID, nil
}

// TransferStock moves available stock between locations, writing paired
// TRANSFER_OUT / TRANSFER_IN movements that share one transfer ID.
// Availability at the source accounts for that location's reservations.
func (s *Store) TransferStock(ctx context.Context, params TransferParams) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", mapTxError(err)
	}
	defer tx.Rollback()

	// Lock both rows in ascending location order to avoid deadlocks
	// between opposing transfers.
	first, second := params.FromLocationID, params.ToLocationID
	if second < first {
		first, second = second, first
	}
	var source *models.StockLedgerEntry
	for _, loc := range []string{first, second} {
		entry, found, err := lockLedgerRow(ctx, tx, params.ProductID, loc)
		if err != nil {
			return "", mapTxError(err)
		}
		if loc == params.FromLocationID && found {
			source = entry
		}
	}

	available := 0
	if source != nil {
		available = source.Available()
	}
	if available < params.Quantity {
		return "", &InsufficientStockError{Shortages: []Shortage{{
			ProductID: params.ProductID,
			Requested: params.Quantity,
			Available: available,
			Short:     params.Quantity - available,
		}}}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stock_ledger
		SET quantity_on_hand = quantity_on_hand - $1, last_updated = NOW()
		WHERE product_id = $2 AND location_id = $3`,
		params.Quantity, params.ProductID, params.FromLocationID)
	if err != nil {
		return "", mapTxError(err)
	}

	if err := upsertLedgerQuantity(ctx, tx, params.ProductID, params.ToLocationID, params.Quantity); err != nil {
		return "", mapTxError(err)
	}

	transferID := uuid.New().String()
	outMovement := &models.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     params.ProductID,
		LocationID:    params.FromLocationID,
		Type:          models.MovementTypeTransferOut,
		Quantity:      params.Quantity,
		ReferenceType: models.ReferenceTypeTransfer,
		ReferenceID:   transferID,
		Notes:         params.Notes,
	}
	inMovement := &models.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     params.ProductID,
		LocationID:    params.ToLocationID,
		Type:          models.MovementTypeTransferIn,
		Quantity:      params.Quantity,
		ReferenceType: models.ReferenceTypeTransfer,
		ReferenceID:   transferID,
		Notes:         params.Notes,
	}
	for _, m := range []*models.StockMovement{outMovement, inMovement} {
		if err := insertMovement(ctx, tx, m); err != nil {
			return "", mapTxError(err)
		}
	}

	for _, loc := range []string{params.FromLocationID, params.ToLocationID} {
		if err := verifyLedgerRow(ctx, tx, params.ProductID, loc); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", mapTxError(err)
	}
	return transferID, nil
}

// AvailabilityAt returns available stock for a product at one location.
func (s *Store) AvailabilityAt(ctx context.Context, productID, locationID string) (int, error) {
	var available int
	err := s.db.GetContext(ctx, &available, `
		SELECT COALESCE(SUM(quantity_on_hand - quantity_reserved), 0)
		FROM stock_ledger
		WHERE product_id = $1 AND location_id = $2`,
		productID, locationID)
	return available, err
}

// AvailabilityTotal returns available stock for a product across all locations.
func (s *Store) AvailabilityTotal(ctx context.Context, productID string) (int, error) {
	var available int
	err := s.db.GetContext(ctx, &available, `
		SELECT COALESCE(SUM(quantity_on_hand - quantity_reserved), 0)
		FROM stock_ledger
		WHERE product_id = $1`, productID)
	return available, err
}

func shortageError(item ReserveItem, available int) error {
	short := item.Quantity - available
	if short < 0 {
		// Total availability can exceed the request while no single
		// location covers it; the request still fails.
		short = 0
	}
	return &InsufficientStockError{Shortages: []Shortage{{
		ProductID: item.ProductID,
		Requested: item.Quantity,
		Available: available,
		Short:     short,
	}}}
}

// pickLocation selects the lowest location ID whose availability covers
// the requested quantity. Entries must be sorted by location ID. The
// second return is the total availability across entries, reported in
// shortages when no single location qualifies.
func pickLocation(entries []models.StockLedgerEntry, quantity int) (string, int, bool) {
	total := 0
	picked := ""
	for _, e := range entries {
		avail := e.Available()
		if avail > 0 {
			total += avail
		}
		if picked == "" && avail >= quantity {
			picked = e.LocationID
		}
	}
	return picked, total, picked != ""
}

func lockLedgerRow(ctx context.Context, tx *sqlx.Tx, productID, locationID string) (*models.StockLedgerEntry, bool, error) {
	var entry models.StockLedgerEntry
	err := tx.GetContext(ctx, &entry, `
		SELECT * FROM stock_ledger
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`, productID, locationID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func lockLedgerRowsByProduct(ctx context.Context, tx *sqlx.Tx, productID string) ([]models.StockLedgerEntry, error) {
	var entries []models.StockLedgerEntry
	err := tx.SelectContext(ctx, &entries, `
		SELECT * FROM stock_ledger
		WHERE product_id = $1
		ORDER BY location_id
		FOR UPDATE`, productID)
	return entries, err
}

func lockActiveReservations(ctx context.Context, tx *sqlx.Tx, orderID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := tx.SelectContext(ctx, &reservations, `
		SELECT * FROM reservations
		WHERE order_id = $1 AND status = $2
		ORDER BY product_id, location_id
		FOR UPDATE`, orderID, models.ReservationStatusReserved)
	return reservations, err
}

func setReservationStatus(ctx context.Context, tx *sqlx.Tx, reservationID, status string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2",
		status, reservationID)
	return err
}

func upsertLedgerQuantity(ctx context.Context, tx *sqlx.Tx, productID, locationID string, delta int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_ledger (product_id, location_id, quantity_on_hand, quantity_reserved, last_updated)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity_on_hand = stock_ledger.quantity_on_hand + EXCLUDED.quantity_on_hand,
		              last_updated = NOW()`,
		productID, locationID, delta)
	return err
}

func insertMovement(ctx context.Context, tx *sqlx.Tx, m *models.StockMovement) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, location_id, type, quantity, cost_price, reference_type, reference_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ProductID, m.LocationID, m.Type, m.Quantity, m.CostPrice,
		m.ReferenceType, m.ReferenceID, m.Notes)
	return err
}

// verifyLedgerRow re-reads a mutated row and aborts the transaction if
// a reservation-engine invariant no longer holds.
func verifyLedgerRow(ctx context.Context, tx *sqlx.Tx, productID, locationID string) error {
	var entry models.StockLedgerEntry
	err := tx.GetContext(ctx, &entry,
		"SELECT * FROM stock_ledger WHERE product_id = $1 AND location_id = $2",
		productID, locationID)
	if err != nil {
		return mapTxError(err)
	}
	if entry.QuantityOnHand < 0 || entry.QuantityReserved < 0 || entry.QuantityReserved > entry.QuantityOnHand {
		return fmt.Errorf("%w: product=%s location=%s on_hand=%d reserved=%d",
			ErrLedgerCorruption, productID, locationID,
			entry.QuantityOnHand, entry.QuantityReserved)
	}
	return nil
}

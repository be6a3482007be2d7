package store

import (
	"context"
	"fmt"
	"sort"

	"inventory-service/internal/models"

	"github.com/google/uuid"
)

// OverReservation flags a ledger row an authoritative count left with
// more stock reserved than on hand. Reservations are kept intact; the
// caller alerts instead.
type OverReservation struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	OnHand     int    `json:"on_hand"`
	Reserved   int    `json:"reserved"`
}

// SubmitStockCount persists a count record and applies its results to
// the ledger in one transaction. Counted quantities are authoritative:
// they overwrite on-hand values, and each non-zero adjustment gets a
// COUNT movement sized by the delta actually applied (the ledger may
// have moved since the operator's snapshot was taken).
func (s *Store) SubmitStockCount(ctx context.Context, count *models.StockCount) ([]OverReservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapTxError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_counts (id, warehouse_id, latitude, longitude, photo_ref, notes)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		count.ID, count.WarehouseID, count.Latitude, count.Longitude,
		count.PhotoRef, count.Notes)
	if err != nil {
		return nil, mapTxError(err)
	}

	// Lock ledger rows in product order; item rows keep submission order.
	order := make([]int, len(count.Items))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return count.Items[order[a]].ProductID < count.Items[order[b]].ProductID
	})

	var shortfalls []OverReservation
	for _, idx := range order {
		item := count.Items[idx]

		entry, found, err := lockLedgerRow(ctx, tx, item.ProductID, count.WarehouseID)
		if err != nil {
			return nil, mapTxError(err)
		}

		current := 0
		if found {
			current = entry.QuantityOnHand
		}
		delta := item.CountedQuantity - current

		if found {
			_, err = tx.ExecContext(ctx, `
				UPDATE stock_ledger
				SET quantity_on_hand = $1, last_updated = NOW()
				WHERE product_id = $2 AND location_id = $3`,
				item.CountedQuantity, item.ProductID, count.WarehouseID)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO stock_ledger (product_id, location_id, quantity_on_hand, quantity_reserved, last_updated)
				VALUES ($1, $2, $3, 0, NOW())`,
				item.ProductID, count.WarehouseID, item.CountedQuantity)
		}
		if err != nil {
			return nil, mapTxError(err)
		}

		if delta != 0 {
			movementType := models.MovementTypeIn
			quantity := delta
			if delta < 0 {
				movementType = models.MovementTypeOut
				quantity = -delta
			}
			if err := insertMovement(ctx, tx, &models.StockMovement{
				ID:            uuid.New().String(),
				ProductID:     item.ProductID,
				LocationID:    count.WarehouseID,
				Type:          movementType,
				Quantity:      quantity,
				ReferenceType: models.ReferenceTypeCount,
				ReferenceID:   count.ID,
			}); err != nil {
				return nil, mapTxError(err)
			}
		}

		adjusted, _, err := lockLedgerRow(ctx, tx, item.ProductID, count.WarehouseID)
		if err != nil {
			return nil, mapTxError(err)
		}
		if adjusted.QuantityOnHand < 0 || adjusted.QuantityReserved < 0 {
			return nil, fmt.Errorf("%w: product=%s location=%s on_hand=%d reserved=%d",
				ErrLedgerCorruption, item.ProductID, count.WarehouseID,
				adjusted.QuantityOnHand, adjusted.QuantityReserved)
		}
		// A truthful count may reveal less stock than is reserved.
		// Keep reservations intact and surface the shortfall.
		if adjusted.QuantityReserved > adjusted.QuantityOnHand {
			shortfalls = append(shortfalls, OverReservation{
				ProductID:  item.ProductID,
				LocationID: count.WarehouseID,
				OnHand:     adjusted.QuantityOnHand,
				Reserved:   adjusted.QuantityReserved,
			})
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_count_items (count_id, position, product_id, system_quantity, counted_quantity, variance, variance_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			count.ID, idx, item.ProductID, item.SystemQuantity,
			item.CountedQuantity, item.Variance, item.VarianceReason)
		if err != nil {
			return nil, mapTxError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return shortfalls, nil
}

// GetStockCount retrieves a submitted count with its items in
// submission order.
func (s *Store) GetStockCount(ctx context.Context, countID string) (*models.StockCount, error) {
	var count models.StockCount
	err := s.db.GetContext(ctx, &count,
		"SELECT * FROM stock_counts WHERE id = $1", countID)
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &count.Items,
		"SELECT * FROM stock_count_items WHERE count_id = $1 ORDER BY position", countID)
	if err != nil {
		return nil, err
	}
	return &count, nil
}

package store

import (
	"testing"

	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(rows ...[3]interface{}) []models.StockLedgerEntry {
	out := make([]models.StockLedgerEntry, len(rows))
	for i, r := range rows {
		out[i] = models.StockLedgerEntry{
			LocationID:       r[0].(string),
			QuantityOnHand:   r[1].(int),
			QuantityReserved: r[2].(int),
		}
	}
	return out
}

func TestPickLocationLowestQualifyingID(t *testing.T) {
	ledger := entries(
		[3]interface{}{"wh-a", 5, 5},   // nothing available
		[3]interface{}{"wh-b", 20, 5},  // 15 available
		[3]interface{}{"wh-c", 50, 0},  // 50 available
	)

	picked, total, ok := pickLocation(ledger, 10)
	require.True(t, ok)
	assert.Equal(t, "wh-b", picked)
	assert.Equal(t, 65, total)
}

func TestPickLocationNoSingleLocationFits(t *testing.T) {
	ledger := entries(
		[3]interface{}{"wh-a", 5, 0},
		[3]interface{}{"wh-b", 7, 0},
	)

	// 12 units exist in total but no one location covers the request.
	picked, total, ok := pickLocation(ledger, 10)
	assert.False(t, ok)
	assert.Empty(t, picked)
	assert.Equal(t, 12, total)
}

func TestPickLocationEmptyLedger(t *testing.T) {
	picked, total, ok := pickLocation(nil, 1)
	assert.False(t, ok)
	assert.Empty(t, picked)
	assert.Zero(t, total)
}

func TestPickLocationIgnoresOverReservedRows(t *testing.T) {
	// A count can leave reserved > on hand; that row contributes no
	// availability and must not be picked.
	ledger := entries(
		[3]interface{}{"wh-a", 3, 5},
		[3]interface{}{"wh-b", 10, 0},
	)

	picked, total, ok := pickLocation(ledger, 10)
	require.True(t, ok)
	assert.Equal(t, "wh-b", picked)
	assert.Equal(t, 10, total)
}

func TestShortageErrorDetail(t *testing.T) {
	err := shortageError(ReserveItem{ProductID: "p-1", Quantity: 100}, 40)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 1)

	s := insufficient.Shortages[0]
	assert.Equal(t, "p-1", s.ProductID)
	assert.Equal(t, 100, s.Requested)
	assert.Equal(t, 40, s.Available)
	assert.Equal(t, 60, s.Short)
}

func TestShortageErrorClampsSplitAvailability(t *testing.T) {
	// More units exist in total than requested, but split across
	// locations; short is clamped to zero rather than going negative.
	err := shortageError(ReserveItem{ProductID: "p-1", Quantity: 8}, 12)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Shortages[0].Short)
	assert.Equal(t, 12, insufficient.Shortages[0].Available)
}

package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCountRequest() *SubmitStockCountRequest {
	return &SubmitStockCountRequest{
		WarehouseID: "wh-1",
		GPS:         GPSLocation{Latitude: -26.2041, Longitude: 28.0473},
		PhotoRef:    "uploads/count-123.jpg",
		Items: []CountItemRequest{
			{ProductID: "p-1", SystemQuantity: 50, CountedQuantity: 50},
			{ProductID: "p-2", SystemQuantity: 20, CountedQuantity: 18, VarianceReason: "two damaged units"},
		},
	}
}

func TestValidateCountRequestAccepts(t *testing.T) {
	assert.NoError(t, validateCountRequest(validCountRequest()))
}

func TestValidateCountRequestMissingEvidence(t *testing.T) {
	req := validCountRequest()
	req.PhotoRef = ""

	err := validateCountRequest(req)
	assert.ErrorIs(t, err, ErrMissingEvidence)
}

func TestValidateCountRequestEmptyItems(t *testing.T) {
	req := validCountRequest()
	req.Items = nil

	err := validateCountRequest(req)
	assert.ErrorIs(t, err, ErrEmptyCount)
}

func TestValidateCountRequestVarianceNeedsReason(t *testing.T) {
	req := validCountRequest()
	req.Items[1].VarianceReason = ""

	err := validateCountRequest(req)

	var missing *MissingVarianceReasonError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "p-2", missing.ProductID)
}

func TestValidateCountRequestZeroVarianceNeedsNoReason(t *testing.T) {
	req := validCountRequest()
	req.Items = []CountItemRequest{
		{ProductID: "p-1", SystemQuantity: 0, CountedQuantity: 0},
	}

	assert.NoError(t, validateCountRequest(req))
}

func TestValidateCountRequestNegativeCount(t *testing.T) {
	req := validCountRequest()
	req.Items[0].CountedQuantity = -1
	req.Items[0].VarianceReason = "impossible"

	err := validateCountRequest(req)

	var invalid *InvalidQuantityError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "counted_quantity", invalid.Field)
}

func TestLocationTooFarErrorMessage(t *testing.T) {
	err := &LocationTooFarError{DistanceMeters: 75.4, MaxMeters: 50}
	assert.Equal(t, "location is 75m from warehouse, max 50m", err.Error())
}

func TestRejectionReasons(t *testing.T) {
	assert.Equal(t, "missing_evidence", rejectionReason(ErrMissingEvidence))
	assert.Equal(t, "empty_count", rejectionReason(ErrEmptyCount))
	assert.Equal(t, "missing_variance_reason", rejectionReason(&MissingVarianceReasonError{ProductID: "p"}))
	assert.Equal(t, "location_too_far", rejectionReason(&LocationTooFarError{DistanceMeters: 75, MaxMeters: 50}))
	assert.Equal(t, "invalid", rejectionReason(errors.New("boom")))
}

func TestGeofenceGateAtFiftyMeters(t *testing.T) {
	// Warehouse registered at the origin; ~75m north is out of range,
	// ~30m north is in range.
	warehouseLat, warehouseLng := 0.0, 0.0

	far := distanceMeters(0.000675, 0, warehouseLat, warehouseLng)
	near := distanceMeters(0.00027, 0, warehouseLat, warehouseLng)

	assert.Greater(t, far, 50.0)
	assert.Less(t, near, 50.0)
}

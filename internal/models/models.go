package models

import "time"

// Product represents a product in the catalog
type Product struct {
	ID        string    `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Warehouse is a stock location. Its registered coordinates anchor the
// GPS gate for physical counts.
type Warehouse struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StockLedgerEntry is one row per product x location.
// Invariant: 0 <= QuantityReserved <= QuantityOnHand, except transiently
// after an authoritative count that exposes over-reservation.
type StockLedgerEntry struct {
	ProductID        string    `db:"product_id" json:"product_id"`
	LocationID       string    `db:"location_id" json:"location_id"`
	QuantityOnHand   int       `db:"quantity_on_hand" json:"quantity_on_hand"`
	QuantityReserved int       `db:"quantity_reserved" json:"quantity_reserved"`
	LastUpdated      time.Time `db:"last_updated" json:"last_updated"`
}

// Available returns on-hand stock not promised to any order.
func (e *StockLedgerEntry) Available() int {
	return e.QuantityOnHand - e.QuantityReserved
}

// ProductStock is the per-location stock view returned to callers.
type ProductStock struct {
	ProductID        string    `db:"product_id" json:"product_id"`
	LocationID       string    `db:"location_id" json:"location_id"`
	LocationName     string    `db:"location_name" json:"location_name"`
	QuantityOnHand   int       `db:"quantity_on_hand" json:"quantity_on_hand"`
	QuantityReserved int       `db:"quantity_reserved" json:"quantity_reserved"`
	Available        int       `db:"available" json:"available"`
	LastUpdated      time.Time `db:"last_updated" json:"last_updated"`
}

// Reservation earmarks stock for an unfulfilled order. Terminal once
// committed or released.
type Reservation struct {
	ID         string    `db:"id" json:"id"`
	OrderID    string    `db:"order_id" json:"order_id"`
	ProductID  string    `db:"product_id" json:"product_id"`
	LocationID string    `db:"location_id" json:"location_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Reservation statuses
const (
	ReservationStatusReserved  = "reserved"
	ReservationStatusCommitted = "committed"
	ReservationStatusReleased  = "released"
)

// StockMovement is the append-only audit record paired with every
// change to quantity_on_hand.
type StockMovement struct {
	ID            string    `db:"id" json:"id"`
	ProductID     string    `db:"product_id" json:"product_id"`
	LocationID    string    `db:"location_id" json:"location_id"`
	Type          string    `db:"type" json:"type"`
	Quantity      int       `db:"quantity" json:"quantity"`
	CostPrice     int64     `db:"cost_price" json:"cost_price,omitempty"`
	ReferenceType string    `db:"reference_type" json:"reference_type"`
	ReferenceID   string    `db:"reference_id" json:"reference_id"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Movement types
const (
	MovementTypeIn          = "IN"
	MovementTypeOut         = "OUT"
	MovementTypeTransferIn  = "TRANSFER_IN"
	MovementTypeTransferOut = "TRANSFER_OUT"
)

// Movement reference types
const (
	ReferenceTypeOrder      = "ORDER"
	ReferenceTypeTransfer   = "TRANSFER"
	ReferenceTypeAdjustment = "ADJUSTMENT"
	ReferenceTypeCount      = "COUNT"
)

// StockCount is an immutable record of a physical count session.
// Corrections are new counts, never in-place edits.
type StockCount struct {
	ID          string           `db:"id" json:"id"`
	WarehouseID string           `db:"warehouse_id" json:"warehouse_id"`
	Latitude    float64          `db:"latitude" json:"latitude"`
	Longitude   float64          `db:"longitude" json:"longitude"`
	PhotoRef    string           `db:"photo_ref" json:"photo_ref"`
	Notes       string           `db:"notes" json:"notes,omitempty"`
	Items       []StockCountItem `db:"-" json:"items"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// StockCountItem is one counted line. Variance != 0 requires a reason.
type StockCountItem struct {
	CountID         string `db:"count_id" json:"-"`
	Position        int    `db:"position" json:"-"`
	ProductID       string `db:"product_id" json:"product_id"`
	SystemQuantity  int    `db:"system_quantity" json:"system_quantity"`
	CountedQuantity int    `db:"counted_quantity" json:"counted_quantity"`
	Variance        int    `db:"variance" json:"variance"`
	VarianceReason  string `db:"variance_reason" json:"variance_reason,omitempty"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

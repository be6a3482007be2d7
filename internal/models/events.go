package models

import "time"

// Event types
const (
	// Consumed from the order service
	EventTypeOrderConfirmed = "ORDER_CONFIRMED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"

	// Published by this service
	EventTypeStockReserved       = "STOCK_RESERVED"
	EventTypeStockCommitted      = "STOCK_COMMITTED"
	EventTypeStockReleased       = "STOCK_RELEASED"
	EventTypeStockTransferred    = "STOCK_TRANSFERRED"
	EventTypeStockCountSubmitted = "STOCK_COUNT_SUBMITTED"
	EventTypeStockShortfallAlert = "STOCK_SHORTFALL_ALERT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockItemData represents item data in stock events
type StockItemData struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

// OrderConfirmedEvent is consumed when the order service confirms an
// order; reserved stock is then committed.
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
}

// OrderCancelledEvent is consumed when the order service cancels an
// order; reserved stock is then released.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// StockReservedEvent published after a successful reservation
type StockReservedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	Items   []StockItemData `json:"items"`
}

// StockCommittedEvent published after reserved stock is deducted
type StockCommittedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	Items   []StockItemData `json:"items"`
}

// StockReleasedEvent published after reserved stock returns to the pool
type StockReleasedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	Items   []StockItemData `json:"items"`
}

// StockTransferredEvent published after an inter-location transfer
type StockTransferredEvent struct {
	BaseEvent
	TransferID     string `json:"transfer_id"`
	ProductID      string `json:"product_id"`
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
	Quantity       int    `json:"quantity"`
}

// StockCountSubmittedEvent published after a physical count is applied
type StockCountSubmittedEvent struct {
	BaseEvent
	CountID       string `json:"count_id"`
	WarehouseID   string `json:"warehouse_id"`
	ItemCount     int    `json:"item_count"`
	VarianceUnits int    `json:"variance_units"`
}

// StockShortfallAlertEvent published when an authoritative count leaves
// a ledger row with more stock reserved than on hand.
type StockShortfallAlertEvent struct {
	BaseEvent
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	OnHand     int    `json:"on_hand"`
	Reserved   int    `json:"reserved"`
}

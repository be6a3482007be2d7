package worker

import (
	"context"
	"log"

	"inventory-service/internal/broker"
	"inventory-service/internal/service"
)

// OrderEventsWorker consumes order lifecycle events and drives the
// reservation engine: confirmations commit reserved stock, cancellations
// release it.
type OrderEventsWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewOrderEventsWorker creates a new order events worker
func NewOrderEventsWorker(
	consumer *broker.Consumer,
	reservations *service.ReservationService,
) *OrderEventsWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderConfirmed(reservations.HandleOrderConfirmed)
	eventHandler.OnOrderCancelled(reservations.HandleOrderCancelled)

	return &OrderEventsWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *OrderEventsWorker) Start(ctx context.Context) error {
	log.Println("Starting order events worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderEventsWorker) Stop() error {
	log.Println("Stopping order events worker...")
	return w.consumer.Close()
}

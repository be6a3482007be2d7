package service

import (
	"context"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// HandleOrderConfirmed commits reserved stock when the order service
// confirms an order. Processed-event tracking makes redelivery safe on
// top of the commit's own idempotence.
func (s *ReservationService) HandleOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.HandleOrderConfirmed")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	s.logger.Info("Handling order confirmation",
		zap.String("order_id", event.OrderID),
		zap.String("event_id", event.EventID))

	if err := s.Commit(ctx, event.OrderID); err != nil {
		return fmt.Errorf("failed to commit stock for order %s: %w", event.OrderID, err)
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	return nil
}

// HandleOrderCancelled releases reserved stock when the order service
// cancels an order.
func (s *ReservationService) HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	ctx, span := util.StartSpan(ctx, "ReservationService.HandleOrderCancelled")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	s.logger.Info("Handling order cancellation",
		zap.String("order_id", event.OrderID),
		zap.String("reason", event.Reason))

	if err := s.Release(ctx, event.OrderID); err != nil {
		return fmt.Errorf("failed to release stock for order %s: %w", event.OrderID, err)
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	return nil
}

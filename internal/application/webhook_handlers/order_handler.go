package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// OrderHandler upserts order webhook deliveries.
type OrderHandler struct {
	orders ports.OrderRepository
	logger zerolog.Logger
}

func NewOrderHandler(orders ports.OrderRepository, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// CanHandle returns true if this handler can process the given topic.
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == "orders/create" ||
		topic == "orders/updated" ||
		topic == "orders/paid" ||
		topic == "orders/cancelled" ||
		topic == "orders/fulfilled"
}

// Handle parses the order payload and upserts it under the delivery's
// tenant. Updates and creates run through the same upsert; the latest
// delivery wins.
func (h *OrderHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	payload, err := domain.ParseOrderPayload(delivery.Payload)
	if err != nil {
		return fmt.Errorf("order webhook: %w", err)
	}

	order, err := h.orders.Upsert(ctx, delivery.TenantID, payload)
	if err != nil {
		return fmt.Errorf("order webhook: %w", err)
	}

	h.logger.Info().
		Str("topic", delivery.Topic).
		Str("shop", delivery.Shop).
		Int64("orderId", payload.ShopifyOrderID).
		Str("status", string(order.Status)).
		Str("totalPrice", payload.TotalPrice.String()).
		Msg("Order upserted")
	return nil
}

package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// CartHandler upserts cart webhook deliveries keyed by cart token.
type CartHandler struct {
	funnel ports.FunnelRepository
	logger zerolog.Logger
}

func NewCartHandler(funnel ports.FunnelRepository, logger zerolog.Logger) *CartHandler {
	return &CartHandler{funnel: funnel, logger: logger}
}

// CanHandle returns true if this handler can process the given topic.
func (h *CartHandler) CanHandle(topic string) bool {
	return topic == "carts/create" || topic == "carts/update"
}

// Handle parses the cart payload and upserts it. A carts/update for an
// existing token bumps updated_at, which is what the completion metric
// reads.
func (h *CartHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	payload, err := domain.ParseCartPayload(delivery.Payload)
	if err != nil {
		return fmt.Errorf("cart webhook: %w", err)
	}

	if err := h.funnel.UpsertCart(ctx, delivery.TenantID, payload); err != nil {
		return fmt.Errorf("cart webhook: %w", err)
	}

	h.logger.Info().
		Str("topic", delivery.Topic).
		Str("shop", delivery.Shop).
		Str("cartToken", payload.CartToken).
		Str("totalPrice", payload.TotalPrice.String()).
		Msg("Cart upserted")
	return nil
}

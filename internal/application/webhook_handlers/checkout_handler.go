package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// CheckoutHandler upserts checkout webhook deliveries.
type CheckoutHandler struct {
	funnel ports.FunnelRepository
	logger zerolog.Logger
}

func NewCheckoutHandler(funnel ports.FunnelRepository, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{funnel: funnel, logger: logger}
}

// CanHandle returns true if this handler can process the given topic.
func (h *CheckoutHandler) CanHandle(topic string) bool {
	return topic == "checkouts/create" || topic == "checkouts/update"
}

// Handle parses the checkout payload and upserts it. completed_at set
// by a later update marks the checkout converted.
func (h *CheckoutHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	payload, err := domain.ParseCheckoutPayload(delivery.Payload)
	if err != nil {
		return fmt.Errorf("checkout webhook: %w", err)
	}

	if err := h.funnel.UpsertCheckout(ctx, delivery.TenantID, payload); err != nil {
		return fmt.Errorf("checkout webhook: %w", err)
	}

	h.logger.Info().
		Str("topic", delivery.Topic).
		Str("shop", delivery.Shop).
		Int64("checkoutId", payload.ShopifyCheckoutID).
		Bool("completed", payload.CompletedAt != nil).
		Msg("Checkout upserted")
	return nil
}

package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// CustomerHandler upserts customer webhook deliveries.
type CustomerHandler struct {
	customers ports.CustomerRepository
	logger    zerolog.Logger
}

func NewCustomerHandler(customers ports.CustomerRepository, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, logger: logger}
}

// CanHandle returns true if this handler can process the given topic.
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == "customers/create" || topic == "customers/update"
}

// Handle parses the customer payload and upserts it. Sparse payloads
// are fine; absent fields land as null.
func (h *CustomerHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	payload, err := domain.ParseCustomerPayload(delivery.Payload)
	if err != nil {
		return fmt.Errorf("customer webhook: %w", err)
	}

	if _, err := h.customers.Upsert(ctx, delivery.TenantID, payload); err != nil {
		return fmt.Errorf("customer webhook: %w", err)
	}

	h.logger.Info().
		Str("topic", delivery.Topic).
		Str("shop", delivery.Shop).
		Int64("customerId", payload.ShopifyCustomerID).
		Msg("Customer upserted")
	return nil
}

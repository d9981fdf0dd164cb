package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// ProductHandler upserts product webhook deliveries.
type ProductHandler struct {
	products ports.ProductRepository
	logger   zerolog.Logger
}

func NewProductHandler(products ports.ProductRepository, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// CanHandle returns true if this handler can process the given topic.
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == "products/create" || topic == "products/update"
}

// Handle parses the product payload and upserts it.
func (h *ProductHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	payload, err := domain.ParseProductPayload(delivery.Payload)
	if err != nil {
		return fmt.Errorf("product webhook: %w", err)
	}

	if _, err := h.products.Upsert(ctx, delivery.TenantID, payload); err != nil {
		return fmt.Errorf("product webhook: %w", err)
	}

	h.logger.Info().
		Str("topic", delivery.Topic).
		Str("shop", delivery.Shop).
		Int64("productId", payload.ShopifyProductID).
		Str("title", payload.Title).
		Msg("Product upserted")
	return nil
}

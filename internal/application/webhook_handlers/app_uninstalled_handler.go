package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// AppUninstalledHandler revokes credentials when a shop removes the
// app. Only the Store row goes away; the tenant's synced data is kept
// so a reinstall picks up where it left off.
type AppUninstalledHandler struct {
	stores ports.StoreRepository
	logger zerolog.Logger
}

func NewAppUninstalledHandler(stores ports.StoreRepository, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{stores: stores, logger: logger}
}

// CanHandle returns true if this handler can process the given topic.
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle deletes the shop's credential row. A delivery for a shop with
// no row is a no-op, not an error.
func (h *AppUninstalledHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	removed, err := h.stores.DeleteByDomain(ctx, delivery.Shop)
	if err != nil {
		return fmt.Errorf("app uninstalled webhook: %w", err)
	}

	h.logger.Info().
		Str("shop", delivery.Shop).
		Int64("removed", removed).
		Msg("App uninstalled, credentials revoked")
	return nil
}

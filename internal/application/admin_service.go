package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// ResetResult reports how many funnel rows a reset removed.
type ResetResult struct {
	Carts     int64 `json:"carts"`
	Checkouts int64 `json:"checkouts"`
}

// AdminService covers the operator-facing maintenance actions.
type AdminService struct {
	funnel ports.FunnelRepository
	logger zerolog.Logger
}

func NewAdminService(funnel ports.FunnelRepository, logger zerolog.Logger) *AdminService {
	return &AdminService{funnel: funnel, logger: logger}
}

// ResetFunnel wipes the tenant's cart and checkout rows. A non-nil
// cutoff keeps rows created before it, so a demo reseed can clear only
// the fresh data.
func (s *AdminService) ResetFunnel(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (*ResetResult, error) {
	carts, err := s.funnel.DeleteCarts(ctx, tenantID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("reset funnel: %w", err)
	}
	checkouts, err := s.funnel.DeleteCheckouts(ctx, tenantID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("reset funnel: %w", err)
	}

	s.logger.Info().
		Str("tenantId", tenantID.Hex()).
		Int64("carts", carts).
		Int64("checkouts", checkouts).
		Msg("Funnel reset")
	return &ResetResult{Carts: carts, Checkouts: checkouts}, nil
}

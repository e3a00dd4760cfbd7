package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/providers"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

// tokenRefreshWindowDays is how far ahead of expiry the hourly sweep starts
// refreshing tokens.
const tokenRefreshWindowDays = 5

// TokenService keeps integration credentials alive: it finds tokens nearing
// expiry and runs the provider refresh for each.
type TokenService struct {
	integrations repository.IntegrationRepository
	registry     *providers.Registry
	store        *secrets.Store
}

func NewTokenService(integrations repository.IntegrationRepository, registry *providers.Registry, store *secrets.Store) *TokenService {
	return &TokenService{integrations: integrations, registry: registry, store: store}
}

// ListExpiring returns connected integrations whose tokens expire within the
// refresh window.
func (s *TokenService) ListExpiring(ctx context.Context) ([]*models.Integration, error) {
	return s.integrations.ListExpiringSoon(ctx, tokenRefreshWindowDays)
}

// RefreshIntegrationToken refreshes one integration's credentials. A refused
// or failed refresh marks the integration Expired with the platform's
// message; the next hourly sweep picks it up again.
func (s *TokenService) RefreshIntegrationToken(ctx context.Context, integrationID int64) error {
	integ, err := s.integrations.GetByID(ctx, integrationID)
	if err != nil {
		return err
	}
	if integ == nil {
		return fmt.Errorf("integration not found")
	}

	provider, err := s.registry.ForPlatform(integ.Platform)
	if err != nil {
		return err
	}

	result := provider.RefreshToken(ctx, integ)
	if !result.Success {
		slog.Info(fmt.Sprintf("token refresh failed for integration %d: %s", integ.ID, result.ErrorMessage))
		now := time.Now()
		integ.ConnectionStatus = models.ConnectionExpired
		integ.LastError = result.ErrorMessage
		integ.LastErrorTime = &now
		return s.integrations.Update(ctx, integ)
	}

	access, err := s.store.Encrypt(result.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.store.Encrypt(result.RefreshToken)
	if err != nil {
		return err
	}

	integ.UpdateTokens(access, refresh, result.ExpiresIn)
	return s.integrations.Update(ctx, integ)
}

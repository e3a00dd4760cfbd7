package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	cfg "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

// IntegrationService exposes the connected-account list plus the disconnect
// and connection-probe operations.
type IntegrationService struct {
	config       cfg.Config
	integrations repository.IntegrationRepository
	store        *secrets.Store
	client       *http.Client
}

func NewIntegrationService(config cfg.Config, integrations repository.IntegrationRepository, store *secrets.Store, client *http.Client) *IntegrationService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &IntegrationService{config: config, integrations: integrations, store: store, client: client}
}

func (s *IntegrationService) List(ctx context.Context) ([]*models.Integration, error) {
	return s.integrations.List(ctx)
}

func (s *IntegrationService) Get(ctx context.Context, id int64) (*models.Integration, error) {
	return s.integrations.GetByID(ctx, id)
}

// Disconnect wipes credentials but keeps the row so history and a later
// reconnect stay attached to the same integration.
func (s *IntegrationService) Disconnect(ctx context.Context, id int64) error {
	integ, err := s.integrations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if integ == nil {
		return fmt.Errorf("integration not found")
	}
	integ.Disconnect()
	return s.integrations.Update(ctx, integ)
}

// TestConnection probes the platform with a lightweight authenticated call
// and records the outcome on the integration.
func (s *IntegrationService) TestConnection(ctx context.Context, id int64) (bool, string, error) {
	integ, err := s.integrations.GetByID(ctx, id)
	if err != nil {
		return false, "", err
	}
	if integ == nil {
		return false, "", fmt.Errorf("integration not found")
	}

	ok, message := s.probe(ctx, integ)
	if ok {
		integ.ConnectionStatus = models.ConnectionConnected
		integ.LastError = ""
		integ.LastErrorTime = nil
	} else {
		integ.MarkAsError(message)
	}
	if err := s.integrations.Update(ctx, integ); err != nil {
		slog.Info(err.Error())
	}
	return ok, message, nil
}

func (s *IntegrationService) probe(ctx context.Context, integ *models.Integration) (bool, string) {
	switch integ.Platform {
	case models.PlatformTwitter:
		return s.bearerProbe(ctx, integ.AccessToken, "https://api.twitter.com/2/users/me")
	case models.PlatformLinkedIn:
		return s.bearerProbe(ctx, integ.AccessToken, "https://api.linkedin.com/v2/userinfo")
	case models.PlatformYouTube:
		return s.bearerProbe(ctx, integ.AccessToken, "https://www.googleapis.com/youtube/v3/channels?part=id&mine=true")
	case models.PlatformFacebook, models.PlatformInstagram:
		encrypted := integ.PageAccessToken
		if encrypted == "" {
			encrypted = integ.AccessToken
		}
		token, err := s.store.Decrypt(encrypted)
		if err != nil || token == "" {
			return false, "no access token stored"
		}
		endpoint := fmt.Sprintf("https://graph.facebook.com/%s/me?access_token=%s",
			s.config.Meta.APIVersion, url.QueryEscape(token))
		return s.statusProbe(ctx, endpoint, "")
	default:
		return false, "unknown platform"
	}
}

func (s *IntegrationService) bearerProbe(ctx context.Context, encryptedToken, endpoint string) (bool, string) {
	token, err := s.store.Decrypt(encryptedToken)
	if err != nil || token == "" {
		return false, "no access token stored"
	}
	return s.statusProbe(ctx, endpoint, token)
}

func (s *IntegrationService) statusProbe(ctx context.Context, endpoint, bearer string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err.Error()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return false, err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Sprintf("connection test failed with status %d", resp.StatusCode)
	}
	return true, "connection is working"
}

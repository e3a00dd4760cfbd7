package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

// fakeLimiter records limiter traffic and can be told to deny.
type fakeLimiter struct {
	deny       bool
	checks     int
	increments int
	quotaUsed  int
}

func (f *fakeLimiter) Check(ctx context.Context, platform string) (bool, error) {
	f.checks++
	return !f.deny, nil
}

func (f *fakeLimiter) Increment(ctx context.Context, platform string) error {
	f.increments++
	return nil
}

func (f *fakeLimiter) CheckAndIncrement(ctx context.Context, platform string) (bool, error) {
	f.checks++
	if f.deny {
		return false, nil
	}
	f.increments++
	return true, nil
}

func (f *fakeLimiter) CheckAndConsumeQuota(ctx context.Context, units int) (bool, error) {
	if f.deny {
		return false, nil
	}
	f.quotaUsed += units
	return true, nil
}

type staticSettings struct {
	settings *models.Settings
}

func (s *staticSettings) Get(ctx context.Context) (*models.Settings, error) {
	return s.settings, nil
}

func testStore() *secrets.Store {
	return secrets.NewStore(testSecretKey)
}

func encrypt(t *testing.T, value string) string {
	t.Helper()
	out, err := testStore().Encrypt(value)
	require.NoError(t, err)
	return out
}

func testConfig() config.Config {
	return config.Config{
		Meta:     config.MetaApp{AppID: "app-id", AppSecret: "app-secret", APIVersion: "v21.0"},
		Twitter:  config.TwitterApp{ClientID: "tw-client", ClientSecret: "tw-secret"},
		LinkedIn: config.LinkedInApp{ClientID: "li-client", ClientSecret: "li-secret", APIVersion: "202501"},
	}
}

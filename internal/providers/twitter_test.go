package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/models"
)

func newTestTwitterProvider(t *testing.T, handler http.HandlerFunc) (*TwitterProvider, *fakeLimiter) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := &fakeLimiter{}
	settings := &staticSettings{settings: &models.Settings{TwitterTier: "Basic"}}
	p := NewTwitterProvider(testConfig(), testStore(), limiter, settings, server.Client())
	p.baseURL = server.URL
	return p, limiter
}

func twitterIntegration(t *testing.T) *models.Integration {
	return &models.Integration{
		ID:           2,
		Platform:     models.PlatformTwitter,
		ProfileID:    "12345",
		AccountName:  "acme",
		AccessToken:  encrypt(t, "tw-access"),
		RefreshToken: encrypt(t, "tw-refresh"),
	}
}

func TestTwitterPublishPost(t *testing.T) {
	var gotAuth, gotBody string
	p, limiter := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2/tweets", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "1810000000000000000"}})
	})

	result := p.PublishPost(context.Background(), twitterIntegration(t), PublishRequest{Content: "hello world"})

	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, "Bearer tw-access", gotAuth)
	assert.JSONEq(t, `{"text":"hello world"}`, gotBody)
	assert.Equal(t, "1810000000000000000", result.PostID)
	assert.Equal(t, "https://twitter.com/acme/status/1810000000000000000", result.PostURL)
	assert.Equal(t, 1, limiter.increments, "counter increments only after a successful tweet")
}

func TestTwitterPublishBlockedByTierLimit(t *testing.T) {
	called := false
	p, limiter := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	limiter.deny = true

	result := p.PublishPost(context.Background(), twitterIntegration(t), PublishRequest{Content: "too many"})

	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "Daily tweet limit reached")
	assert.False(t, called, "limit check must happen before the API call")
	assert.Zero(t, limiter.increments)
}

func TestTwitterPublishSurfacesAPIError(t *testing.T) {
	p, limiter := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "You are not permitted to perform this action."})
	})

	result := p.PublishPost(context.Background(), twitterIntegration(t), PublishRequest{Content: "nope"})

	require.False(t, result.Success)
	assert.Equal(t, "You are not permitted to perform this action.", result.ErrorMessage)
	assert.Zero(t, limiter.increments, "a failed tweet must not consume the daily budget")
}

func TestTwitterDailyLimitFollowsSettingsTier(t *testing.T) {
	p, _ := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Equal(t, 100, p.DailyLimit())

	p.settings = &staticSettings{settings: &models.Settings{TwitterTier: "Pro"}}
	assert.Equal(t, 1000, p.DailyLimit())

	p.settings = &staticSettings{settings: nil}
	assert.Equal(t, 17, p.DailyLimit(), "missing settings fall back to the Free tier")
}

func TestTwitterRefreshToken(t *testing.T) {
	p, _ := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/oauth2/token", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "tw-client", user)
		assert.Equal(t, "tw-secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "tw-refresh", r.Form.Get("refresh_token"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    7200,
		})
	})

	result := p.RefreshToken(context.Background(), twitterIntegration(t))

	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, "new-access", result.AccessToken)
	assert.Equal(t, "new-refresh", result.RefreshToken)
	assert.Equal(t, int64(7200), result.ExpiresIn)
}

func TestTwitterRefreshWithoutStoredToken(t *testing.T) {
	p, _ := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	integ := twitterIntegration(t)
	integ.RefreshToken = ""
	result := p.RefreshToken(context.Background(), integ)

	require.False(t, result.Success)
	assert.Equal(t, "no refresh token stored", result.ErrorMessage)
}

func TestTwitterFetchPostAnalytics(t *testing.T) {
	p, _ := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets/1810", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"public_metrics": map[string]float64{
					"retweet_count":    3,
					"reply_count":      5,
					"like_count":       40,
					"quote_count":      2,
					"bookmark_count":   7,
					"impression_count": 900,
				},
			},
		})
	})

	result := p.FetchPostAnalytics(context.Background(), "1810", twitterIntegration(t))

	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, float64(40), result.Metrics["likes"])
	assert.Equal(t, float64(5), result.Metrics["comments"])
	assert.Equal(t, float64(5), result.Metrics["shares"], "shares combine retweets and quotes")
	assert.Equal(t, float64(7), result.Metrics["saves"])
	assert.Equal(t, float64(900), result.Metrics["impressions"])
}

func TestTwitterFetchAccountAnalytics(t *testing.T) {
	p, _ := newTestTwitterProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/users/me", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"public_metrics": map[string]float64{
					"followers_count": 1200,
					"following_count": 300,
					"tweet_count":     850,
					"listed_count":    12,
				},
			},
		})
	})

	result := p.FetchAccountAnalytics(context.Background(), twitterIntegration(t))

	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, float64(1200), result.Metrics["followers"])
	assert.Equal(t, float64(850), result.Metrics["posts"])
}

func TestParseTwitterError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail field", `{"detail":"Rate limit exceeded"}`, "Rate limit exceeded"},
		{"errors array", `{"errors":[{"message":"Invalid token"}]}`, "Invalid token"},
		{"title fallback", `{"title":"Unauthorized"}`, "Unauthorized"},
		{"raw body", `plain failure`, "plain failure"},
		{"empty body", ``, "Twitter request failed with status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTwitterError([]byte(tt.body), 500))
		})
	}
}

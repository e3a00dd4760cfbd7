package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

const twitterAPIBaseURL = "https://api.twitter.com"

// TwitterProvider posts text tweets via the v2 API. Media upload needs the
// OAuth 1.0a v1.1 media endpoint, which OAuth2 user tokens cannot call, so
// tweets are text-only.
type TwitterProvider struct {
	cfg      config.Config
	store    *secrets.Store
	limiter  RateLimiter
	settings SettingsSource
	client   *http.Client
	baseURL  string
}

func NewTwitterProvider(cfg config.Config, store *secrets.Store, limiter RateLimiter, settings SettingsSource, client *http.Client) *TwitterProvider {
	return &TwitterProvider{
		cfg:      cfg,
		store:    store,
		limiter:  limiter,
		settings: settings,
		client:   client,
		baseURL:  twitterAPIBaseURL,
	}
}

func (p *TwitterProvider) Platform() string { return models.PlatformTwitter }

// DailyLimit reflects the workspace's API tier; Free is the floor.
func (p *TwitterProvider) DailyLimit() int {
	s, err := p.settings.Get(context.Background())
	if err != nil || s == nil {
		return models.TwitterTierLimits["Free"]
	}
	return s.TwitterDailyLimit()
}

func (p *TwitterProvider) Limits() Limits {
	return Limits{
		MaxContentLength: 280,
		SupportsMedia:    false,
	}
}

func (p *TwitterProvider) PublishPost(ctx context.Context, integ *models.Integration, req PublishRequest) PublishResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" {
		return failure("Twitter credentials are missing")
	}

	allowed, err := p.limiter.Check(ctx, models.PlatformTwitter)
	if err != nil {
		slog.Info(err.Error())
	} else if !allowed {
		return failure("Daily tweet limit reached for the current API tier")
	}

	body, _ := json.Marshal(map[string]string{"text": req.Content})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return failure("%s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return failure("%s", err.Error())
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure("%s", parseTwitterError(raw, resp.StatusCode))
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Data.ID == "" {
		return failure("Twitter did not return a tweet id")
	}

	if err := p.limiter.Increment(ctx, models.PlatformTwitter); err != nil {
		slog.Info(err.Error())
	}

	return PublishResult{
		Success: true,
		PostID:  out.Data.ID,
		PostURL: fmt.Sprintf("https://twitter.com/%s/status/%s", integ.AccountName, out.Data.ID),
	}
}

// RefreshToken exchanges the stored refresh token for a new pair. Twitter
// rotates refresh tokens on every exchange, so both values must be saved.
func (p *TwitterProvider) RefreshToken(ctx context.Context, integ *models.Integration) TokenRefreshResult {
	refresh, err := p.store.Decrypt(integ.RefreshToken)
	if err != nil || refresh == "" {
		return TokenRefreshResult{Success: false, ErrorMessage: "no refresh token stored"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)
	form.Set("client_id", p.cfg.Twitter.ClientID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return TokenRefreshResult{Success: false, ErrorMessage: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.cfg.Twitter.ClientID, p.cfg.Twitter.ClientSecret)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return TokenRefreshResult{Success: false, ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenRefreshResult{Success: false, ErrorMessage: parseTwitterError(raw, resp.StatusCode)}
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.AccessToken == "" {
		return TokenRefreshResult{Success: false, ErrorMessage: "token endpoint returned an unexpected response"}
	}
	return TokenRefreshResult{
		Success:      true,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    out.ExpiresIn,
	}
}

func (p *TwitterProvider) FetchAccountAnalytics(ctx context.Context, integ *models.Integration) AnalyticsResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" {
		return analyticsFailure("Twitter credentials are missing")
	}

	var out struct {
		Data struct {
			PublicMetrics struct {
				FollowersCount float64 `json:"followers_count"`
				FollowingCount float64 `json:"following_count"`
				TweetCount     float64 `json:"tweet_count"`
				ListedCount    float64 `json:"listed_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, token, "/2/users/me?user.fields=public_metrics", &out); err != nil {
		return analyticsFailure("%s", err.Error())
	}

	m := out.Data.PublicMetrics
	return AnalyticsResult{
		Success: true,
		Metrics: map[string]float64{
			"followers": m.FollowersCount,
			"following": m.FollowingCount,
			"posts":     m.TweetCount,
			"listed":    m.ListedCount,
		},
	}
}

func (p *TwitterProvider) FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) AnalyticsResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" {
		return analyticsFailure("Twitter credentials are missing")
	}

	var out struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    float64 `json:"retweet_count"`
				ReplyCount      float64 `json:"reply_count"`
				LikeCount       float64 `json:"like_count"`
				QuoteCount      float64 `json:"quote_count"`
				BookmarkCount   float64 `json:"bookmark_count"`
				ImpressionCount float64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	path := "/2/tweets/" + platformPostID + "?tweet.fields=public_metrics"
	if err := p.getJSON(ctx, token, path, &out); err != nil {
		return analyticsFailure("%s", err.Error())
	}

	m := out.Data.PublicMetrics
	return AnalyticsResult{
		Success: true,
		Metrics: map[string]float64{
			"likes":       m.LikeCount,
			"comments":    m.ReplyCount,
			"shares":      m.RetweetCount + m.QuoteCount,
			"saves":       m.BookmarkCount,
			"impressions": m.ImpressionCount,
		},
	}
}

func (p *TwitterProvider) getJSON(ctx context.Context, token, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s", parseTwitterError(raw, resp.StatusCode))
	}
	return json.Unmarshal(raw, out)
}

func parseTwitterError(body []byte, status int) string {
	var out struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &out); err == nil {
		if out.Detail != "" {
			return out.Detail
		}
		if len(out.Errors) > 0 && out.Errors[0].Message != "" {
			return out.Errors[0].Message
		}
		if out.Title != "" {
			return out.Title
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	if msg == "" {
		msg = fmt.Sprintf("Twitter request failed with status %d", status)
	}
	return msg
}

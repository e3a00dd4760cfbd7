package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

const linkedinAPIBaseURL = "https://api.linkedin.com"

// LinkedInProvider publishes text posts for personal profiles through the
// versioned REST API. Media and organization posts are out of scope for
// personal-token integrations.
type LinkedInProvider struct {
	cfg     config.Config
	store   *secrets.Store
	limiter RateLimiter
	client  *http.Client
	baseURL string
}

func NewLinkedInProvider(cfg config.Config, store *secrets.Store, limiter RateLimiter, client *http.Client) *LinkedInProvider {
	return &LinkedInProvider{
		cfg:     cfg,
		store:   store,
		limiter: limiter,
		client:  client,
		baseURL: linkedinAPIBaseURL,
	}
}

func (p *LinkedInProvider) Platform() string { return models.PlatformLinkedIn }

func (p *LinkedInProvider) DailyLimit() int { return 150 }

func (p *LinkedInProvider) Limits() Limits {
	return Limits{
		MaxContentLength: 3000,
		SupportsMedia:    false,
	}
}

func (p *LinkedInProvider) RefreshToken(ctx context.Context, integ *models.Integration) TokenRefreshResult {
	return unsupportedRefresh()
}

func (p *LinkedInProvider) PublishPost(ctx context.Context, integ *models.Integration, req PublishRequest) PublishResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" || integ.ProfileID == "" {
		return failure("LinkedIn credentials are missing")
	}

	allowed, err := p.limiter.CheckAndIncrement(ctx, models.PlatformLinkedIn)
	if err != nil {
		slog.Info(err.Error())
	} else if !allowed {
		return failure("Daily post limit reached for LinkedIn")
	}

	payload := map[string]any{
		"author":     "urn:li:person:" + integ.ProfileID,
		"commentary": req.Content,
		"visibility": "PUBLIC",
		"distribution": map[string]any{
			"feedDistribution":               "MAIN_FEED",
			"targetEntities":                 []any{},
			"thirdPartyDistributionChannels": []any{},
		},
		"lifecycleState":            "PUBLISHED",
		"isReshareDisabledByAuthor": false,
	}
	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/rest/posts", bytes.NewReader(body))
	if err != nil {
		return failure("%s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("LinkedIn-Version", p.cfg.LinkedIn.APIVersion)
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return failure("%s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure("%s", p.parseError(resp))
	}

	// The created post urn comes back in a header, not the body.
	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		postID = resp.Header.Get("X-Restli-Id")
	}
	if postID == "" {
		return failure("LinkedIn did not return a post id")
	}
	return PublishResult{
		Success: true,
		PostID:  postID,
		PostURL: "https://www.linkedin.com/feed/update/" + postID + "/",
	}
}

func (p *LinkedInProvider) parseError(resp *http.Response) string {
	raw, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	if msg == "" {
		msg = fmt.Sprintf("LinkedIn request failed with status %d", resp.StatusCode)
	}
	return msg
}

// The personal-profile API exposes no analytics surface; the sweep records
// these notes instead of metric rows.
func (p *LinkedInProvider) FetchAccountAnalytics(ctx context.Context, integ *models.Integration) AnalyticsResult {
	return AnalyticsResult{
		Success: true,
		Note:    "LinkedIn account analytics are not available for personal profiles",
	}
}

func (p *LinkedInProvider) FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) AnalyticsResult {
	return AnalyticsResult{
		Success: true,
		Note:    "LinkedIn post analytics are not available for personal profiles",
	}
}

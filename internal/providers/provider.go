package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

// SettingsSource reads workspace settings. Satisfied by the settings
// repository; kept as an interface so provider tests can stub tiers.
type SettingsSource interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// PublishResult is the outcome of a publish attempt. Expected platform
// failures (HTTP errors, missing media, processing timeouts) are reported
// with Success=false and a human-readable ErrorMessage, never as Go errors.
type PublishResult struct {
	Success      bool   `json:"success"`
	PostID       string `json:"post_id,omitempty"`
	PostURL      string `json:"post_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// AnalyticsResult carries a metric-name → value map for an account or post.
type AnalyticsResult struct {
	Success      bool               `json:"success"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Note         string             `json:"note,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

type TokenRefreshResult struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// MediaFile is one attachment passed to a provider. URL must be publicly
// reachable; platforms pull media from it or it is downloaded for binary
// upload paths.
type MediaFile struct {
	URL      string
	MIMEType string
	Size     int64
}

// PublishRequest is the plain-text content and routing flags for one publish
// call. Content must already be stripped of presentation markup.
type PublishRequest struct {
	Content    string
	Media      []MediaFile
	IsPost     bool
	IsStory    bool
	IsReel     bool
	Link       string
	CTA        string
	VideoTitle string
}

// Limits is the per-platform constraint table, enforced both at save-time
// validation and inside the provider.
type Limits struct {
	MaxContentLength  int
	MaxMediaCount     int
	MaxImages         int
	AllowsMultiVideo  bool
	SupportsMedia     bool
	AllowedImageTypes []string
	AllowedVideoTypes []string
	MaxImageSize      int64
	MaxVideoSize      int64
	StoryMaxImageSize int64
	StoryMaxVideoSize int64
	ReelMaxVideoSize  int64
	ReelMinDuration   int
	ReelMaxDuration   int
}

// RateLimiter gates publishes against per-platform daily budgets. Counters
// are best-effort; the queue's one-job-per-post dedup is the real concurrency
// control. Most providers use CheckAndIncrement; Twitter checks first and
// records only after the tweet is accepted, YouTube spends quota units.
type RateLimiter interface {
	Check(ctx context.Context, platform string) (bool, error)
	Increment(ctx context.Context, platform string) error
	CheckAndIncrement(ctx context.Context, platform string) (bool, error)
	CheckAndConsumeQuota(ctx context.Context, units int) (bool, error)
}

// Provider is the capability contract every platform integration satisfies.
// Implementations convert every expected failure into a result value; only
// programming faults may propagate, and the orchestrator catches those too.
type Provider interface {
	Platform() string
	Limits() Limits
	PublishPost(ctx context.Context, integ *models.Integration, req PublishRequest) PublishResult
	FetchAccountAnalytics(ctx context.Context, integ *models.Integration) AnalyticsResult
	FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) AnalyticsResult
	DailyLimit() int
	RefreshToken(ctx context.Context, integ *models.Integration) TokenRefreshResult
}

func unsupportedRefresh() TokenRefreshResult {
	return TokenRefreshResult{Success: false, ErrorMessage: "Token refresh not supported"}
}

// Registry resolves the closed platform set to provider instances. Providers
// are stateless across calls, so one instance per platform is shared.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(
	cfg config.Config,
	store *secrets.Store,
	limiter RateLimiter,
	settings SettingsSource,
	client *http.Client) *Registry {

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range []Provider{
		NewFacebookProvider(cfg, store, limiter, client),
		NewInstagramProvider(cfg, store, limiter, client),
		NewLinkedInProvider(cfg, store, limiter, client),
		NewTwitterProvider(cfg, store, limiter, settings, client),
		NewYouTubeProvider(cfg, store, limiter, client),
	} {
		r.providers[p.Platform()] = p
	}
	return r
}

// Register replaces the provider for its platform. Service tests use it to
// substitute stub providers.
func (r *Registry) Register(p Provider) {
	r.providers[p.Platform()] = p
}

// ForPlatform returns the provider for a platform; unknown names are an
// error since the set is closed.
func (r *Registry) ForPlatform(platform string) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
	return p, nil
}

// LimitsFor exposes the constraint table for validation without publishing.
func (r *Registry) LimitsFor(platform string) (Limits, error) {
	p, err := r.ForPlatform(platform)
	if err != nil {
		return Limits{}, err
	}
	return p.Limits(), nil
}

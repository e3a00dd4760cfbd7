package providers

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/secrets"
)

// videoInsertQuotaUnits is the Data API cost of one upload against the
// 10000-unit daily project quota.
const videoInsertQuotaUnits = 1600

type YouTubeProvider struct {
	cfg     config.Config
	store   *secrets.Store
	limiter RateLimiter
	client  *http.Client
}

func NewYouTubeProvider(cfg config.Config, store *secrets.Store, limiter RateLimiter, client *http.Client) *YouTubeProvider {
	return &YouTubeProvider{cfg: cfg, store: store, limiter: limiter, client: client}
}

func (p *YouTubeProvider) Platform() string { return models.PlatformYouTube }

// DailyLimit is quota-derived: six 1600-unit uploads fit in a 10000-unit day.
func (p *YouTubeProvider) DailyLimit() int { return 6 }

func (p *YouTubeProvider) Limits() Limits {
	return Limits{
		MaxContentLength:  5000,
		MaxMediaCount:     1,
		SupportsMedia:     true,
		AllowedVideoTypes: []string{"video/mp4", "video/quicktime"},
		MaxVideoSize:      4 * 1024 * 1024 * 1024,
	}
}

func (p *YouTubeProvider) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return youtube.NewService(ctx, option.WithTokenSource(tokenSource))
}

func (p *YouTubeProvider) PublishPost(ctx context.Context, integ *models.Integration, req PublishRequest) PublishResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" {
		return failure("YouTube credentials are missing")
	}

	_, videos := splitMedia(req.Media)
	if len(videos) != 1 {
		return failure("YouTube posts require exactly one video")
	}
	if req.VideoTitle == "" {
		return failure("YouTube posts require a video title")
	}

	allowed, err := p.limiter.CheckAndConsumeQuota(ctx, videoInsertQuotaUnits)
	if err != nil {
		slog.Info(err.Error())
	} else if !allowed {
		return failure("Daily YouTube API quota exhausted")
	}

	tmp, _, err := downloadToTemp(ctx, p.client, videos[0].URL)
	if err != nil {
		return failure("%s", err.Error())
	}
	defer os.Remove(tmp)

	f, err := os.Open(tmp)
	if err != nil {
		return failure("%s", err.Error())
	}
	defer f.Close()

	service, err := p.service(ctx, token)
	if err != nil {
		return failure("%s", err.Error())
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.VideoTitle,
			Description: req.Content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	uploaded, err := call.Media(f).Do()
	if err != nil {
		slog.Info(err.Error())
		return failure("%s", err.Error())
	}

	return PublishResult{
		Success: true,
		PostID:  uploaded.Id,
		PostURL: "https://www.youtube.com/watch?v=" + uploaded.Id,
	}
}

// RefreshToken goes through Google's token endpoint with the stored refresh
// token. Google does not rotate refresh tokens, so only the access token and
// expiry change.
func (p *YouTubeProvider) RefreshToken(ctx context.Context, integ *models.Integration) TokenRefreshResult {
	refresh, err := p.store.Decrypt(integ.RefreshToken)
	if err != nil || refresh == "" {
		return TokenRefreshResult{Success: false, ErrorMessage: "no refresh token stored"}
	}

	conf := &oauth2.Config{
		ClientID:     p.cfg.Google.ClientID,
		ClientSecret: p.cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		slog.Info(err.Error())
		return TokenRefreshResult{Success: false, ErrorMessage: err.Error()}
	}

	expiresIn := int64(0)
	if !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	return TokenRefreshResult{
		Success:      true,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}

func (p *YouTubeProvider) FetchAccountAnalytics(ctx context.Context, integ *models.Integration) AnalyticsResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" {
		return analyticsFailure("YouTube credentials are missing")
	}

	service, err := p.service(ctx, token)
	if err != nil {
		return analyticsFailure("%s", err.Error())
	}

	resp, err := service.Channels.List([]string{"statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return analyticsFailure("%s", err.Error())
	}
	if len(resp.Items) == 0 {
		return analyticsFailure("no channel found for this account")
	}

	stats := resp.Items[0].Statistics
	return AnalyticsResult{
		Success: true,
		Metrics: map[string]float64{
			"followers": float64(stats.SubscriberCount),
			"views":     float64(stats.ViewCount),
			"posts":     float64(stats.VideoCount),
		},
	}
}

func (p *YouTubeProvider) FetchPostAnalytics(ctx context.Context, platformPostID string, integ *models.Integration) AnalyticsResult {
	token, err := p.store.Decrypt(integ.AccessToken)
	if err != nil || token == "" {
		return analyticsFailure("YouTube credentials are missing")
	}

	service, err := p.service(ctx, token)
	if err != nil {
		return analyticsFailure("%s", err.Error())
	}

	resp, err := service.Videos.List([]string{"statistics"}).Id(platformPostID).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return analyticsFailure("%s", err.Error())
	}
	if len(resp.Items) == 0 {
		return analyticsFailure("video not found")
	}

	stats := resp.Items[0].Statistics
	return AnalyticsResult{
		Success: true,
		Metrics: map[string]float64{
			"likes":       float64(stats.LikeCount),
			"comments":    float64(stats.CommentCount),
			"views":       float64(stats.ViewCount),
			"impressions": float64(stats.ViewCount),
		},
	}
}

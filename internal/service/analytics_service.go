package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/providers"
	"github.com/maheshrc27/socialflow/internal/repository"
)

// postAnalyticsLookbackDays bounds the hourly post-metrics sweep to recently
// published posts.
const postAnalyticsLookbackDays = 7

// AnalyticsService harvests account and post metrics from the providers and
// maintains the daily snapshot history.
type AnalyticsService struct {
	integrations  repository.IntegrationRepository
	posts         repository.PostRepository
	accounts      repository.AnalyticsRepository
	postSnapshots repository.PostAnalyticsRepository
	registry      *providers.Registry
}

func NewAnalyticsService(
	integrations repository.IntegrationRepository,
	posts repository.PostRepository,
	accounts repository.AnalyticsRepository,
	postSnapshots repository.PostAnalyticsRepository,
	registry *providers.Registry) *AnalyticsService {
	return &AnalyticsService{
		integrations:  integrations,
		posts:         posts,
		accounts:      accounts,
		postSnapshots: postSnapshots,
		registry:      registry,
	}
}

// ListConnectedIntegrations enumerates the accounts the hourly sweeps cover.
func (s *AnalyticsService) ListConnectedIntegrations(ctx context.Context) ([]*models.Integration, error) {
	return s.integrations.ListConnected(ctx)
}

// ListPostsForSweep returns published posts inside the lookback window.
func (s *AnalyticsService) ListPostsForSweep(ctx context.Context) ([]*models.Post, error) {
	since := time.Now().AddDate(0, 0, -postAnalyticsLookbackDays)
	return s.posts.ListPublishedSince(ctx, since)
}

// FetchAccountAnalytics pulls today's account metrics for one integration,
// upserts the daily snapshot, and rewrites its metric-history rows with
// change tracking against the previous snapshot.
func (s *AnalyticsService) FetchAccountAnalytics(ctx context.Context, integrationID int64) (*models.AccountAnalytics, error) {
	integ, err := s.integrations.GetByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if integ == nil {
		return nil, fmt.Errorf("integration not found")
	}

	provider, err := s.registry.ForPlatform(integ.Platform)
	if err != nil {
		return nil, err
	}

	result := provider.FetchAccountAnalytics(ctx, integ)
	if !result.Success {
		return nil, fmt.Errorf("analytics fetch failed: %s", result.ErrorMessage)
	}
	if result.Note != "" && len(result.Metrics) == 0 {
		slog.Info(fmt.Sprintf("no analytics for integration %d: %s", integrationID, result.Note))
		return nil, nil
	}

	today := startOfDay(time.Now())
	snapshot := snapshotFromMetrics(integ, today, result.Metrics)
	snapshot.CalculateEngagementRate()

	// Resolve the baseline by date so refetching on the same day keeps
	// comparing against yesterday instead of today's own row.
	previous, err := s.accounts.GetSnapshot(ctx, integrationID, today.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	if previous != nil {
		if previous.Metrics, err = s.accounts.GetMetrics(ctx, previous.ID); err != nil {
			return nil, err
		}
	}

	id, err := s.accounts.UpsertSnapshot(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	snapshot.ID = id

	snapshot.Metrics = buildMetricHistory(result.Metrics, previous)
	if err := s.accounts.ReplaceMetrics(ctx, id, snapshot.Metrics); err != nil {
		return nil, err
	}

	if followers, ok := result.Metrics["followers"]; ok {
		if err := s.integrations.UpdateFollowersCount(ctx, integ.ID, int64(followers)); err != nil {
			slog.Info(err.Error())
		}
	}

	return snapshot, nil
}

// FetchPostAnalytics records one post-level snapshot, at most once per
// calendar day per post.
func (s *AnalyticsService) FetchPostAnalytics(ctx context.Context, postID int64) (*models.PostAnalytics, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post not found")
	}
	if post.PlatformPostID == "" {
		return nil, fmt.Errorf("post has not been published")
	}

	latest, err := s.postSnapshots.GetLatestByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if latest != nil && sameDay(latest.FetchedAt, time.Now()) {
		return latest, nil
	}

	integ, err := s.integrations.GetByID(ctx, post.IntegrationID)
	if err != nil {
		return nil, err
	}
	if integ == nil {
		return nil, fmt.Errorf("integration not found")
	}

	provider, err := s.registry.ForPlatform(post.Platform)
	if err != nil {
		return nil, err
	}

	result := provider.FetchPostAnalytics(ctx, post.PlatformPostID, integ)
	if !result.Success {
		return nil, fmt.Errorf("analytics fetch failed: %s", result.ErrorMessage)
	}
	if result.Note != "" && len(result.Metrics) == 0 {
		slog.Info(fmt.Sprintf("no analytics for post %d: %s", postID, result.Note))
		return nil, nil
	}

	m := result.Metrics
	snapshot := &models.PostAnalytics{
		PostID:         post.ID,
		IntegrationID:  post.IntegrationID,
		Platform:       post.Platform,
		PlatformPostID: post.PlatformPostID,
		Impressions:    metricInt(m, "impressions"),
		Reach:          metricInt(m, "reach"),
		Likes:          metricInt(m, "likes"),
		Comments:       metricInt(m, "comments"),
		Shares:         metricInt(m, "shares"),
		Saves:          metricInt(m, "saves"),
		Clicks:         metricInt(m, "clicks"),
		VideoViews:     metricInt(m, "views"),
		FetchedAt:      time.Now(),
	}
	snapshot.CalculateEngagementRate()

	id, err := s.postSnapshots.Create(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	snapshot.ID = id
	return snapshot, nil
}

// GetAccountHistory returns the snapshot series (with metric rows) for the
// last `days` days.
func (s *AnalyticsService) GetAccountHistory(ctx context.Context, integrationID int64, days int) ([]*models.AccountAnalytics, error) {
	if days <= 0 {
		days = 30
	}
	to := startOfDay(time.Now())
	from := to.AddDate(0, 0, -days)
	snapshots, err := s.accounts.ListSnapshots(ctx, integrationID, from, to)
	if err != nil {
		return nil, err
	}
	for _, snapshot := range snapshots {
		metrics, err := s.accounts.GetMetrics(ctx, snapshot.ID)
		if err != nil {
			return nil, err
		}
		snapshot.Metrics = metrics
	}
	return snapshots, nil
}

func (s *AnalyticsService) GetPostHistory(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	return s.postSnapshots.ListByPostID(ctx, postID)
}

func (s *AnalyticsService) TopPosts(ctx context.Context, platform string, limit int) ([]*models.PostAnalytics, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.postSnapshots.TopPosts(ctx, platform, limit)
}

func (s *AnalyticsService) ComparePlatforms(ctx context.Context) (map[string]float64, error) {
	return s.postSnapshots.AverageEngagementByPlatform(ctx)
}

func snapshotFromMetrics(integ *models.Integration, date time.Time, m map[string]float64) *models.AccountAnalytics {
	return &models.AccountAnalytics{
		IntegrationID:  integ.ID,
		Platform:       integ.Platform,
		Date:           date,
		FollowersCount: metricInt(m, "followers"),
		FollowingCount: metricInt(m, "following"),
		PostsCount:     metricInt(m, "posts"),
		Impressions:    metricInt(m, "impressions"),
		Reach:          metricInt(m, "reach"),
		Likes:          metricInt(m, "likes"),
		Comments:       metricInt(m, "comments"),
		Shares:         metricInt(m, "shares"),
		Saves:          metricInt(m, "saves"),
		VideoViews:     metricInt(m, "views"),
	}
}

// buildMetricHistory computes per-metric change rows against the previous
// day's snapshot. A metric absent yesterday gets previous=0.
func buildMetricHistory(current map[string]float64, previous *models.AccountAnalytics) []*models.AnalyticsMetric {
	previousValues := make(map[string]float64)
	if previous != nil {
		for _, m := range previous.Metrics {
			previousValues[m.MetricName] = m.MetricValue
		}
		if len(previousValues) == 0 {
			// Older snapshots may predate metric rows; fall back to columns.
			previousValues["followers"] = float64(previous.FollowersCount)
			previousValues["following"] = float64(previous.FollowingCount)
			previousValues["posts"] = float64(previous.PostsCount)
			previousValues["impressions"] = float64(previous.Impressions)
			previousValues["reach"] = float64(previous.Reach)
			previousValues["likes"] = float64(previous.Likes)
			previousValues["comments"] = float64(previous.Comments)
			previousValues["shares"] = float64(previous.Shares)
			previousValues["saves"] = float64(previous.Saves)
			previousValues["views"] = float64(previous.VideoViews)
		}
	}

	metrics := make([]*models.AnalyticsMetric, 0, len(current))
	for name, value := range current {
		prev := previousValues[name]
		change := value - prev
		var changePct float64
		if prev != 0 {
			changePct = math.Round(change/prev*100*100) / 100
		}
		metrics = append(metrics, &models.AnalyticsMetric{
			MetricName:    name,
			MetricValue:   value,
			PreviousValue: prev,
			Change:        change,
			ChangePercent: changePct,
		})
	}
	return metrics
}

func metricInt(m map[string]float64, name string) int64 {
	return int64(m[name])
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/providers"
)

type memAnalyticsRepo struct {
	nextID    int64
	snapshots map[int64]*models.AccountAnalytics
	metrics   map[int64][]*models.AnalyticsMetric
}

func newMemAnalyticsRepo() *memAnalyticsRepo {
	return &memAnalyticsRepo{
		nextID:    1,
		snapshots: make(map[int64]*models.AccountAnalytics),
		metrics:   make(map[int64][]*models.AnalyticsMetric),
	}
}

func (r *memAnalyticsRepo) GetSnapshot(ctx context.Context, integrationID int64, date time.Time) (*models.AccountAnalytics, error) {
	for _, s := range r.snapshots {
		if s.IntegrationID == integrationID && sameDay(s.Date, date) {
			clone := *s
			clone.Metrics = nil
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memAnalyticsRepo) ListSnapshots(ctx context.Context, integrationID int64, from, to time.Time) ([]*models.AccountAnalytics, error) {
	var out []*models.AccountAnalytics
	for _, s := range r.snapshots {
		if s.IntegrationID == integrationID && !s.Date.Before(from) && !s.Date.After(to) {
			clone := *s
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memAnalyticsRepo) UpsertSnapshot(ctx context.Context, snapshot *models.AccountAnalytics) (int64, error) {
	for id, s := range r.snapshots {
		if s.IntegrationID == snapshot.IntegrationID && sameDay(s.Date, snapshot.Date) {
			clone := *snapshot
			clone.ID = id
			r.snapshots[id] = &clone
			return id, nil
		}
	}
	id := r.nextID
	r.nextID++
	clone := *snapshot
	clone.ID = id
	r.snapshots[id] = &clone
	return id, nil
}

func (r *memAnalyticsRepo) ReplaceMetrics(ctx context.Context, analyticsID int64, metrics []*models.AnalyticsMetric) error {
	rows := make([]*models.AnalyticsMetric, 0, len(metrics))
	for _, m := range metrics {
		clone := *m
		clone.AnalyticsID = analyticsID
		rows = append(rows, &clone)
	}
	r.metrics[analyticsID] = rows
	return nil
}

func (r *memAnalyticsRepo) GetMetrics(ctx context.Context, analyticsID int64) ([]*models.AnalyticsMetric, error) {
	return r.metrics[analyticsID], nil
}

type memPostAnalyticsRepo struct {
	nextID    int64
	snapshots []*models.PostAnalytics
}

func newMemPostAnalyticsRepo() *memPostAnalyticsRepo {
	return &memPostAnalyticsRepo{nextID: 1}
}

func (r *memPostAnalyticsRepo) GetLatestByPostID(ctx context.Context, postID int64) (*models.PostAnalytics, error) {
	var latest *models.PostAnalytics
	for _, s := range r.snapshots {
		if s.PostID != postID {
			continue
		}
		if latest == nil || s.FetchedAt.After(latest.FetchedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *memPostAnalyticsRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	var out []*models.PostAnalytics
	for _, s := range r.snapshots {
		if s.PostID == postID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memPostAnalyticsRepo) Create(ctx context.Context, pa *models.PostAnalytics) (int64, error) {
	id := r.nextID
	r.nextID++
	clone := *pa
	clone.ID = id
	r.snapshots = append(r.snapshots, &clone)
	return id, nil
}

func (r *memPostAnalyticsRepo) TopPosts(ctx context.Context, platform string, limit int) ([]*models.PostAnalytics, error) {
	latest := make(map[int64]*models.PostAnalytics)
	for _, s := range r.snapshots {
		if platform != "" && s.Platform != platform {
			continue
		}
		if cur, ok := latest[s.PostID]; !ok || s.FetchedAt.After(cur.FetchedAt) {
			latest[s.PostID] = s
		}
	}
	var out []*models.PostAnalytics
	for _, s := range latest {
		clone := *s
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EngagementRate > out[j].EngagementRate })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPostAnalyticsRepo) AverageEngagementByPlatform(ctx context.Context) (map[string]float64, error) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range r.snapshots {
		sums[s.Platform] += s.EngagementRate
		counts[s.Platform]++
	}
	out := make(map[string]float64, len(sums))
	for platform, sum := range sums {
		out[platform] = sum / float64(counts[platform])
	}
	return out, nil
}

type analyticsFixture struct {
	svc           *AnalyticsService
	posts         *memPostRepo
	integrations  *memIntegrationRepo
	accounts      *memAnalyticsRepo
	postSnapshots *memPostAnalyticsRepo
	provider      *stubProvider
}

func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	posts := newMemPostRepo()
	integrations := newMemIntegrationRepo()
	accounts := newMemAnalyticsRepo()
	postSnapshots := newMemPostAnalyticsRepo()

	registry := testRegistry()
	provider := &stubProvider{platform: models.PlatformTwitter}
	registry.Register(provider)

	svc := NewAnalyticsService(integrations, posts, accounts, postSnapshots, registry)
	return &analyticsFixture{
		svc:           svc,
		posts:         posts,
		integrations:  integrations,
		accounts:      accounts,
		postSnapshots: postSnapshots,
		provider:      provider,
	}
}

func (f *analyticsFixture) integration() *models.Integration {
	return f.integrations.add(&models.Integration{
		Platform:         models.PlatformTwitter,
		Enabled:          true,
		ConnectionStatus: models.ConnectionConnected,
	})
}

func TestFetchAccountAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("first snapshot has zero previous values", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()
		f.provider.accountResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{"followers": 1000, "likes": 50, "reach": 500},
		}

		snapshot, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.NoError(t, err)
		require.NotNil(t, snapshot)

		assert.Equal(t, int64(1000), snapshot.FollowersCount)
		assert.Equal(t, float64(10), snapshot.EngagementRate, "50 interactions over 500 reach")

		require.Len(t, snapshot.Metrics, 3)
		for _, m := range snapshot.Metrics {
			assert.Zero(t, m.PreviousValue)
			assert.Zero(t, m.ChangePercent)
		}
	})

	t.Run("change tracked against previous day", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()

		yesterday := startOfDay(time.Now().AddDate(0, 0, -1))
		prevID, err := f.accounts.UpsertSnapshot(ctx, &models.AccountAnalytics{
			IntegrationID:  integ.ID,
			Platform:       integ.Platform,
			Date:           yesterday,
			FollowersCount: 900,
		})
		require.NoError(t, err)
		require.NoError(t, f.accounts.ReplaceMetrics(ctx, prevID, []*models.AnalyticsMetric{
			{MetricName: "followers", MetricValue: 900},
		}))

		f.provider.accountResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{"followers": 990},
		}

		snapshot, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.NoError(t, err)
		require.Len(t, snapshot.Metrics, 1)

		m := snapshot.Metrics[0]
		assert.Equal(t, float64(900), m.PreviousValue)
		assert.Equal(t, float64(90), m.Change)
		assert.Equal(t, float64(10), m.ChangePercent)
	})

	t.Run("same-day refetch replaces the snapshot", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()
		f.provider.accountResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{"followers": 1000},
		}

		first, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.NoError(t, err)

		f.provider.accountResult.Metrics["followers"] = 1010
		second, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID, "one snapshot row per integration per day")
		assert.Equal(t, int64(1010), second.FollowersCount)
	})

	t.Run("same-day refetch keeps the previous-day baseline", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()

		yesterday := startOfDay(time.Now().AddDate(0, 0, -1))
		prevID, err := f.accounts.UpsertSnapshot(ctx, &models.AccountAnalytics{
			IntegrationID:  integ.ID,
			Platform:       integ.Platform,
			Date:           yesterday,
			FollowersCount: 900,
		})
		require.NoError(t, err)
		require.NoError(t, f.accounts.ReplaceMetrics(ctx, prevID, []*models.AnalyticsMetric{
			{MetricName: "followers", MetricValue: 900},
		}))

		f.provider.accountResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{"followers": 990},
		}

		// The hourly sweep fetches the same integration more than once a
		// day; the second run must not compare against today's own row.
		for run := 0; run < 2; run++ {
			snapshot, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
			require.NoError(t, err)
			require.Len(t, snapshot.Metrics, 1)

			m := snapshot.Metrics[0]
			assert.Equal(t, float64(900), m.PreviousValue)
			assert.Equal(t, float64(90), m.Change)
			assert.Equal(t, float64(10), m.ChangePercent)
		}
	})

	t.Run("followers count synced to the integration", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()
		f.provider.accountResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{"followers": 4200},
		}

		_, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.NoError(t, err)

		stored, _ := f.integrations.GetByID(ctx, integ.ID)
		assert.Equal(t, int64(4200), stored.FollowersCount)
	})

	t.Run("note without metrics stores nothing", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()
		f.provider.accountResult = providers.AnalyticsResult{
			Success: true,
			Note:    "requires Marketing Developer Platform access",
		}

		snapshot, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.NoError(t, err)
		assert.Nil(t, snapshot)
		assert.Empty(t, f.accounts.snapshots)
	})

	t.Run("provider failure surfaces the message", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()
		f.provider.accountResult = providers.AnalyticsResult{
			Success:      false,
			ErrorMessage: "token rejected",
		}

		_, err := f.svc.FetchAccountAnalytics(ctx, integ.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token rejected")
	})
}

func TestFetchPostAnalytics(t *testing.T) {
	ctx := context.Background()

	newPublishedPost := func(f *analyticsFixture) *models.Post {
		integ := f.integration()
		id, _ := f.posts.Create(ctx, &models.Post{
			Platform:       models.PlatformTwitter,
			IntegrationID:  integ.ID,
			Status:         models.PostStatusPublished,
			PlatformPostID: "tweet-9",
		})
		p, _ := f.posts.GetByID(ctx, id)
		return p
	}

	t.Run("records a snapshot with engagement", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		post := newPublishedPost(f)
		f.provider.postResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{
				"likes": 40, "comments": 5, "shares": 5, "impressions": 1000,
			},
		}

		snapshot, err := f.svc.FetchPostAnalytics(ctx, post.ID)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "tweet-9", snapshot.PlatformPostID)
		assert.Equal(t, float64(5), snapshot.EngagementRate)
	})

	t.Run("same-day refetch returns the cached snapshot", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		post := newPublishedPost(f)
		f.provider.postResult = providers.AnalyticsResult{
			Success: true,
			Metrics: map[string]float64{"likes": 1, "impressions": 100},
		}

		first, err := f.svc.FetchPostAnalytics(ctx, post.ID)
		require.NoError(t, err)

		f.provider.postResult.Metrics["likes"] = 99
		second, err := f.svc.FetchPostAnalytics(ctx, post.ID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, int64(1), second.Likes, "no second fetch on the same day")
		assert.Len(t, f.postSnapshots.snapshots, 1)
	})

	t.Run("unpublished post rejected", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		integ := f.integration()
		id, _ := f.posts.Create(ctx, &models.Post{
			Platform:      models.PlatformTwitter,
			IntegrationID: integ.ID,
			Status:        models.PostStatusDraft,
		})

		_, err := f.svc.FetchPostAnalytics(ctx, id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has not been published")
	})
}

func TestTopPostsAndComparePlatforms(t *testing.T) {
	ctx := context.Background()
	f := newAnalyticsFixture(t)

	now := time.Now()
	for i, rate := range []float64{2.5, 7.5, 5.0} {
		_, err := f.postSnapshots.Create(ctx, &models.PostAnalytics{
			PostID:         int64(i + 1),
			Platform:       models.PlatformTwitter,
			EngagementRate: rate,
			FetchedAt:      now,
		})
		require.NoError(t, err)
	}
	_, err := f.postSnapshots.Create(ctx, &models.PostAnalytics{
		PostID:         10,
		Platform:       models.PlatformFacebook,
		EngagementRate: 4.0,
		FetchedAt:      now,
	})
	require.NoError(t, err)

	top, err := f.svc.TopPosts(ctx, models.PlatformTwitter, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 7.5, top[0].EngagementRate)
	assert.Equal(t, 5.0, top[1].EngagementRate)

	averages, err := f.svc.ComparePlatforms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, averages[models.PlatformTwitter])
	assert.Equal(t, 4.0, averages[models.PlatformFacebook])
}

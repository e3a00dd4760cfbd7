package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/models"
)

type fakeCounters struct {
	values map[string]int64
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: make(map[string]int64)}
}

func (f *fakeCounters) Incr(ctx context.Context, key string) (int64, error) {
	f.values[key]++
	return f.values[key], nil
}

func (f *fakeCounters) Get(ctx context.Context, key string) (int64, error) {
	return f.values[key], nil
}

func (f *fakeCounters) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

type fakeSettings struct {
	settings *models.Settings
}

func (f *fakeSettings) Get(ctx context.Context) (*models.Settings, error) {
	return f.settings, nil
}

func (f *fakeSettings) Save(ctx context.Context, s *models.Settings) error {
	f.settings = s
	return nil
}

func newLimiter(settings *models.Settings) (*Limiter, *fakeCounters, *fakeSettings) {
	counters := newFakeCounters()
	store := &fakeSettings{settings: settings}
	return New(counters, store), counters, store
}

func TestCheckAndIncrementStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	limiter, _, _ := newLimiter(&models.Settings{TwitterTier: "Free"})

	for i := 0; i < 17; i++ {
		allowed, err := limiter.CheckAndIncrement(ctx, models.PlatformTwitter)
		require.NoError(t, err)
		require.True(t, allowed, "post %d should be allowed", i+1)
	}

	allowed, err := limiter.CheckAndIncrement(ctx, models.PlatformTwitter)
	require.NoError(t, err)
	assert.False(t, allowed, "post 18 must exceed the Free tier")
}

func TestTwitterLimitFollowsTier(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		tier  string
		limit int
	}{
		{"Free", 17},
		{"Basic", 100},
		{"Pro", 1000},
		{"Enterprise", 10000},
		{"unknown", 17},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			limiter, counters, _ := newLimiter(&models.Settings{TwitterTier: tt.tier})
			counters.values["rate_limit:twitter"] = int64(tt.limit - 1)

			allowed, err := limiter.Check(ctx, models.PlatformTwitter)
			require.NoError(t, err)
			assert.True(t, allowed)

			counters.values["rate_limit:twitter"] = int64(tt.limit)
			allowed, err = limiter.Check(ctx, models.PlatformTwitter)
			require.NoError(t, err)
			assert.False(t, allowed)
		})
	}
}

func TestIncrementMirrorsSettingsCounters(t *testing.T) {
	ctx := context.Background()
	limiter, counters, store := newLimiter(&models.Settings{TwitterTier: "Basic"})

	require.NoError(t, limiter.Increment(ctx, models.PlatformTwitter))
	require.NoError(t, limiter.Increment(ctx, models.PlatformInstagram))
	require.NoError(t, limiter.Increment(ctx, models.PlatformFacebook))

	assert.Equal(t, int64(1), counters.values["rate_limit:twitter"])
	assert.Equal(t, int64(1), counters.values["rate_limit:instagram"])
	assert.Equal(t, int64(1), counters.values["rate_limit:facebook"])
	assert.Equal(t, 1, store.settings.TwitterPostsToday)
	assert.Equal(t, 1, store.settings.InstagramPostsToday)
}

func TestYouTubeHasNoPostCounter(t *testing.T) {
	ctx := context.Background()
	limiter, counters, _ := newLimiter(&models.Settings{})
	counters.values["rate_limit:youtube"] = 1000000

	allowed, err := limiter.Check(ctx, models.PlatformYouTube)
	require.NoError(t, err)
	assert.True(t, allowed, "YouTube is gated by quota units, not a post counter")
}

func TestCheckAndConsumeQuota(t *testing.T) {
	ctx := context.Background()
	limiter, _, store := newLimiter(&models.Settings{YouTubeQuotaUsed: 9000})

	allowed, err := limiter.CheckAndConsumeQuota(ctx, 1600)
	require.NoError(t, err)
	assert.False(t, allowed, "9000+1600 exceeds the 10000 budget")
	assert.Equal(t, 9000, store.settings.YouTubeQuotaUsed, "a rejected consume must not spend units")

	store.settings.YouTubeQuotaUsed = 8000
	allowed, err = limiter.CheckAndConsumeQuota(ctx, 1600)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 9600, store.settings.YouTubeQuotaUsed)
}

func TestResetDailyCounters(t *testing.T) {
	ctx := context.Background()
	yesterday := time.Now().AddDate(0, 0, -1)
	limiter, counters, store := newLimiter(&models.Settings{
		TwitterPostsToday:     5,
		InstagramPostsToday:   3,
		YouTubeQuotaUsed:      4000,
		YouTubeQuotaResetDate: &yesterday,
	})
	counters.values["rate_limit:twitter"] = 5
	counters.values["rate_limit:instagram"] = 3

	require.NoError(t, limiter.ResetDailyCounters(ctx))

	assert.Empty(t, counters.values)
	assert.Zero(t, store.settings.TwitterPostsToday)
	assert.Zero(t, store.settings.InstagramPostsToday)
	assert.Zero(t, store.settings.YouTubeQuotaUsed, "quota resets when the date changed")
}

func TestResetKeepsQuotaWithinSameDay(t *testing.T) {
	ctx := context.Background()
	today := startOfDay(time.Now())
	limiter, _, store := newLimiter(&models.Settings{
		YouTubeQuotaUsed:      4000,
		YouTubeQuotaResetDate: &today,
	})

	require.NoError(t, limiter.ResetDailyCounters(ctx))

	assert.Equal(t, 4000, store.settings.YouTubeQuotaUsed, "a same-day reset must not refresh quota")
}

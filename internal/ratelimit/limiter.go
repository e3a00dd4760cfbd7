package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

// CounterStore is the small slice of Redis the limiter needs. A fixed-map
// fake stands in for it in tests.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// SettingsStore reads and writes workspace settings (Twitter tier, day
// counters, YouTube quota ledger).
type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) error
}

// Limiter tracks per-platform daily publish counts in Redis and the YouTube
// quota ledger in settings. Counters are advisory: they stop runaway sweeps,
// not concurrent racers, which the queue's task dedup already prevents.
type Limiter struct {
	counters CounterStore
	settings SettingsStore
}

func New(counters CounterStore, settings SettingsStore) *Limiter {
	return &Limiter{counters: counters, settings: settings}
}

func counterKey(platform string) string {
	return "rate_limit:" + strings.ToLower(platform)
}

// limitFor resolves the daily budget; a negative value means the platform is
// not gated by a post counter (YouTube is gated by quota units instead).
func (l *Limiter) limitFor(ctx context.Context, platform string) int {
	switch platform {
	case models.PlatformFacebook:
		return 200
	case models.PlatformInstagram:
		return 25
	case models.PlatformLinkedIn:
		return 150
	case models.PlatformTwitter:
		s, err := l.settings.Get(ctx)
		if err != nil || s == nil {
			return models.TwitterTierLimits["Free"]
		}
		return s.TwitterDailyLimit()
	default:
		return -1
	}
}

func (l *Limiter) Check(ctx context.Context, platform string) (bool, error) {
	limit := l.limitFor(ctx, platform)
	if limit < 0 {
		return true, nil
	}
	count, err := l.counters.Get(ctx, counterKey(platform))
	if err != nil {
		return false, err
	}
	return count < int64(limit), nil
}

func (l *Limiter) Increment(ctx context.Context, platform string) error {
	if _, err := l.counters.Incr(ctx, counterKey(platform)); err != nil {
		return err
	}
	// Mirror the counters that settings exposes for operator visibility.
	if platform == models.PlatformTwitter || platform == models.PlatformInstagram {
		s, err := l.settings.Get(ctx)
		if err != nil || s == nil {
			if err != nil {
				slog.Info(err.Error())
			}
			return nil
		}
		switch platform {
		case models.PlatformTwitter:
			s.TwitterPostsToday++
		case models.PlatformInstagram:
			s.InstagramPostsToday++
		}
		if err := l.settings.Save(ctx, s); err != nil {
			slog.Info(err.Error())
		}
	}
	return nil
}

func (l *Limiter) CheckAndIncrement(ctx context.Context, platform string) (bool, error) {
	allowed, err := l.Check(ctx, platform)
	if err != nil || !allowed {
		return allowed, err
	}
	return true, l.Increment(ctx, platform)
}

// CheckAndConsumeQuota spends YouTube Data API units against the daily
// budget. The ledger lives in settings so it survives Redis flushes.
func (l *Limiter) CheckAndConsumeQuota(ctx context.Context, units int) (bool, error) {
	s, err := l.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	if s == nil {
		s = &models.Settings{}
	}
	if s.YouTubeQuotaUsed+units > s.YouTubeQuotaBudget() {
		return false, nil
	}
	s.YouTubeQuotaUsed += units
	if s.YouTubeQuotaResetDate == nil {
		now := startOfDay(time.Now())
		s.YouTubeQuotaResetDate = &now
	}
	return true, l.settings.Save(ctx, s)
}

// ResetDailyCounters clears every platform counter and zeroes the settings
// mirrors. The YouTube quota resets only when the calendar date actually
// changed, so a mid-day restart of the job cannot hand out fresh quota.
func (l *Limiter) ResetDailyCounters(ctx context.Context) error {
	keys := make([]string, 0, len(models.AllPlatforms()))
	for _, platform := range models.AllPlatforms() {
		keys = append(keys, counterKey(platform))
	}
	if err := l.counters.Del(ctx, keys...); err != nil {
		return err
	}

	s, err := l.settings.Get(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	s.TwitterPostsToday = 0
	s.InstagramPostsToday = 0

	today := startOfDay(time.Now())
	if s.YouTubeQuotaResetDate == nil || s.YouTubeQuotaResetDate.Before(today) {
		s.YouTubeQuotaUsed = 0
		s.YouTubeQuotaResetDate = &today
	}
	return l.settings.Save(ctx, s)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

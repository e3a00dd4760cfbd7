package models

import "time"

// Twitter API tiers and their daily tweet allowances.
var TwitterTierLimits = map[string]int{
	"Free":       17,
	"Basic":      100,
	"Pro":        1000,
	"Enterprise": 10000,
}

// Settings is the single platform-settings row: API tier selection plus the
// daily counters the rate limiter persists across restarts.
type Settings struct {
	ID                    int64      `db:"id" json:"id"`
	TwitterTier           string     `db:"twitter_tier" json:"twitter_tier"`
	TwitterPostsToday     int        `db:"twitter_posts_today" json:"twitter_posts_today"`
	InstagramPostsToday   int        `db:"instagram_posts_today" json:"instagram_posts_today"`
	YouTubeQuotaUsed      int        `db:"youtube_quota_used" json:"youtube_quota_used"`
	YouTubeQuotaLimit     int        `db:"youtube_quota_limit" json:"youtube_quota_limit"`
	YouTubeQuotaResetDate *time.Time `db:"youtube_quota_reset_date" json:"youtube_quota_reset_date"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// TwitterDailyLimit resolves the tier to its daily tweet cap, defaulting to
// the Free tier.
func (s *Settings) TwitterDailyLimit() int {
	if limit, ok := TwitterTierLimits[s.TwitterTier]; ok {
		return limit
	}
	return TwitterTierLimits["Free"]
}

// YouTubeQuotaBudget returns the configured daily quota-unit budget,
// defaulting to the platform's standard 10,000 units.
func (s *Settings) YouTubeQuotaBudget() int {
	if s.YouTubeQuotaLimit > 0 {
		return s.YouTubeQuotaLimit
	}
	return 10000
}

package models

import (
	"math"
	"time"
)

// AccountAnalytics is one account-level snapshot, one row per integration per
// day. The typed columns are a denormalized copy of the metric map; the
// canonical representation is the Metrics history rows.
type AccountAnalytics struct {
	ID             int64     `db:"id" json:"id"`
	IntegrationID  int64     `db:"integration_id" json:"integration_id"`
	Platform       string    `db:"platform" json:"platform"`
	Date           time.Time `db:"date" json:"date"`
	FollowersCount int64     `db:"followers_count" json:"followers_count"`
	FollowingCount int64     `db:"following_count" json:"following_count"`
	PostsCount     int64     `db:"posts_count" json:"posts_count"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Reach          int64     `db:"reach" json:"reach"`
	Likes          int64     `db:"likes" json:"likes"`
	Comments       int64     `db:"comments" json:"comments"`
	Shares         int64     `db:"shares" json:"shares"`
	Saves          int64     `db:"saves" json:"saves"`
	VideoViews     int64     `db:"video_views" json:"video_views"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`

	Metrics []*AnalyticsMetric `db:"-" json:"metrics,omitempty"`
}

// AnalyticsMetric is one named metric within a snapshot, with the previous
// day's value for trend display.
type AnalyticsMetric struct {
	ID            int64   `db:"id" json:"id"`
	AnalyticsID   int64   `db:"analytics_id" json:"analytics_id"`
	MetricName    string  `db:"metric_name" json:"metric_name"`
	MetricValue   float64 `db:"metric_value" json:"metric_value"`
	PreviousValue float64 `db:"previous_value" json:"previous_value"`
	Change        float64 `db:"change" json:"change"`
	ChangePercent float64 `db:"change_percent" json:"change_percent"`
}

// PostAnalytics is one post-level snapshot, refreshed at most once per
// calendar day.
type PostAnalytics struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	IntegrationID  int64     `db:"integration_id" json:"integration_id"`
	Platform       string    `db:"platform" json:"platform"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Reach          int64     `db:"reach" json:"reach"`
	Likes          int64     `db:"likes" json:"likes"`
	Comments       int64     `db:"comments" json:"comments"`
	Shares         int64     `db:"shares" json:"shares"`
	Saves          int64     `db:"saves" json:"saves"`
	Clicks         int64     `db:"clicks" json:"clicks"`
	VideoViews     int64     `db:"video_views" json:"video_views"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	FetchedAt      time.Time `db:"fetched_at" json:"fetched_at"`
}

// EngagementRate returns the interaction density as a percentage, rounded to
// two decimals. Reach is the denominator when positive, then impressions,
// else zero. Every analytics computation in the system uses this fallback.
func EngagementRate(likes, comments, shares, saves, reach, impressions int64) float64 {
	total := float64(likes + comments + shares + saves)
	switch {
	case reach > 0:
		return math.Round(total/float64(reach)*100*100) / 100
	case impressions > 0:
		return math.Round(total/float64(impressions)*100*100) / 100
	default:
		return 0
	}
}

// CalculateEngagementRate recomputes the snapshot's rate from its counters.
func (a *AccountAnalytics) CalculateEngagementRate() {
	a.EngagementRate = EngagementRate(a.Likes, a.Comments, a.Shares, a.Saves, a.Reach, a.Impressions)
}

func (pa *PostAnalytics) CalculateEngagementRate() {
	pa.EngagementRate = EngagementRate(pa.Likes, pa.Comments, pa.Shares, pa.Saves, pa.Reach, pa.Impressions)
}

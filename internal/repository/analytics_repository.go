package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type AnalyticsRepository interface {
	GetSnapshot(ctx context.Context, integrationID int64, date time.Time) (*models.AccountAnalytics, error)
	ListSnapshots(ctx context.Context, integrationID int64, from, to time.Time) ([]*models.AccountAnalytics, error)
	UpsertSnapshot(ctx context.Context, snapshot *models.AccountAnalytics) (int64, error)
	ReplaceMetrics(ctx context.Context, analyticsID int64, metrics []*models.AnalyticsMetric) error
	GetMetrics(ctx context.Context, analyticsID int64) ([]*models.AnalyticsMetric, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

const snapshotColumns = `id, integration_id, platform, date, followers_count, following_count,
	posts_count, impressions, reach, likes, comments, shares, saves, video_views,
	engagement_rate, created_at`

func scanSnapshot(row interface{ Scan(...any) error }) (*models.AccountAnalytics, error) {
	var a models.AccountAnalytics
	err := row.Scan(
		&a.ID, &a.IntegrationID, &a.Platform, &a.Date, &a.FollowersCount, &a.FollowingCount,
		&a.PostsCount, &a.Impressions, &a.Reach, &a.Likes, &a.Comments, &a.Shares, &a.Saves,
		&a.VideoViews, &a.EngagementRate, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *analyticsRepository) GetSnapshot(ctx context.Context, integrationID int64, date time.Time) (*models.AccountAnalytics, error) {
	query := `SELECT ` + snapshotColumns + ` FROM account_analytics WHERE integration_id = $1 AND date = $2`
	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, integrationID, date))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return snapshot, nil
}

func (r *analyticsRepository) ListSnapshots(ctx context.Context, integrationID int64, from, to time.Time) ([]*models.AccountAnalytics, error) {
	query := `SELECT ` + snapshotColumns + ` FROM account_analytics
		WHERE integration_id = $1 AND date >= $2 AND date <= $3 ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, integrationID, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.AccountAnalytics
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// UpsertSnapshot inserts or replaces the (integration, date) row so the
// hourly sweep stays idempotent within a day.
func (r *analyticsRepository) UpsertSnapshot(ctx context.Context, snapshot *models.AccountAnalytics) (int64, error) {
	query := `
		INSERT INTO account_analytics (integration_id, platform, date, followers_count,
			following_count, posts_count, impressions, reach, likes, comments, shares, saves,
			video_views, engagement_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (integration_id, date) DO UPDATE
		SET followers_count = EXCLUDED.followers_count,
			following_count = EXCLUDED.following_count,
			posts_count = EXCLUDED.posts_count,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			saves = EXCLUDED.saves,
			video_views = EXCLUDED.video_views,
			engagement_rate = EXCLUDED.engagement_rate
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		snapshot.IntegrationID, snapshot.Platform, snapshot.Date, snapshot.FollowersCount,
		snapshot.FollowingCount, snapshot.PostsCount, snapshot.Impressions, snapshot.Reach,
		snapshot.Likes, snapshot.Comments, snapshot.Shares, snapshot.Saves, snapshot.VideoViews,
		snapshot.EngagementRate,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// ReplaceMetrics swaps the history rows for one snapshot atomically.
func (r *analyticsRepository) ReplaceMetrics(ctx context.Context, analyticsID int64, metrics []*models.AnalyticsMetric) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analytics_metrics WHERE analytics_id = $1`, analyticsID); err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO analytics_metrics (analytics_id, metric_name, metric_value, previous_value, change, change_percent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, m := range metrics {
		if _, err := tx.ExecContext(ctx, query, analyticsID, m.MetricName, m.MetricValue, m.PreviousValue, m.Change, m.ChangePercent); err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	return tx.Commit()
}

func (r *analyticsRepository) GetMetrics(ctx context.Context, analyticsID int64) ([]*models.AnalyticsMetric, error) {
	query := `
		SELECT id, analytics_id, metric_name, metric_value, previous_value, change, change_percent
		FROM analytics_metrics WHERE analytics_id = $1 ORDER BY metric_name
	`
	rows, err := r.db.QueryContext(ctx, query, analyticsID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var metrics []*models.AnalyticsMetric
	for rows.Next() {
		var m models.AnalyticsMetric
		err := rows.Scan(&m.ID, &m.AnalyticsID, &m.MetricName, &m.MetricValue, &m.PreviousValue, &m.Change, &m.ChangePercent)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		metrics = append(metrics, &m)
	}
	return metrics, nil
}

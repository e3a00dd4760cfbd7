package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PostAnalyticsRepository interface {
	GetLatestByPostID(ctx context.Context, postID int64) (*models.PostAnalytics, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error)
	Create(ctx context.Context, pa *models.PostAnalytics) (int64, error)
	TopPosts(ctx context.Context, platform string, limit int) ([]*models.PostAnalytics, error)
	AverageEngagementByPlatform(ctx context.Context) (map[string]float64, error)
}

type postAnalyticsRepository struct {
	db *sql.DB
}

func NewPostAnalyticsRepository(db *sql.DB) PostAnalyticsRepository {
	return &postAnalyticsRepository{db: db}
}

const postAnalyticsColumns = `id, post_id, integration_id, platform, platform_post_id,
	impressions, reach, likes, comments, shares, saves, clicks, video_views,
	engagement_rate, fetched_at`

func scanPostAnalytics(row interface{ Scan(...any) error }) (*models.PostAnalytics, error) {
	var pa models.PostAnalytics
	err := row.Scan(
		&pa.ID, &pa.PostID, &pa.IntegrationID, &pa.Platform, &pa.PlatformPostID,
		&pa.Impressions, &pa.Reach, &pa.Likes, &pa.Comments, &pa.Shares, &pa.Saves,
		&pa.Clicks, &pa.VideoViews, &pa.EngagementRate, &pa.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pa, nil
}

func (r *postAnalyticsRepository) GetLatestByPostID(ctx context.Context, postID int64) (*models.PostAnalytics, error) {
	query := `SELECT ` + postAnalyticsColumns + ` FROM post_analytics
		WHERE post_id = $1 ORDER BY fetched_at DESC LIMIT 1`
	pa, err := scanPostAnalytics(r.db.QueryRowContext(ctx, query, postID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return pa, nil
}

func (r *postAnalyticsRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	query := `SELECT ` + postAnalyticsColumns + ` FROM post_analytics
		WHERE post_id = $1 ORDER BY fetched_at`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var list []*models.PostAnalytics
	for rows.Next() {
		pa, err := scanPostAnalytics(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		list = append(list, pa)
	}
	return list, nil
}

func (r *postAnalyticsRepository) Create(ctx context.Context, pa *models.PostAnalytics) (int64, error) {
	query := `
		INSERT INTO post_analytics (post_id, integration_id, platform, platform_post_id,
			impressions, reach, likes, comments, shares, saves, clicks, video_views,
			engagement_rate, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	fetchedAt := pa.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		pa.PostID, pa.IntegrationID, pa.Platform, pa.PlatformPostID,
		pa.Impressions, pa.Reach, pa.Likes, pa.Comments, pa.Shares, pa.Saves,
		pa.Clicks, pa.VideoViews, pa.EngagementRate, fetchedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// TopPosts returns the latest snapshot per post ordered by engagement rate.
func (r *postAnalyticsRepository) TopPosts(ctx context.Context, platform string, limit int) ([]*models.PostAnalytics, error) {
	query := `
		SELECT ` + postAnalyticsColumns + ` FROM (
			SELECT DISTINCT ON (post_id) ` + postAnalyticsColumns + `
			FROM post_analytics
			ORDER BY post_id, fetched_at DESC
		) latest
	`
	args := []any{}
	if platform != "" {
		query += ` WHERE platform = $1`
		args = append(args, platform)
	}
	query += ` ORDER BY engagement_rate DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var list []*models.PostAnalytics
	for rows.Next() {
		pa, err := scanPostAnalytics(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		list = append(list, pa)
	}
	return list, nil
}

func (r *postAnalyticsRepository) AverageEngagementByPlatform(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT platform, AVG(engagement_rate)
		FROM (
			SELECT DISTINCT ON (post_id) platform, engagement_rate
			FROM post_analytics
			ORDER BY post_id, fetched_at DESC
		) latest
		GROUP BY platform
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	averages := make(map[string]float64)
	for rows.Next() {
		var platform string
		var avg float64
		if err := rows.Scan(&platform, &avg); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		averages[platform] = avg
	}
	return averages, nil
}

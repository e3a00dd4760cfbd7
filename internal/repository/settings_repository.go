package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

// SettingsRepository manages the single settings row. Get creates the row
// lazily so callers never see a nil-settings state after the first save.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := `
		SELECT id, twitter_tier, twitter_posts_today, instagram_posts_today,
			youtube_quota_used, youtube_quota_limit, youtube_quota_reset_date, updated_at
		FROM settings ORDER BY id LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query)

	var s models.Settings
	err := row.Scan(&s.ID, &s.TwitterTier, &s.TwitterPostsToday, &s.InstagramPostsToday,
		&s.YouTubeQuotaUsed, &s.YouTubeQuotaLimit, &s.YouTubeQuotaResetDate, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.Settings{TwitterTier: "Free"}, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &s, nil
}

func (r *settingsRepository) Save(ctx context.Context, s *models.Settings) error {
	if s.ID == 0 {
		query := `
			INSERT INTO settings (twitter_tier, twitter_posts_today, instagram_posts_today,
				youtube_quota_used, youtube_quota_limit, youtube_quota_reset_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := r.db.QueryRowContext(ctx, query, s.TwitterTier, s.TwitterPostsToday,
			s.InstagramPostsToday, s.YouTubeQuotaUsed, s.YouTubeQuotaLimit, s.YouTubeQuotaResetDate).Scan(&s.ID)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		return nil
	}

	query := `
		UPDATE settings
		SET twitter_tier = $1, twitter_posts_today = $2, instagram_posts_today = $3,
			youtube_quota_used = $4, youtube_quota_limit = $5, youtube_quota_reset_date = $6,
			updated_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query, s.TwitterTier, s.TwitterPostsToday,
		s.InstagramPostsToday, s.YouTubeQuotaUsed, s.YouTubeQuotaLimit, s.YouTubeQuotaResetDate,
		time.Now(), s.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

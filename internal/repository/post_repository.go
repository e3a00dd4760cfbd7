package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context, status string) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	ListPublishedSince(ctx context.Context, since time.Time) ([]*models.Post, error)
	Create(ctx context.Context, post *models.Post) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	SetFailure(ctx context.Context, id int64, status, errorLog string, retryCount int) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, platform, integration_id, content, link, cta, video_title,
	is_post, is_reel, is_story, is_ig_post, is_ig_reel, is_ig_story,
	status, scheduled_time, published_time, platform_post_id, error_log, retry_count,
	created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID, &post.Platform, &post.IntegrationID, &post.Content, &post.Link, &post.CTA,
		&post.VideoTitle, &post.IsPost, &post.IsReel, &post.IsStory, &post.IsIGPost,
		&post.IsIGReel, &post.IsIGStory, &post.Status, &post.ScheduledTime, &post.PublishedTime,
		&post.PlatformPostID, &post.ErrorLog, &post.RetryCount, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, status string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryList(ctx, query, args...)
}

// ListDue returns Scheduled posts whose scheduled_time has passed.
func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_time IS NOT NULL AND scheduled_time <= $2`
	return r.queryList(ctx, query, models.PostStatusScheduled, now)
}

func (r *postRepository) ListPublishedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND platform_post_id <> '' AND published_time >= $2`
	return r.queryList(ctx, query, models.PostStatusPublished, since)
}

func (r *postRepository) queryList(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (platform, integration_id, content, link, cta, video_title,
			is_post, is_reel, is_story, is_ig_post, is_ig_reel, is_ig_story,
			status, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		post.Platform, post.IntegrationID, post.Content, post.Link, post.CTA, post.VideoTitle,
		post.IsPost, post.IsReel, post.IsStory, post.IsIGPost, post.IsIGReel, post.IsIGStory,
		post.Status, post.ScheduledTime,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET content = $1, link = $2, cta = $3, video_title = $4,
			is_post = $5, is_reel = $6, is_story = $7,
			is_ig_post = $8, is_ig_reel = $9, is_ig_story = $10,
			status = $11, scheduled_time = $12, published_time = $13,
			platform_post_id = $14, error_log = $15, retry_count = $16, updated_at = $17
		WHERE id = $18
	`
	_, err := r.db.ExecContext(ctx, query,
		post.Content, post.Link, post.CTA, post.VideoTitle,
		post.IsPost, post.IsReel, post.IsStory,
		post.IsIGPost, post.IsIGReel, post.IsIGStory,
		post.Status, post.ScheduledTime, post.PublishedTime,
		post.PlatformPostID, post.ErrorLog, post.RetryCount, time.Now(), post.ID,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdateStatus writes the status column directly, without loading the row.
// The orchestrator uses it for the point-of-no-return flip and for partial
// results that bypass entity validation.
func (r *postRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE posts SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	query := `
		UPDATE posts
		SET status = $1, platform_post_id = $2, published_time = $3, error_log = '', updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, platformPostID, publishedAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetFailure(ctx context.Context, id int64, status, errorLog string, retryCount int) error {
	query := `
		UPDATE posts
		SET status = $1, error_log = $2, retry_count = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, errorLog, retryCount, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

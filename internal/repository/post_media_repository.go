package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PostMediaRepository interface {
	GetByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error)
	Create(ctx context.Context, media *models.PostMedia) (int64, error)
	Update(ctx context.Context, media *models.PostMedia) error
	RemoveByPostID(ctx context.Context, postID int64) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) GetByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	query := `
		SELECT id, post_id, file_url, file_type, file_size, display_order, created_at
		FROM post_media WHERE post_id = $1 ORDER BY display_order
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.PostMedia
	for rows.Next() {
		var m models.PostMedia
		err := rows.Scan(&m.ID, &m.PostID, &m.FileURL, &m.FileType, &m.FileSize, &m.DisplayOrder, &m.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &m)
	}
	return media, nil
}

func (r *postMediaRepository) Create(ctx context.Context, media *models.PostMedia) (int64, error) {
	query := `
		INSERT INTO post_media (post_id, file_url, file_type, file_size, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, media.PostID, media.FileURL, media.FileType, media.FileSize, media.DisplayOrder).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postMediaRepository) Update(ctx context.Context, media *models.PostMedia) error {
	query := `
		UPDATE post_media
		SET file_url = $1, file_type = $2, file_size = $3, display_order = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, media.FileURL, media.FileType, media.FileSize, media.DisplayOrder, media.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postMediaRepository) RemoveByPostID(ctx context.Context, postID int64) error {
	query := `DELETE FROM post_media WHERE post_id = $1`
	_, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

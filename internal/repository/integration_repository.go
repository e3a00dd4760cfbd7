package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type IntegrationRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Integration, error)
	GetByPlatformProfile(ctx context.Context, platform, profileID string) (*models.Integration, error)
	List(ctx context.Context) ([]*models.Integration, error)
	ListConnected(ctx context.Context) ([]*models.Integration, error)
	ListExpiringSoon(ctx context.Context, days int) ([]*models.Integration, error)
	Create(ctx context.Context, integ *models.Integration) (int64, error)
	Update(ctx context.Context, integ *models.Integration) error
	UpdateFollowersCount(ctx context.Context, id, followers int64) error
	Remove(ctx context.Context, id int64) error
}

type integrationRepository struct {
	db *sql.DB
}

func NewIntegrationRepository(db *sql.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

const integrationColumns = `id, platform, profile_id, profile_name, profile_image, account_type,
	account_name, account_description, organization, enabled, access_token, refresh_token,
	page_id, page_access_token, oauth1_token, oauth1_secret, connection_status, last_error,
	last_error_time, token_expiry, followers_count, created_at, updated_at`

func scanIntegration(row interface{ Scan(...any) error }) (*models.Integration, error) {
	var integ models.Integration
	err := row.Scan(
		&integ.ID, &integ.Platform, &integ.ProfileID, &integ.ProfileName, &integ.ProfileImage,
		&integ.AccountType, &integ.AccountName, &integ.AccountDescription, &integ.Organization,
		&integ.Enabled, &integ.AccessToken, &integ.RefreshToken, &integ.PageID,
		&integ.PageAccessToken, &integ.OAuth1Token, &integ.OAuth1Secret, &integ.ConnectionStatus,
		&integ.LastError, &integ.LastErrorTime, &integ.TokenExpiry, &integ.FollowersCount,
		&integ.CreatedAt, &integ.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &integ, nil
}

func (r *integrationRepository) GetByID(ctx context.Context, id int64) (*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1`
	integ, err := scanIntegration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return integ, nil
}

func (r *integrationRepository) GetByPlatformProfile(ctx context.Context, platform, profileID string) (*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE platform = $1 AND profile_id = $2`
	integ, err := scanIntegration(r.db.QueryRowContext(ctx, query, platform, profileID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return integ, nil
}

func (r *integrationRepository) List(ctx context.Context) ([]*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations ORDER BY platform, account_name`
	return r.queryList(ctx, query)
}

func (r *integrationRepository) ListConnected(ctx context.Context) ([]*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE enabled = true AND connection_status = $1`
	return r.queryList(ctx, query, models.ConnectionConnected)
}

func (r *integrationRepository) ListExpiringSoon(ctx context.Context, days int) ([]*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations
		WHERE connection_status = $1 AND token_expiry IS NOT NULL AND token_expiry < $2`
	threshold := time.Now().AddDate(0, 0, days)
	return r.queryList(ctx, query, models.ConnectionConnected, threshold)
}

func (r *integrationRepository) queryList(ctx context.Context, query string, args ...any) ([]*models.Integration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		integrations = append(integrations, integ)
	}
	return integrations, nil
}

func (r *integrationRepository) Create(ctx context.Context, integ *models.Integration) (int64, error) {
	query := `
		INSERT INTO integrations (platform, profile_id, profile_name, profile_image, account_type,
			account_name, account_description, organization, enabled, access_token, refresh_token,
			page_id, page_access_token, oauth1_token, oauth1_secret, connection_status, last_error,
			last_error_time, token_expiry, followers_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		integ.Platform, integ.ProfileID, integ.ProfileName, integ.ProfileImage, integ.AccountType,
		integ.AccountName, integ.AccountDescription, integ.Organization, integ.Enabled,
		integ.AccessToken, integ.RefreshToken, integ.PageID, integ.PageAccessToken,
		integ.OAuth1Token, integ.OAuth1Secret, integ.ConnectionStatus, integ.LastError,
		integ.LastErrorTime, integ.TokenExpiry, integ.FollowersCount,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *integrationRepository) Update(ctx context.Context, integ *models.Integration) error {
	query := `
		UPDATE integrations
		SET profile_name = $1, profile_image = $2, account_type = $3, account_name = $4,
			account_description = $5, organization = $6, enabled = $7, access_token = $8,
			refresh_token = $9, page_id = $10, page_access_token = $11, oauth1_token = $12,
			oauth1_secret = $13, connection_status = $14, last_error = $15, last_error_time = $16,
			token_expiry = $17, followers_count = $18, updated_at = $19
		WHERE id = $20
	`
	_, err := r.db.ExecContext(ctx, query,
		integ.ProfileName, integ.ProfileImage, integ.AccountType, integ.AccountName,
		integ.AccountDescription, integ.Organization, integ.Enabled, integ.AccessToken,
		integ.RefreshToken, integ.PageID, integ.PageAccessToken, integ.OAuth1Token,
		integ.OAuth1Secret, integ.ConnectionStatus, integ.LastError, integ.LastErrorTime,
		integ.TokenExpiry, integ.FollowersCount, time.Now(), integ.ID,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *integrationRepository) UpdateFollowersCount(ctx context.Context, id, followers int64) error {
	query := `UPDATE integrations SET followers_count = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, followers, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *integrationRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM integrations WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

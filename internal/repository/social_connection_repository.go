package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/codenberg/socialflow/internal/models"
)

type SocialConnectionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialConnection, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	ListActiveByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error)
	CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error)
	SetToken(ctx context.Context, userID int64, oldAccessToken string, sc *models.SocialConnection) error
	Deactivate(ctx context.Context, id int64) error
}

type socialConnectionRepository struct {
	db *sql.DB
}

func NewSocialConnectionRepository(db *sql.DB) SocialConnectionRepository {
	return &socialConnectionRepository{db: db}
}

const connectionColumns = `id, user_id, platform, account_id, account_name, profile_picture_url, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at`

func (r *socialConnectionRepository) Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error) {
	var err error
	var id int64

	insertQuery := `
		INSERT INTO social_connections(
			user_id,
			platform,
			account_id,
			account_name,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id
	`

	args := []interface{}{
		sc.UserID,
		sc.Platform,
		sc.AccountID,
		sc.AccountName,
		sc.ProfilePicture,
		sc.AccessToken,
		sc.RefreshToken,
		sc.TokenExpiresAt,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanConnection(scan func(dest ...interface{}) error) (*models.SocialConnection, error) {
	var sc models.SocialConnection
	err := scan(
		&sc.ID,
		&sc.UserID,
		&sc.Platform,
		&sc.AccountID,
		&sc.AccountName,
		&sc.ProfilePicture,
		&sc.AccessToken,
		&sc.RefreshToken,
		&sc.TokenExpiresAt,
		&sc.IsActive,
		&sc.CreatedAt,
		&sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (r *socialConnectionRepository) GetByID(ctx context.Context, id int64) (*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	sc, err := scanConnection(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return sc, nil
}

func (r *socialConnectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE user_id = $1`
	return r.list(ctx, query, userID)
}

// ListActiveByUserID is the sole availability gate for the dispatcher:
// only connections with is_active = TRUE are ever considered a match. An
// empty result is a valid answer for a user with nothing connected.
func (r *socialConnectionRepository) ListActiveByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE user_id = $1 AND is_active = TRUE`
	return r.list(ctx, query, userID)
}

func (r *socialConnectionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.SocialConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.SocialConnection
	for rows.Next() {
		sc, err := scanConnection(rows.Scan)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, sc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return connections, nil
}

func (r *socialConnectionRepository) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections
		WHERE is_active = TRUE
		AND ((token_expires_at BETWEEN $1 AND $2) OR token_expires_at < $1)`
	return r.list(ctx, query, initialTime, finalTime)
}

func (r *socialConnectionRepository) CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_connections WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, connectionID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *socialConnectionRepository) SetToken(ctx context.Context, userID int64, oldAccessToken string, sc *models.SocialConnection) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE social_connections
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND access_token = $2;
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, userID, oldAccessToken, sc.AccessToken, sc.RefreshToken, sc.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; connection may not exist")
		return errors.New("no rows affected; connection may not exist")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Deactivate soft-deletes the connection. It is never implicitly
// reactivated; reconnecting creates a fresh row.
func (r *socialConnectionRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE social_connections SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

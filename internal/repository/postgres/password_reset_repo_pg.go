package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

const resetColumns = `id, user_id, token_hash, expires_at, used, used_at, created_at`

type PasswordResetRepository struct {
	db sqlx.ExtContext
}

func NewPasswordResetRepo(db sqlx.ExtContext) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*domain.PasswordResetToken, error) {
	const query = `
        INSERT INTO password_reset_token (user_id, token_hash, expires_at)
        VALUES ($1, $2, $3)
        RETURNING ` + resetColumns

	row := r.db.QueryRowxContext(ctx, query, userID, tokenHash, expiresAt)
	var reset domain.PasswordResetToken
	if err := row.StructScan(&reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	const query = `SELECT ` + resetColumns + ` FROM password_reset_token WHERE token_hash = $1`
	var reset domain.PasswordResetToken
	if err := sqlx.GetContext(ctx, r.db, &reset, query, tokenHash); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) InvalidateByUser(ctx context.Context, userID int64, at time.Time) error {
	const query = `
        UPDATE password_reset_token
        SET used = TRUE,
            used_at = $2
        WHERE user_id = $1 AND used = FALSE
    `
	_, err := r.db.ExecContext(ctx, query, userID, at)
	return err
}

func (r *PasswordResetRepository) MarkUsedIfUnused(ctx context.Context, tokenHash string, now time.Time) (int64, bool, error) {
	const query = `
        UPDATE password_reset_token
        SET used = TRUE,
            used_at = $2
        WHERE token_hash = $1 AND used = FALSE AND expires_at > $2
        RETURNING user_id
    `
	var userID int64
	if err := sqlx.GetContext(ctx, r.db, &userID, query, tokenHash, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return userID, true, nil
}

var _ ports.PasswordResetRepository = (*PasswordResetRepository)(nil)

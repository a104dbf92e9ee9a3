package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

const userColumns = `id, email, username, password_hash, terms_accepted_at, password_changed_at, created_at, updated_at`

type UserRepository struct {
	db sqlx.ExtContext
}

func NewUserRepo(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, email, username, passwordHash string, termsAcceptedAt *time.Time) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (email, username, password_hash, terms_accepted_at)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + userColumns

	row := r.db.QueryRowxContext(ctx, query, email, username, passwordHash, termsAcceptedAt)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, translateUniqueViolation(err)
	}
	return &user, nil
}

// UpsertGoogleUser returns the account keyed by email, creating it without a
// username or password when it does not exist yet.
func (r *UserRepository) UpsertGoogleUser(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (email)
        VALUES ($1)
        ON CONFLICT (email) DO UPDATE
        SET updated_at = NOW()
        RETURNING ` + userColumns

	row := r.db.QueryRowxContext(ctx, query, email)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE email = $1`
	var user domain.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE id = $1`
	var user domain.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	const query = `
        UPDATE user_account
        SET password_hash = $2,
            password_changed_at = $3,
            updated_at = $3
        WHERE id = $1
    `
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, changedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var _ ports.UserRepository = (*UserRepository)(nil)

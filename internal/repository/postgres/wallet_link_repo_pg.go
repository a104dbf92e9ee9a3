package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

const walletColumns = `id, user_id, address, connected, connected_at, disconnected_at, created_at, updated_at`

type WalletLinkRepository struct {
	db sqlx.ExtContext
}

func NewWalletLinkRepo(db sqlx.ExtContext) *WalletLinkRepository {
	return &WalletLinkRepository{db: db}
}

func (r *WalletLinkRepository) FindConnectedByAddress(ctx context.Context, address string) (*domain.WalletLink, error) {
	const query = `
        SELECT w.id, w.user_id, w.address, w.connected, w.connected_at, w.disconnected_at,
               w.created_at, w.updated_at, u.username AS owner_username
        FROM wallet_link w
        JOIN user_account u ON u.id = w.user_id
        WHERE w.address = $1 AND w.connected
    `
	var link domain.WalletLink
	if err := sqlx.GetContext(ctx, r.db, &link, query, address); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *WalletLinkRepository) FindConnectedByUser(ctx context.Context, userID int64) (*domain.WalletLink, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallet_link WHERE user_id = $1 AND connected`
	var link domain.WalletLink
	if err := sqlx.GetContext(ctx, r.db, &link, query, userID); err != nil {
		return nil, err
	}
	return &link, nil
}

// Link must run inside a transaction: the user's previous wallet is
// disconnected before the new link is upserted.
func (r *WalletLinkRepository) Link(ctx context.Context, userID int64, address string) (*domain.WalletLink, error) {
	const release = `
        UPDATE wallet_link
        SET connected = FALSE,
            disconnected_at = NOW(),
            updated_at = NOW()
        WHERE user_id = $1 AND connected AND address <> $2
    `
	if _, err := r.db.ExecContext(ctx, release, userID, address); err != nil {
		return nil, err
	}

	const upsert = `
        INSERT INTO wallet_link (user_id, address, connected, connected_at)
        VALUES ($1, $2, TRUE, NOW())
        ON CONFLICT (user_id, address) DO UPDATE
        SET connected = TRUE,
            connected_at = CASE WHEN wallet_link.connected THEN wallet_link.connected_at ELSE NOW() END,
            disconnected_at = NULL,
            updated_at = NOW()
        RETURNING ` + walletColumns

	row := r.db.QueryRowxContext(ctx, upsert, userID, address)
	var link domain.WalletLink
	if err := row.StructScan(&link); err != nil {
		return nil, translateUniqueViolation(err)
	}
	return &link, nil
}

func (r *WalletLinkRepository) Disconnect(ctx context.Context, userID int64) error {
	const query = `
        UPDATE wallet_link
        SET connected = FALSE,
            disconnected_at = NOW(),
            updated_at = NOW()
        WHERE user_id = $1 AND connected
    `
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

var _ ports.WalletLinkRepository = (*WalletLinkRepository)(nil)

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

type repositories struct {
	users   *UserRepository
	wallets *WalletLinkRepository
	resets  *PasswordResetRepository
}

func newRepositories(db sqlx.ExtContext) repositories {
	return repositories{
		users:   NewUserRepo(db),
		wallets: NewWalletLinkRepo(db),
		resets:  NewPasswordResetRepo(db),
	}
}

func (r repositories) Users() ports.UserRepository { return r.users }
func (r repositories) WalletLinks() ports.WalletLinkRepository { return r.wallets }
func (r repositories) PasswordResets() ports.PasswordResetRepository { return r.resets }

// Store binds the repositories to a connection pool and opens transactions on it.
type Store struct {
	repositories
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{repositories: newRepositories(db), db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	return fn(ctx, newRepositories(tx))
}

var _ ports.Store = (*Store)(nil)

package ports

import (
	"context"
	"errors"
)

// Conflict errors returned by repositories when a uniqueness rule is violated.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already registered")
	ErrAddressLinked = errors.New("wallet address linked to another account")

	// ErrConcurrentLink means another link for the same user committed first.
	ErrConcurrentLink = errors.New("concurrent wallet link for user")
)

type Repositories interface {
	Users() UserRepository
	WalletLinks() WalletLinkRepository
	PasswordResets() PasswordResetRepository
}

type TxManager interface {
	// WithinTx runs fn against repositories bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is the credential store handle shared by the services.
type Store interface {
	Repositories
	TxManager
}

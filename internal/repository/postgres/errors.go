package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

const uniqueViolation = "23505"

const (
	constraintUserEmail         = "user_account_email_key"
	constraintUserUsername      = "user_account_username_key"
	constraintUserUsernameLower = "user_account_username_lower_key"
	constraintAddressConnected  = "wallet_link_address_connected_idx"
	constraintUserConnected     = "wallet_link_user_connected_idx"
)

// translateUniqueViolation maps known unique constraints to port errors and
// returns every other error unchanged.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintUserEmail:
		return ports.ErrEmailTaken
	case constraintUserUsername, constraintUserUsernameLower:
		return ports.ErrUsernameTaken
	case constraintAddressConnected:
		return ports.ErrAddressLinked
	case constraintUserConnected:
		return ports.ErrConcurrentLink
	}
	return err
}

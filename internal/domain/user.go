package domain

import (
	"strings"
	"time"
)

// anonymousHandle is shown in place of a username for accounts that never picked one.
const anonymousHandle = "anonymous collector"

type User struct {
	ID                int64      `db:"id" json:"id"`
	Email             string     `db:"email" json:"email"`
	Username          *string    `db:"username" json:"username,omitempty"`
	PasswordHash      *string    `db:"password_hash" json:"-"`
	TermsAcceptedAt   *time.Time `db:"terms_accepted_at" json:"terms_accepted_at,omitempty"`
	PasswordChangedAt *time.Time `db:"password_changed_at" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
// Accounts created through Google have no hash until a reset sets one.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// DisplayHandle is the public name other users may see.
func DisplayHandle(username *string) string {
	if username == nil || strings.TrimSpace(*username) == "" {
		return anonymousHandle
	}
	return *username
}

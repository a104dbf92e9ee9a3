package domain

import "time"

type WalletLink struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Address        string     `db:"address" json:"address"`
	Connected      bool       `db:"connected" json:"connected"`
	ConnectedAt    time.Time  `db:"connected_at" json:"connected_at"`
	DisconnectedAt *time.Time `db:"disconnected_at" json:"disconnected_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// OwnerUsername is only populated by lookups that join the owning account.
	OwnerUsername *string `db:"owner_username" json:"-"`
}

package ports

import (
	"context"
	"time"
)

type SessionDenylist interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

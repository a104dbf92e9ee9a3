package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

const revokedPrefix = "pixelmart:session:revoked:"

// SessionDenylist stores revoked session ids with a TTL matching the token expiry.
type SessionDenylist struct {
	client goredis.Cmdable
	now    func() time.Time
}

func NewSessionDenylist(client goredis.Cmdable) *SessionDenylist {
	return &SessionDenylist{client: client, now: time.Now}
}

func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (d *SessionDenylist) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, revokedPrefix+sessionID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (d *SessionDenylist) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := d.client.Exists(ctx, revokedPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return n > 0, nil
}

var _ ports.SessionDenylist = (*SessionDenylist)(nil)

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

// SessionDenylist is the single-process fallback used when Redis is not configured.
type SessionDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewSessionDenylist() *SessionDenylist {
	return &SessionDenylist{revoked: map[string]time.Time{}, now: time.Now}
}

func (d *SessionDenylist) Revoke(_ context.Context, sessionID string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, exp := range d.revoked {
		if !now.Before(exp) {
			delete(d.revoked, id)
		}
	}
	if now.Before(expiresAt) {
		d.revoked[sessionID] = expiresAt
	}
	return nil
}

func (d *SessionDenylist) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.revoked[sessionID]
	if !ok {
		return false, nil
	}
	return d.now().Before(exp), nil
}

var _ ports.SessionDenylist = (*SessionDenylist)(nil)

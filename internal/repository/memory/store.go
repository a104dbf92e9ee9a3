package memory

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

// Store keeps the credential tables in process memory. It enforces the same
// uniqueness rules as the Postgres schema and serializes transactions.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

func (s *Store) Users() ports.UserRepository { return lockedUsers{s} }
func (s *Store) WalletLinks() ports.WalletLinkRepository { return lockedWallets{s} }
func (s *Store) PasswordResets() ports.PasswordResetRepository { return lockedResets{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()
	return fn(ctx, view{st: s.st, now: s.now})
}

func (s *Store) run(fn func(v view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(view{st: s.st, now: s.now})
}

type state struct {
	users    map[int64]domain.User
	wallets  map[int64]domain.WalletLink
	resets   map[int64]domain.PasswordResetToken
	userSeq  int64
	linkSeq  int64
	resetSeq int64
}

func newState() *state {
	return &state{
		users:   map[int64]domain.User{},
		wallets: map[int64]domain.WalletLink{},
		resets:  map[int64]domain.PasswordResetToken{},
	}
}

func (st *state) clone() *state {
	c := &state{
		users:    make(map[int64]domain.User, len(st.users)),
		wallets:  make(map[int64]domain.WalletLink, len(st.wallets)),
		resets:   make(map[int64]domain.PasswordResetToken, len(st.resets)),
		userSeq:  st.userSeq,
		linkSeq:  st.linkSeq,
		resetSeq: st.resetSeq,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.wallets {
		c.wallets[k] = v
	}
	for k, v := range st.resets {
		c.resets[k] = v
	}
	return c
}

// view operates on state without locking; callers hold Store.mu.
type view struct {
	st  *state
	now func() time.Time
}

func (v view) Users() ports.UserRepository { return v }
func (v view) WalletLinks() ports.WalletLinkRepository { return walletView{v} }
func (v view) PasswordResets() ports.PasswordResetRepository { return resetView{v} }

func (v view) CreateUser(_ context.Context, email, username, passwordHash string, termsAcceptedAt *time.Time) (*domain.User, error) {
	for _, u := range v.st.users {
		if u.Email == email {
			return nil, ports.ErrEmailTaken
		}
		if u.Username != nil && strings.EqualFold(*u.Username, username) {
			return nil, ports.ErrUsernameTaken
		}
	}
	now := v.now()
	v.st.userSeq++
	user := domain.User{
		ID:              v.st.userSeq,
		Email:           email,
		Username:        stringPtr(username),
		PasswordHash:    stringPtr(passwordHash),
		TermsAcceptedAt: termsAcceptedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	v.st.users[user.ID] = user
	return &user, nil
}

func (v view) UpsertGoogleUser(_ context.Context, email string) (*domain.User, error) {
	now := v.now()
	for id, u := range v.st.users {
		if u.Email == email {
			u.UpdatedAt = now
			v.st.users[id] = u
			return &u, nil
		}
	}
	v.st.userSeq++
	user := domain.User{ID: v.st.userSeq, Email: email, CreatedAt: now, UpdatedAt: now}
	v.st.users[user.ID] = user
	return &user, nil
}

func (v view) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range v.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (v view) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := v.st.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (v view) UpdatePasswordHash(_ context.Context, id int64, passwordHash string, changedAt time.Time) error {
	u, ok := v.st.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = stringPtr(passwordHash)
	u.PasswordChangedAt = &changedAt
	u.UpdatedAt = changedAt
	v.st.users[id] = u
	return nil
}

type walletView struct{ view }

func (v walletView) FindConnectedByAddress(_ context.Context, address string) (*domain.WalletLink, error) {
	for _, w := range v.st.wallets {
		if w.Connected && w.Address == address {
			if owner, ok := v.st.users[w.UserID]; ok {
				w.OwnerUsername = owner.Username
			}
			return &w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (v walletView) FindConnectedByUser(_ context.Context, userID int64) (*domain.WalletLink, error) {
	for _, w := range v.st.wallets {
		if w.Connected && w.UserID == userID {
			return &w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (v walletView) Link(_ context.Context, userID int64, address string) (*domain.WalletLink, error) {
	for _, w := range v.st.wallets {
		if w.Connected && w.Address == address && w.UserID != userID {
			return nil, ports.ErrAddressLinked
		}
	}

	now := v.now()
	var existing *domain.WalletLink
	for id, w := range v.st.wallets {
		if w.UserID != userID {
			continue
		}
		if w.Address == address {
			w := w
			existing = &w
			continue
		}
		if w.Connected {
			w.Connected = false
			w.DisconnectedAt = &now
			w.UpdatedAt = now
			v.st.wallets[id] = w
		}
	}

	if existing == nil {
		v.st.linkSeq++
		existing = &domain.WalletLink{ID: v.st.linkSeq, UserID: userID, Address: address, CreatedAt: now}
	}
	if !existing.Connected {
		existing.Connected = true
		existing.ConnectedAt = now
		existing.DisconnectedAt = nil
	}
	existing.UpdatedAt = now
	v.st.wallets[existing.ID] = *existing
	return existing, nil
}

func (v walletView) Disconnect(_ context.Context, userID int64) error {
	now := v.now()
	for id, w := range v.st.wallets {
		if w.UserID == userID && w.Connected {
			w.Connected = false
			w.DisconnectedAt = &now
			w.UpdatedAt = now
			v.st.wallets[id] = w
		}
	}
	return nil
}

type resetView struct{ view }

func (v resetView) Create(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) (*domain.PasswordResetToken, error) {
	for _, r := range v.st.resets {
		if r.TokenHash == tokenHash {
			return nil, errDuplicateToken
		}
	}
	v.st.resetSeq++
	reset := domain.PasswordResetToken{
		ID:        v.st.resetSeq,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: v.now(),
	}
	v.st.resets[reset.ID] = reset
	return &reset, nil
}

func (v resetView) FindByTokenHash(_ context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	for _, r := range v.st.resets {
		if r.TokenHash == tokenHash {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (v resetView) InvalidateByUser(_ context.Context, userID int64, at time.Time) error {
	for id, r := range v.st.resets {
		if r.UserID == userID && !r.Used {
			r.Used = true
			r.UsedAt = &at
			v.st.resets[id] = r
		}
	}
	return nil
}

func (v resetView) MarkUsedIfUnused(_ context.Context, tokenHash string, now time.Time) (int64, bool, error) {
	for id, r := range v.st.resets {
		if r.TokenHash != tokenHash {
			continue
		}
		if !r.IsValid(now) {
			return 0, false, nil
		}
		r.Used = true
		r.UsedAt = &now
		v.st.resets[id] = r
		return r.UserID, true, nil
	}
	return 0, false, nil
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var (
	_ ports.Store                   = (*Store)(nil)
	_ ports.UserRepository          = view{}
	_ ports.WalletLinkRepository    = walletView{}
	_ ports.PasswordResetRepository = resetView{}
)

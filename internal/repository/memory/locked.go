package memory

import (
	"context"
	"errors"
	"time"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
)

var errDuplicateToken = errors.New("password reset token hash already exists")

type lockedUsers struct{ s *Store }

func (l lockedUsers) CreateUser(ctx context.Context, email, username, passwordHash string, termsAcceptedAt *time.Time) (user *domain.User, err error) {
	err = l.s.run(func(v view) error {
		user, err = v.CreateUser(ctx, email, username, passwordHash, termsAcceptedAt)
		return err
	})
	return user, err
}

func (l lockedUsers) UpsertGoogleUser(ctx context.Context, email string) (user *domain.User, err error) {
	err = l.s.run(func(v view) error {
		user, err = v.UpsertGoogleUser(ctx, email)
		return err
	})
	return user, err
}

func (l lockedUsers) FindByEmail(ctx context.Context, email string) (user *domain.User, err error) {
	err = l.s.run(func(v view) error {
		user, err = v.FindByEmail(ctx, email)
		return err
	})
	return user, err
}

func (l lockedUsers) FindByID(ctx context.Context, id int64) (user *domain.User, err error) {
	err = l.s.run(func(v view) error {
		user, err = v.FindByID(ctx, id)
		return err
	})
	return user, err
}

func (l lockedUsers) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	return l.s.run(func(v view) error {
		return v.UpdatePasswordHash(ctx, id, passwordHash, changedAt)
	})
}

type lockedWallets struct{ s *Store }

func (l lockedWallets) FindConnectedByAddress(ctx context.Context, address string) (link *domain.WalletLink, err error) {
	err = l.s.run(func(v view) error {
		link, err = walletView{v}.FindConnectedByAddress(ctx, address)
		return err
	})
	return link, err
}

func (l lockedWallets) FindConnectedByUser(ctx context.Context, userID int64) (link *domain.WalletLink, err error) {
	err = l.s.run(func(v view) error {
		link, err = walletView{v}.FindConnectedByUser(ctx, userID)
		return err
	})
	return link, err
}

func (l lockedWallets) Link(ctx context.Context, userID int64, address string) (link *domain.WalletLink, err error) {
	err = l.s.run(func(v view) error {
		link, err = walletView{v}.Link(ctx, userID, address)
		return err
	})
	return link, err
}

func (l lockedWallets) Disconnect(ctx context.Context, userID int64) error {
	return l.s.run(func(v view) error {
		return walletView{v}.Disconnect(ctx, userID)
	})
}

type lockedResets struct{ s *Store }

func (l lockedResets) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (reset *domain.PasswordResetToken, err error) {
	err = l.s.run(func(v view) error {
		reset, err = resetView{v}.Create(ctx, userID, tokenHash, expiresAt)
		return err
	})
	return reset, err
}

func (l lockedResets) FindByTokenHash(ctx context.Context, tokenHash string) (reset *domain.PasswordResetToken, err error) {
	err = l.s.run(func(v view) error {
		reset, err = resetView{v}.FindByTokenHash(ctx, tokenHash)
		return err
	})
	return reset, err
}

func (l lockedResets) InvalidateByUser(ctx context.Context, userID int64, at time.Time) error {
	return l.s.run(func(v view) error {
		return resetView{v}.InvalidateByUser(ctx, userID, at)
	})
}

func (l lockedResets) MarkUsedIfUnused(ctx context.Context, tokenHash string, now time.Time) (userID int64, claimed bool, err error) {
	err = l.s.run(func(v view) error {
		userID, claimed, err = resetView{v}.MarkUsedIfUnused(ctx, tokenHash, now)
		return err
	})
	return userID, claimed, err
}

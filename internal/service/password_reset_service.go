package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

const (
	resetTokenBytes = 32
	defaultResetTTL = time.Hour
	resetPagePath   = "/reset-password"
	mailSendTimeout = 30 * time.Second
)

type PasswordResetSender interface {
	SendPasswordReset(ctx context.Context, email, token, resetURL string) error
}

type PasswordResetService struct {
	store        ports.Store
	mailer       PasswordResetSender
	ttl          time.Duration
	frontendBase string
	log          logrus.FieldLogger
	now          func() time.Time

	pending sync.WaitGroup
}

func NewPasswordResetService(store ports.Store, mailer PasswordResetSender, ttl time.Duration, frontendBase string, log logrus.FieldLogger) *PasswordResetService {
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	return &PasswordResetService{
		store:        store,
		mailer:       mailer,
		ttl:          ttl,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		log:          log.WithField("component", "password_reset"),
		now:          time.Now,
	}
}

// RequestReset issues a reset token for email. It returns nil for unknown
// addresses and for mail failures so callers cannot tell accounts apart.
// The email is sent in the background so response time does not depend on
// whether the account exists.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			s.log.WithField("email_digest", emailDigest(email)).Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := util.GenerateToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now()
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.PasswordResets().InvalidateByUser(ctx, user.ID, now); err != nil {
			return fmt.Errorf("invalidate previous tokens: %w", err)
		}
		if _, err := repos.PasswordResets().Create(ctx, user.ID, util.HashToken(token), now.Add(s.ttl)); err != nil {
			return fmt.Errorf("store reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.mailer == nil {
		s.log.WithField("user_id", user.ID).Warn("password reset token issued but no mailer is configured")
		return nil
	}
	s.pending.Add(1)
	go s.dispatch(context.WithoutCancel(ctx), user.ID, user.Email, token)
	return nil
}

func (s *PasswordResetService) dispatch(ctx context.Context, userID int64, email, token string) {
	defer s.pending.Done()
	ctx, cancel := context.WithTimeout(ctx, mailSendTimeout)
	defer cancel()

	entry := s.log.WithField("user_id", userID)
	if err := s.mailer.SendPasswordReset(ctx, email, token, s.resetURL(token)); err != nil {
		entry.WithError(err).Error("failed to send password reset email")
		return
	}
	entry.Info("password reset email sent")
}

// Wait blocks until every reset email already handed off has been attempted.
func (s *PasswordResetService) Wait() {
	s.pending.Wait()
}

// ValidateToken reports whether token can still be redeemed. It never mutates state.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	reset, err := s.store.PasswordResets().FindByTokenHash(ctx, util.HashToken(token))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reset token: %w", err)
	}
	return reset.IsValid(s.now()), nil
}

// ConsumeAndReset redeems token and sets the new password. The claim and the
// password update commit together, so a failed update leaves the token usable.
func (s *PasswordResetService) ConsumeAndReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	tokenHash := util.HashToken(token)
	reset, err := s.store.PasswordResets().FindByTokenHash(ctx, tokenHash)
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if !reset.IsValid(s.now()) {
		return ErrInvalidOrExpiredToken
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var userID int64
	now := s.now()
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		id, claimed, err := repos.PasswordResets().MarkUsedIfUnused(ctx, tokenHash, now)
		if err != nil {
			return fmt.Errorf("claim reset token: %w", err)
		}
		if !claimed {
			return ErrInvalidOrExpiredToken
		}
		if err := repos.Users().UpdatePasswordHash(ctx, id, hash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		userID = id
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidOrExpiredToken) {
			s.log.WithError(err).Error("password reset failed")
		}
		return err
	}

	s.log.WithField("user_id", userID).Info("password reset completed")
	return nil
}

// emailDigest identifies an address in logs without recording it.
func emailDigest(email string) string {
	return util.HashToken(email)[:16]
}

func (s *PasswordResetService) resetURL(token string) string {
	return s.frontendBase + resetPagePath + "?token=" + url.QueryEscape(token)
}

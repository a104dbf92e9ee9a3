package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/repository/memory"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

func newResetServiceForTests(t *testing.T, store ports.Store, mailer PasswordResetSender) *PasswordResetService {
	t.Helper()
	logger, _ := newTestLogger()
	return NewPasswordResetService(store, mailer, time.Hour, "https://pixelmart.example/", logger)
}

func seedUser(t *testing.T, store ports.Store, email, username string) int64 {
	t.Helper()
	hash, err := util.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	user, err := store.Users().CreateUser(context.Background(), email, username, hash, nil)
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	return user.ID
}

func TestRequestResetUnknownEmail(t *testing.T) {
	mailer := &fakeResetMailer{}
	logger, hook := newTestLogger()
	svc := NewPasswordResetService(memory.NewStore(), mailer, time.Hour, "https://pixelmart.example", logger)

	if err := svc.RequestReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	svc.Wait()
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email for unknown address")
	}
	for _, entry := range hook.AllEntries() {
		for key, value := range entry.Data {
			if s, ok := value.(string); ok && strings.Contains(s, "ghost@example.com") {
				t.Fatalf("log field %q leaks the email address", key)
			}
		}
	}
	if entry := hook.LastEntry(); entry == nil || entry.Data["email_digest"] != emailDigest("ghost@example.com") {
		t.Fatalf("expected the unknown address to be logged as a digest")
	}
}

// slowResetMailer blocks until released so tests can observe the handoff.
type slowResetMailer struct {
	release chan struct{}
	fakeResetMailer
}

func (m *slowResetMailer) SendPasswordReset(ctx context.Context, email, token, resetURL string) error {
	<-m.release
	return m.fakeResetMailer.SendPasswordReset(ctx, email, token, resetURL)
}

func TestRequestResetDoesNotWaitForMail(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.NewStore()
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &slowResetMailer{release: make(chan struct{})}
	svc := newResetServiceForTests(t, store, mailer)

	done := make(chan error, 1)
	go func() { done <- svc.RequestReset(ctx, "user@example.com") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RequestReset returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RequestReset blocked on the mailer")
	}

	// the request is over; delivery must survive its context
	cancel()
	close(mailer.release)
	svc.Wait()
	if token := mailer.lastToken(t); token == "" {
		t.Fatal("expected the reset email to be delivered")
	}
}

func TestRequestResetSendsLink(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{}
	svc := newResetServiceForTests(t, store, mailer)

	if err := svc.RequestReset(ctx, "  USER@example.com "); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	if len(mailer.sent) != 1 || mailer.sent[0].email != "user@example.com" {
		t.Fatalf("expected one email to user@example.com, got %+v", mailer.sent)
	}
	token := mailer.sent[0].token
	if len(token) != 64 {
		t.Fatalf("expected 32-byte hex token, got %q", token)
	}
	if want := "https://pixelmart.example/reset-password?token=" + token; mailer.sent[0].resetURL != want {
		t.Fatalf("expected reset url %q, got %q", want, mailer.sent[0].resetURL)
	}

	stored, err := store.PasswordResets().FindByTokenHash(ctx, util.HashToken(token))
	if err != nil {
		t.Fatalf("expected token to be stored by hash, got %v", err)
	}
	if stored.TokenHash == token {
		t.Fatalf("plaintext token must not be stored")
	}
	if got := stored.ExpiresAt.Sub(stored.CreatedAt); got < 59*time.Minute || got > 61*time.Minute {
		t.Fatalf("expected one hour lifetime, got %s", got)
	}
}

func TestRequestResetInvalidatesPreviousToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{}
	svc := newResetServiceForTests(t, store, mailer)

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	first := mailer.lastToken(t)
	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	second := mailer.lastToken(t)

	if valid, _ := svc.ValidateToken(ctx, first); valid {
		t.Fatalf("expected first token to be invalidated")
	}
	if valid, _ := svc.ValidateToken(ctx, second); !valid {
		t.Fatalf("expected second token to be valid")
	}
}

func TestRequestResetMailFailureIsSilent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{err: errors.New("smtp unavailable")}
	logger, hook := newTestLogger()
	svc := NewPasswordResetService(store, mailer, time.Hour, "https://pixelmart.example", logger)

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("expected mail failure to be swallowed, got %v", err)
	}
	svc.Wait()
	if valid, _ := svc.ValidateToken(ctx, mailer.lastToken(t)); !valid {
		t.Fatalf("expected token to remain issued after mail failure")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected mail failure to be logged at error level")
	}
}

func TestConsumeAndReset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	userID := seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{}
	svc := newResetServiceForTests(t, store, mailer)

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	token := mailer.lastToken(t)

	t.Run("weak password keeps token", func(t *testing.T) {
		if err := svc.ConsumeAndReset(ctx, token, "short"); !errors.Is(err, ErrPasswordTooWeak) {
			t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
		}
		if valid, _ := svc.ValidateToken(ctx, token); !valid {
			t.Fatalf("expected token to stay valid")
		}
	})

	t.Run("success", func(t *testing.T) {
		if err := svc.ConsumeAndReset(ctx, token, "newpass456"); err != nil {
			t.Fatalf("ConsumeAndReset returned error: %v", err)
		}
		user, err := store.Users().FindByID(ctx, userID)
		if err != nil {
			t.Fatalf("FindByID returned error: %v", err)
		}
		if ok, _ := util.VerifyPassword("newpass456", *user.PasswordHash); !ok {
			t.Fatalf("expected new password to verify")
		}
		if ok, _ := util.VerifyPassword("secret123", *user.PasswordHash); ok {
			t.Fatalf("expected old password to stop working")
		}
		if user.PasswordChangedAt == nil {
			t.Fatalf("expected password change time to be recorded")
		}
	})

	t.Run("second use fails", func(t *testing.T) {
		if err := svc.ConsumeAndReset(ctx, token, "another789"); !errors.Is(err, ErrInvalidOrExpiredToken) {
			t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
		}
		if valid, _ := svc.ValidateToken(ctx, token); valid {
			t.Fatalf("expected used token to be invalid")
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if err := svc.ConsumeAndReset(ctx, strings.Repeat("ab", 32), "another789"); !errors.Is(err, ErrInvalidOrExpiredToken) {
			t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
		}
	})
}

func TestConsumeAndResetExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{}
	svc := newResetServiceForTests(t, store, mailer)

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	token := mailer.lastToken(t)
	svc.now = func() time.Time { return time.Now().Add(61 * time.Minute) }

	if valid, _ := svc.ValidateToken(ctx, token); valid {
		t.Fatalf("expected expired token to be invalid")
	}
	if err := svc.ConsumeAndReset(ctx, token, "short"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected token to be checked before the password policy, got %v", err)
	}
	if err := svc.ConsumeAndReset(ctx, token, "newpass456"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestConsumeAndResetRollsBackClaimOnUpdateFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore()}
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{}
	svc := newResetServiceForTests(t, store, mailer)

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	token := mailer.lastToken(t)

	store.setFailUpdates(true)
	err := svc.ConsumeAndReset(ctx, token, "newpass456")
	if err == nil || errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if valid, _ := svc.ValidateToken(ctx, token); !valid {
		t.Fatalf("expected token to remain usable after failed update")
	}

	store.setFailUpdates(false)
	if err := svc.ConsumeAndReset(ctx, token, "newpass456"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestConsumeAndResetConcurrentCallsSucceedOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "user@example.com", "pixelfan")
	mailer := &fakeResetMailer{}
	svc := newResetServiceForTests(t, store, mailer)

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	svc.Wait()
	token := mailer.lastToken(t)

	const workers = 6
	var wg sync.WaitGroup
	var successes, rejected int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.ConsumeAndReset(ctx, token, "newpass456")
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ErrInvalidOrExpiredToken):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || rejected != workers-1 {
		t.Fatalf("expected exactly one success, got %d successes and %d rejections", successes, rejected)
	}
}

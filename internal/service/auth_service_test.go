package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"google.golang.org/api/idtoken"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/memory"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

const (
	walletA = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
	walletB = "0x00000000219ab540356cbb839cbe05303d7705fa"
)

func newTestLogger() (logrus.FieldLogger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

type fakeResetMailer struct {
	mu   sync.Mutex
	sent []struct {
		email    string
		token    string
		resetURL string
	}
	err error
}

func (f *fakeResetMailer) SendPasswordReset(ctx context.Context, email, token, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, struct {
		email    string
		token    string
		resetURL string
	}{email: email, token: token, resetURL: resetURL})
	return f.err
}

func (f *fakeResetMailer) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("expected a reset email to be sent")
	}
	return f.sent[len(f.sent)-1].token
}

type failingUserRepo struct {
	ports.UserRepository
	err error
}

func (f failingUserRepo) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	return f.err
}

type failingRepos struct {
	ports.Repositories
	err error
}

func (f failingRepos) Users() ports.UserRepository {
	return failingUserRepo{UserRepository: f.Repositories.Users(), err: f.err}
}

// flakyStore fails password updates made inside transactions while failUpdates is set.
type flakyStore struct {
	*memory.Store
	mu          sync.Mutex
	failUpdates bool
}

func (s *flakyStore) setFailUpdates(v bool) {
	s.mu.Lock()
	s.failUpdates = v
	s.mu.Unlock()
}

func (s *flakyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	s.mu.Lock()
	fail := s.failUpdates
	s.mu.Unlock()
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if fail {
			repos = failingRepos{Repositories: repos, err: errors.New("disk full")}
		}
		return fn(ctx, repos)
	})
}

func newAuthServiceForTests(store ports.Store) (*AuthService, *memory.SessionDenylist) {
	logger, _ := newTestLogger()
	denylist := memory.NewSessionDenylist()
	jwtManager := util.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(store, denylist, jwtManager, "google-audience", logger), denylist
}

func signupForTests(t *testing.T, svc *AuthService, username, email, wallet string) {
	t.Helper()
	if _, err := svc.Signup(context.Background(), SignupInput{
		Username:      username,
		Email:         email,
		Password:      "secret123",
		WalletAddress: wallet,
	}); err != nil {
		t.Fatalf("Signup(%s) returned error: %v", email, err)
	}
}

func TestSignupSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newAuthServiceForTests(store)

	user, err := svc.Signup(ctx, SignupInput{
		Username:      "pixelfan",
		Email:         " PixelFan@Example.com ",
		Password:      "secret123",
		WalletAddress: "  0xAB5801A7D398351B8BE11C439E05C5B3259AEC9B ",
		AgreedToTerms: true,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Email != "pixelfan@example.com" {
		t.Fatalf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == nil || *user.PasswordHash == "secret123" {
		t.Fatalf("expected a bcrypt hash to be stored")
	}
	if user.TermsAcceptedAt == nil {
		t.Fatalf("expected terms acceptance to be recorded")
	}

	link, err := store.WalletLinks().FindConnectedByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("expected wallet to be linked, got %v", err)
	}
	if link.Address != walletA {
		t.Fatalf("expected normalized wallet address, got %q", link.Address)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newAuthServiceForTests(memory.NewStore())
	cases := []struct {
		name      string
		in        SignupInput
		wantField string
		wantCode  string
		wantErr   error
	}{
		{name: "missing username", in: SignupInput{Email: "a@example.com", Password: "secret123"}, wantField: "username", wantCode: CodeMissingField},
		{name: "missing email", in: SignupInput{Username: "alice", Password: "secret123"}, wantField: "email", wantCode: CodeMissingField},
		{name: "missing password", in: SignupInput{Username: "alice", Email: "a@example.com"}, wantField: "password", wantCode: CodeMissingField},
		{name: "invalid email", in: SignupInput{Username: "alice", Email: "not-an-email", Password: "secret123"}, wantField: "email", wantCode: CodeInvalidEmail},
		{name: "invalid username", in: SignupInput{Username: "a b", Email: "a@example.com", Password: "secret123"}, wantField: "username", wantCode: CodeInvalidUsername},
		{name: "weak password", in: SignupInput{Username: "alice", Email: "a@example.com", Password: "short"}, wantErr: ErrPasswordTooWeak},
		{name: "invalid wallet", in: SignupInput{Username: "alice", Email: "a@example.com", Password: "secret123", WalletAddress: "0x123"}, wantErr: ErrInvalidAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.wantField || verr.Code != tc.wantCode {
				t.Fatalf("expected %s/%s, got %s/%s", tc.wantField, tc.wantCode, verr.Field, verr.Code)
			}
		})
	}
}

func TestSignupConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newAuthServiceForTests(store)
	signupForTests(t, svc, "alice", "alice@example.com", walletA)

	t.Run("email taken", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupInput{Username: "alice2", Email: "ALICE@example.com", Password: "secret123"})
		if !errors.Is(err, ErrEmailAlreadyUsed) {
			t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
		}
	})

	t.Run("username taken", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: "other@example.com", Password: "secret123"})
		if !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("username taken in another case", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupInput{Username: "Alice", Email: "other@example.com", Password: "secret123"})
		if !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("wallet taken leaves no account behind", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupInput{Username: "bob", Email: "bob@example.com", Password: "secret123", WalletAddress: walletA})
		if !errors.Is(err, ErrWalletAlreadyLinked) {
			t.Fatalf("expected ErrWalletAlreadyLinked, got %v", err)
		}
		if _, err := store.Users().FindByEmail(ctx, "bob@example.com"); !isNotFound(err) {
			t.Fatalf("expected no user to be created, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newAuthServiceForTests(store)
	signupForTests(t, svc, "alice", "alice@example.com", walletA)

	t.Run("success carries wallet", func(t *testing.T) {
		result, err := svc.Login(ctx, " Alice@Example.com", "secret123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Token == "" {
			t.Fatal("expected session token in result")
		}
		if !result.Session.WalletConnected || result.Session.WalletAddress == nil || *result.Session.WalletAddress != walletA {
			t.Fatalf("expected connected wallet in session, got %+v", result.Session)
		}
		if result.Session.Username == nil || *result.Session.Username != "alice" {
			t.Fatalf("expected username in session")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Login(ctx, "alice@example.com", "secret124"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := svc.Login(ctx, "ghost@example.com", "secret123"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("account without password", func(t *testing.T) {
		if _, err := store.Users().UpsertGoogleUser(ctx, "oauth@example.com"); err != nil {
			t.Fatalf("UpsertGoogleUser returned error: %v", err)
		}
		if _, err := svc.Login(ctx, "oauth@example.com", "secret123"); !errors.Is(err, ErrNoPasswordSet) {
			t.Fatalf("expected ErrNoPasswordSet, got %v", err)
		}
	})
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without audience", func(t *testing.T) {
		logger, _ := newTestLogger()
		svc := NewAuthService(memory.NewStore(), nil, util.NewJWTManager("secret", time.Hour), "", logger)
		if _, err := svc.LoginWithGoogle(ctx, "token"); !errors.Is(err, ErrGoogleDisabled) {
			t.Fatalf("expected ErrGoogleDisabled, got %v", err)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		svc, _ := newAuthServiceForTests(memory.NewStore())
		svc.validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
			return nil, errors.New("bad signature")
		}
		if _, err := svc.LoginWithGoogle(ctx, "token"); !errors.Is(err, ErrGoogleTokenInvalid) {
			t.Fatalf("expected ErrGoogleTokenInvalid, got %v", err)
		}
	})

	t.Run("unverified email", func(t *testing.T) {
		svc, _ := newAuthServiceForTests(memory.NewStore())
		svc.validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
			return &idtoken.Payload{Claims: map[string]interface{}{"email": "g@example.com", "email_verified": false}}, nil
		}
		if _, err := svc.LoginWithGoogle(ctx, "token"); !errors.Is(err, ErrGoogleTokenInvalid) {
			t.Fatalf("expected ErrGoogleTokenInvalid, got %v", err)
		}
	})

	t.Run("creates account once", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newAuthServiceForTests(store)
		var gotAudience string
		svc.validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
			gotAudience = audience
			return &idtoken.Payload{Claims: map[string]interface{}{"email": "G@Example.com", "email_verified": true}}, nil
		}

		first, err := svc.LoginWithGoogle(ctx, "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := svc.LoginWithGoogle(ctx, "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAudience != "google-audience" {
			t.Fatalf("expected configured audience, got %q", gotAudience)
		}
		if first.User.ID != second.User.ID || first.User.Email != "g@example.com" {
			t.Fatalf("expected the same local account, got %d and %d", first.User.ID, second.User.ID)
		}
		if first.User.HasPassword() {
			t.Fatalf("expected google account without password")
		}
	})
}

func TestAuthenticateAndLogout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newAuthServiceForTests(store)
	signupForTests(t, svc, "alice", "alice@example.com", "")

	result, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	identity, err := svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if identity.User.ID != result.User.ID || identity.Wallet != nil {
		t.Fatalf("unexpected identity %+v", identity)
	}

	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, result.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected revoked session to be rejected, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected malformed token to be rejected, got %v", err)
	}
}

func TestAuthenticateRejectsSessionsOlderThanPasswordChange(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newAuthServiceForTests(store)
	signupForTests(t, svc, "alice", "alice@example.com", "")

	result, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	changedAt := time.Now().Add(2 * time.Second)
	if err := store.Users().UpdatePasswordHash(ctx, result.User.ID, *result.User.PasswordHash, changedAt); err != nil {
		t.Fatalf("UpdatePasswordHash returned error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, result.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestRefreshReflectsCurrentWallet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newAuthServiceForTests(store)
	signupForTests(t, svc, "alice", "alice@example.com", "")

	result, err := svc.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := store.WalletLinks().Link(ctx, result.User.ID, walletB); err != nil {
		t.Fatalf("Link returned error: %v", err)
	}
	identity, err := svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	refreshed, err := svc.Refresh(ctx, identity)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !refreshed.Session.WalletConnected || *refreshed.Session.WalletAddress != walletB {
		t.Fatalf("expected refreshed session to carry the new wallet")
	}
	if refreshed.Token == result.Token {
		t.Fatalf("expected a new token")
	}
}

func TestNeedsRefresh(t *testing.T) {
	svc, _ := newAuthServiceForTests(memory.NewStore())
	_, claims, err := svc.jwt.Generate(domain.Session{UserID: 1, Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	now := time.Now()
	if svc.NeedsRefresh(claims, now) {
		t.Fatalf("fresh session should not need refresh")
	}
	if !svc.NeedsRefresh(claims, now.Add(40*time.Minute)) {
		t.Fatalf("session past half its lifetime should need refresh")
	}
}

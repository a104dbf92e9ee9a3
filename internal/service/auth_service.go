package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/idtoken"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

type SignupInput struct {
	Username      string
	Email         string
	Password      string
	WalletAddress string
	AgreedToTerms bool
}

// SessionResult is returned by every successful sign-in.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	Session   domain.Session
	User      *domain.User
}

// Identity is the authenticated caller resolved from a session token.
type Identity struct {
	User   *domain.User
	Wallet *domain.WalletLink
	Claims *util.Claims
}

func (i *Identity) Session() domain.Session {
	return domain.NewSession(i.User, i.Wallet)
}

type AuthService struct {
	store          ports.Store
	denylist       ports.SessionDenylist
	jwt            *util.JWTManager
	googleAudience string
	log            logrus.FieldLogger

	validateIDToken func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewAuthService(store ports.Store, denylist ports.SessionDenylist, jwtManager *util.JWTManager, googleAudience string, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		store:           store,
		denylist:        denylist,
		jwt:             jwtManager,
		googleAudience:  strings.TrimSpace(googleAudience),
		log:             log.WithField("component", "auth"),
		validateIDToken: idtoken.Validate,
	}
}

// Signup creates an email/password account and, when given, links its wallet
// in the same transaction.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	wallet := strings.TrimSpace(in.WalletAddress)

	switch {
	case username == "":
		return nil, &ValidationError{Field: "username", Code: CodeMissingField}
	case email == "":
		return nil, &ValidationError{Field: "email", Code: CodeMissingField}
	case in.Password == "":
		return nil, &ValidationError{Field: "password", Code: CodeMissingField}
	}
	if !emailPattern.MatchString(email) {
		return nil, &ValidationError{Field: "email", Code: CodeInvalidEmail}
	}
	if !usernamePattern.MatchString(username) {
		return nil, &ValidationError{Field: "username", Code: CodeInvalidUsername}
	}
	if err := util.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	if wallet != "" {
		normalized, err := ValidateAddress(wallet)
		if err != nil {
			return nil, err
		}
		wallet = normalized
		if _, err := s.store.WalletLinks().FindConnectedByAddress(ctx, wallet); err == nil {
			return nil, ErrWalletAlreadyLinked
		} else if !isNotFound(err) {
			return nil, fmt.Errorf("lookup wallet: %w", err)
		}
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	var termsAcceptedAt *time.Time
	if in.AgreedToTerms {
		now := time.Now().UTC()
		termsAcceptedAt = &now
	}

	var user *domain.User
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		created, err := repos.Users().CreateUser(ctx, email, username, hash, termsAcceptedAt)
		if err != nil {
			return err
		}
		if wallet != "" {
			if _, err := repos.WalletLinks().Link(ctx, created.ID, wallet); err != nil {
				return err
			}
		}
		user = created
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrEmailTaken):
			return nil, ErrEmailAlreadyUsed
		case errors.Is(err, ports.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		case errors.Is(err, ports.ErrAddressLinked):
			return nil, ErrWalletAlreadyLinked
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "wallet": wallet != ""}).Info("user signed up")
	return user, nil
}

// Login verifies email and password and issues a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// equalize timing with the known-account path
			_, _ = util.VerifyPassword(password, timingHash())
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.HasPassword() {
		return nil, ErrNoPasswordSet
	}

	ok, err := util.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("stored password hash is unreadable")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

// LoginWithGoogle trusts a Google ID token with a verified email and signs the
// matching local account in, creating it on first use.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*SessionResult, error) {
	if s.googleAudience == "" {
		return nil, ErrGoogleDisabled
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrGoogleTokenInvalid
	}
	payload, err := s.validateIDToken(ctx, idToken, s.googleAudience)
	if err != nil {
		s.log.WithError(err).Info("google token rejected")
		return nil, ErrGoogleTokenInvalid
	}
	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	email = normalizeEmail(email)
	if email == "" || !verified {
		return nil, ErrGoogleTokenInvalid
	}

	user, err := s.store.Users().UpsertGoogleUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("upsert google user: %w", err)
	}
	return s.issueSession(ctx, user)
}

// Authenticate resolves a session token into the current identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check session: %w", err)
		}
		if revoked {
			return nil, ErrSessionInvalid
		}
	}

	user, err := s.store.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	// JWT timestamps have second precision.
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		return nil, ErrSessionInvalid
	}

	wallet, err := s.connectedWallet(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Identity{User: user, Wallet: wallet, Claims: claims}, nil
}

// Refresh issues a new session for an authenticated identity.
func (s *AuthService) Refresh(ctx context.Context, identity *Identity) (*SessionResult, error) {
	return s.issueSession(ctx, identity.User)
}

// NeedsRefresh reports whether less than half of the session lifetime remains.
func (s *AuthService) NeedsRefresh(claims *util.Claims, now time.Time) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(now) < s.jwt.TTL()/2
}

// Logout revokes the session until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return ErrSessionInvalid
	}
	if s.denylist == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.WithField("user_id", claims.UserID).Info("user logged out")
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*SessionResult, error) {
	wallet, err := s.connectedWallet(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	session := domain.NewSession(user, wallet)
	token, claims, err := s.jwt.Generate(session)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &SessionResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Session:   session,
		User:      user,
	}, nil
}

func (s *AuthService) connectedWallet(ctx context.Context, userID int64) (*domain.WalletLink, error) {
	wallet, err := s.store.WalletLinks().FindConnectedByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}
	return wallet, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func timingHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = util.HashPassword("pixelmart-timing-placeholder-1")
	})
	return dummyHash
}

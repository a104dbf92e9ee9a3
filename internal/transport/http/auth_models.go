package http

import (
	"time"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
)

type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// AuthUser is the public view of an account. Hashes never leave the service.
type AuthUser struct {
	ID              int64      `json:"id" example:"42"`
	Email           string     `json:"email" example:"collector@pixelmart.example"`
	Username        *string    `json:"username,omitempty" example:"pixelfan"`
	TermsAcceptedAt *time.Time `json:"terms_accepted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newAuthUser(u *domain.User) AuthUser {
	return AuthUser{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		TermsAcceptedAt: u.TermsAcceptedAt,
		CreatedAt:       u.CreatedAt,
	}
}

type SignupRequest struct {
	Username      string `json:"username" example:"pixelfan"`
	Email         string `json:"email" example:"collector@pixelmart.example"`
	Password      string `json:"password" example:"secret123"`
	WalletAddress string `json:"walletAddress,omitempty" example:"0xab5801a7d398351b8be11c439e05c5b3259aec9b"`
	AgreedToTerms bool   `json:"agreedToTerms,omitempty" example:"true"`
}

type SignupResponse struct {
	UserID int64    `json:"user_id" example:"42"`
	User   AuthUser `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"collector@pixelmart.example"`
	Password string `json:"password" example:"secret123"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// SessionResponse is returned by every endpoint that issues a session token.
type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expires_at" example:"2026-01-02T09:30:00Z"`
	Session   domain.Session `json:"session"`
}

type MeResponse struct {
	Session domain.Session `json:"session"`
	User    AuthUser       `json:"user"`
}

type ResetRequest struct {
	Email string `json:"email" example:"collector@pixelmart.example"`
}

type ResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword" example:"newpass456"`
}

type ResetValidateResponse struct {
	Valid bool `json:"valid"`
}

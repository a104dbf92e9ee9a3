package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/service"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

type AuthHandler struct {
	auth *service.AuthService
	log  logrus.FieldLogger
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService, log logrus.FieldLogger, loginPerMinute int) {
	h := &AuthHandler{auth: auth, log: log}
	requireAuth := RequireAuth(auth, log)
	limit := rateLimit(loginPerMinute)

	api := e.Group("/api/v1")
	api.POST("/signup", h.signup)
	api.POST("/auth/login", h.login, limit)
	api.POST("/auth/google", h.googleLogin, limit)
	api.GET("/auth/me", h.me, requireAuth)
	api.POST("/auth/logout", h.logout, requireAuth)
}

func (h *AuthHandler) signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	user, err := h.auth.Signup(c.Request().Context(), service.SignupInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		WalletAddress: req.WalletAddress,
		AgreedToTerms: req.AgreedToTerms,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, SignupResponse{UserID: user.ID, User: newAuthUser(user)})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(result))
}

func (h *AuthHandler) googleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	result, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(result))
}

func (h *AuthHandler) me(c echo.Context) error {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
	}
	return c.JSON(http.StatusOK, MeResponse{Session: identity.Session(), User: newAuthUser(identity.User)})
}

func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), currentToken(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func newSessionResponse(result *service.SessionResult) SessionResponse {
	return SessionResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		Session:   result.Session,
	}
}

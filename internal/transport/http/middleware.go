package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/service"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

const (
	contextIdentityKey = "auth.identity"
	contextTokenKey    = "auth.token"

	HeaderSessionToken     = "X-Session-Token"
	HeaderSessionExpiresAt = "X-Session-Expires-At"
)

// RequireAuth rejects requests without a valid bearer session. Sessions past
// half their lifetime are re-issued through the X-Session-Token header.
func RequireAuth(auth *service.AuthService, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
			}
			identity, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrSessionInvalid) {
					return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
				}
				log.WithError(err).Error("authenticate session")
				return c.JSON(http.StatusInternalServerError, util.Error("internal_error"))
			}
			c.Set(contextIdentityKey, identity)
			c.Set(contextTokenKey, token)

			if auth.NeedsRefresh(identity.Claims, time.Now()) {
				refreshed, err := auth.Refresh(c.Request().Context(), identity)
				if err != nil {
					log.WithError(err).WithField("user_id", identity.User.ID).Warn("session refresh failed")
				} else {
					c.Response().Header().Set(HeaderSessionToken, refreshed.Token)
					c.Response().Header().Set(HeaderSessionExpiresAt, refreshed.ExpiresAt.UTC().Format(time.RFC3339))
				}
			}
			return next(c)
		}
	}
}

// OptionalAuth resolves the caller when a valid session is presented and
// otherwise lets the request through anonymously.
func OptionalAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := bearerToken(c); ok {
				if identity, err := auth.Authenticate(c.Request().Context(), token); err == nil {
					c.Set(contextIdentityKey, identity)
					c.Set(contextTokenKey, token)
				}
			}
			return next(c)
		}
	}
}

func CurrentIdentity(c echo.Context) (*service.Identity, bool) {
	identity, ok := c.Get(contextIdentityKey).(*service.Identity)
	return identity, ok && identity != nil
}

func currentToken(c echo.Context) string {
	token, _ := c.Get(contextTokenKey).(string)
	return token
}

func bearerToken(c echo.Context) (string, bool) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/service"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

// respondError translates service errors into {error: code} bodies.
// Unknown errors are logged and hidden behind internal_error.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, util.Error(verr.Code).With("field", verr.Field))
	}

	switch {
	case errors.Is(err, service.ErrPasswordTooWeak):
		return c.JSON(http.StatusBadRequest, util.Error("password_too_weak"))
	case errors.Is(err, service.ErrInvalidAddress):
		return c.JSON(http.StatusBadRequest, util.Error("invalid_wallet_address"))
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		return c.JSON(http.StatusBadRequest, util.Error("invalid_or_expired_token"))
	case errors.Is(err, service.ErrEmailAlreadyUsed):
		return c.JSON(http.StatusConflict, util.Error("email_taken"))
	case errors.Is(err, service.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, util.Error("username_taken"))
	case errors.Is(err, service.ErrWalletAlreadyLinked):
		return c.JSON(http.StatusConflict, util.Error("wallet_already_linked"))
	case errors.Is(err, service.ErrWalletLinkConflict):
		return c.JSON(http.StatusConflict, util.Error("wallet_link_conflict"))
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, util.Error("invalid_credentials"))
	case errors.Is(err, service.ErrNoPasswordSet):
		return c.JSON(http.StatusUnauthorized, util.Error("use_federated_login"))
	case errors.Is(err, service.ErrGoogleTokenInvalid):
		return c.JSON(http.StatusUnauthorized, util.Error("invalid_google_token"))
	case errors.Is(err, service.ErrGoogleDisabled):
		return c.JSON(http.StatusServiceUnavailable, util.Error("google_login_disabled"))
	case errors.Is(err, service.ErrSessionInvalid):
		return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
	}

	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, util.Error("internal_error"))
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, util.Error("invalid_request_body"))
}

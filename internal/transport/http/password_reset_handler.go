package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/service"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

const resetRequestedMessage = "If an account exists for that email, a reset link is on its way."

type PasswordResetHandler struct {
	resets *service.PasswordResetService
	log    logrus.FieldLogger
}

func RegisterPasswordReset(e *echo.Echo, resets *service.PasswordResetService, log logrus.FieldLogger, requestsPerMinute int) {
	h := &PasswordResetHandler{resets: resets, log: log}

	group := e.Group("/api/v1/password-reset")
	group.POST("/request", h.request, rateLimit(requestsPerMinute))
	group.GET("/validate", h.validate)
	group.POST("/confirm", h.confirm)
}

// request answers the same way whether or not the email is registered.
func (h *PasswordResetHandler) request(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.resets.RequestReset(c.Request().Context(), req.Email); err != nil {
		h.log.WithError(err).Error("password reset request failed")
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true, "message": resetRequestedMessage})
}

func (h *PasswordResetHandler) validate(c echo.Context) error {
	valid, err := h.resets.ValidateToken(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ResetValidateResponse{Valid: valid})
}

func (h *PasswordResetHandler) confirm(c echo.Context) error {
	var req ResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.resets.ConsumeAndReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/service"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

type WalletHandler struct {
	wallets *service.WalletService
	log     logrus.FieldLogger
}

type WalletCheckRequest struct {
	WalletAddress string `json:"walletAddress" example:"0xab5801a7d398351b8be11c439e05c5b3259aec9b"`
}

type WalletLinkRequest struct {
	UserID        *int64 `json:"userId,omitempty" example:"42"`
	WalletAddress string `json:"walletAddress" example:"0xab5801a7d398351b8be11c439e05c5b3259aec9b"`
}

type WalletResponse struct {
	Address     string `json:"address"`
	Connected   bool   `json:"connected"`
	ConnectedAt string `json:"connected_at"`
}

func newWalletResponse(link *domain.WalletLink) *WalletResponse {
	if link == nil {
		return nil
	}
	return &WalletResponse{
		Address:     link.Address,
		Connected:   link.Connected,
		ConnectedAt: link.ConnectedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func RegisterWallet(e *echo.Echo, auth *service.AuthService, wallets *service.WalletService, log logrus.FieldLogger) {
	h := &WalletHandler{wallets: wallets, log: log}
	requireAuth := RequireAuth(auth, log)

	group := e.Group("/api/v1/wallet")
	group.POST("/check", h.check, OptionalAuth(auth))
	group.GET("", h.current, requireAuth)
	group.POST("/link", h.link, requireAuth)
	group.POST("/unlink", h.unlink, requireAuth)
}

func (h *WalletHandler) check(c echo.Context) error {
	var req WalletCheckRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("invalid_wallet_address"))
	}

	var requesterID int64
	if identity, ok := CurrentIdentity(c); ok {
		requesterID = identity.User.ID
	}
	result, err := h.wallets.CheckAvailability(c.Request().Context(), req.WalletAddress, requesterID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !result.Available {
		return c.JSON(http.StatusConflict, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *WalletHandler) current(c echo.Context) error {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
	}
	link, err := h.wallets.ConnectedWallet(c.Request().Context(), identity.User.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, util.Data("wallet", newWalletResponse(link)))
}

func (h *WalletHandler) link(c echo.Context) error {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
	}
	var req WalletLinkRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.UserID != nil && *req.UserID != identity.User.ID {
		return c.JSON(http.StatusForbidden, util.Error("forbidden"))
	}

	link, err := h.wallets.Link(c.Request().Context(), identity.User.ID, req.WalletAddress)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("user_not_found"))
		}
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, util.Data("wallet", newWalletResponse(link)))
}

func (h *WalletHandler) unlink(c echo.Context) error {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("unauthorized"))
	}
	if err := h.wallets.Unlink(c.Request().Context(), identity.User.ID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

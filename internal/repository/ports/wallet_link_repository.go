package ports

import (
	"context"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
)

type WalletLinkRepository interface {
	// FindConnectedByAddress returns the connected link for address with OwnerUsername set.
	FindConnectedByAddress(ctx context.Context, address string) (*domain.WalletLink, error)
	FindConnectedByUser(ctx context.Context, userID int64) (*domain.WalletLink, error)
	// Link connects address to the user and disconnects any other wallet of that user.
	Link(ctx context.Context, userID int64, address string) (*domain.WalletLink, error)
	Disconnect(ctx context.Context, userID int64) error
}

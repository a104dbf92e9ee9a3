package ports

import (
	"context"
	"time"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*domain.PasswordResetToken, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)
	// InvalidateByUser marks every outstanding token of the user as used.
	InvalidateByUser(ctx context.Context, userID int64, at time.Time) error
	// MarkUsedIfUnused claims a live token. claimed is false when the token is
	// unknown, already used or expired at now.
	MarkUsedIfUnused(ctx context.Context, tokenHash string, now time.Time) (userID int64, claimed bool, err error)
}

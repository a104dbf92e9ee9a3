package ports

import (
	"context"
	"time"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, username, passwordHash string, termsAcceptedAt *time.Time) (*domain.User, error)
	UpsertGoogleUser(ctx context.Context, email string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
}

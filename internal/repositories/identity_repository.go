package repositories

import (
	"context"

	"plantmart/internal/models"
)

// IdentityRepository stores logins for the local identity provider.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	Delete(ctx context.Context, id string) error
}

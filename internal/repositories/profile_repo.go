package repositories

import (
	"context"

	"plantmart/internal/models"
)

// ProfileRepository defines the gateway operations on the profiles table.
type ProfileRepository interface {
	Create(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error)
	// GetByID returns ErrNotFound when the identity has no profile row.
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	Update(ctx context.Context, id string, patch models.ProfilePatch) error
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plantmart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMIdentityRepository is a GORM implementation of IdentityRepository.
type GORMIdentityRepository struct {
	db *gorm.DB
}

// NewGORMIdentityRepository creates a new instance of GORMIdentityRepository.
func NewGORMIdentityRepository(db *gorm.DB) *GORMIdentityRepository {
	return &GORMIdentityRepository{
		db: db,
	}
}

// Create creates a new identity in the database.
func (r *GORMIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	identity.Email = strings.ToLower(identity.Email)
	if err := r.db.WithContext(ctx).Create(identity).Error; err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

// GetByEmail retrieves an identity by email.
func (r *GORMIdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).First(&identity, "email = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("identity with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity by email %s: %w", email, err)
	}
	return &identity, nil
}

// GetByID retrieves an identity by ID.
func (r *GORMIdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).First(&identity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("identity with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity by ID %s: %w", id, err)
	}
	return &identity, nil
}

// Delete removes an identity.
func (r *GORMIdentityRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Identity{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("identity with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

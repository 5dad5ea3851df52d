package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plantmart/internal/models"

	"gorm.io/gorm"
)

// GORMProfileRepository is a GORM implementation of ProfileRepository.
type GORMProfileRepository struct {
	db *gorm.DB
}

// NewGORMProfileRepository creates a new instance of GORMProfileRepository.
func NewGORMProfileRepository(db *gorm.DB) *GORMProfileRepository {
	return &GORMProfileRepository{db: db}
}

// Create inserts the profile row for an identity.
func (r *GORMProfileRepository) Create(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.ID == "" {
		return nil, fmt.Errorf("profile id is required")
	}
	row := models.NewProfileRow(profile)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	saved := row.ToProfile()
	return &saved, nil
}

// GetByID retrieves the profile of an identity.
func (r *GORMProfileRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var row models.ProfileRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile by ID %s: %w", id, err)
	}
	profile := row.ToProfile()
	return &profile, nil
}

// Update applies a partial update to a profile.
func (r *GORMProfileRepository) Update(ctx context.Context, id string, patch models.ProfilePatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	// favorite_categories is stored with the json serializer; Updates with a
	// map bypasses field serializers, so route it through the struct.
	if cats, ok := cols["favorite_categories"]; ok {
		delete(cols, "favorite_categories")
		row := models.ProfileRow{FavoriteCategories: cats.([]string)}
		if row.FavoriteCategories == nil {
			row.FavoriteCategories = []string{}
		}
		res := r.db.WithContext(ctx).Model(&models.ProfileRow{ID: id}).Select("favorite_categories").Updates(&row)
		if res.Error != nil {
			return fmt.Errorf("failed to update profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("profile with ID %s: %w", id, ErrNotFound)
		}
		if len(cols) == 0 {
			return nil
		}
	}
	res := r.db.WithContext(ctx).Model(&models.ProfileRow{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

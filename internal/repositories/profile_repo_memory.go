package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"plantmart/internal/models"
)

// MemoryProfileRepository is an in-memory implementation of ProfileRepository.
type MemoryProfileRepository struct {
	profiles map[string]models.ProfileRow
	mu       sync.RWMutex
}

// NewMemoryProfileRepository creates a new instance of MemoryProfileRepository.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		profiles: make(map[string]models.ProfileRow),
	}
}

// Create adds a profile row; the id must be unused.
func (r *MemoryProfileRepository) Create(_ context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.ID == "" {
		return nil, fmt.Errorf("profile id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.ID]; exists {
		return nil, fmt.Errorf("profile with ID %s already exists", profile.ID)
	}
	row := models.NewProfileRow(profile)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	r.profiles[row.ID] = row
	saved := row.ToProfile()
	return &saved, nil
}

// GetByID returns the profile of an identity.
func (r *MemoryProfileRepository) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile with ID %s: %w", id, ErrNotFound)
	}
	profile := row.ToProfile()
	return &profile, nil
}

// Update applies a partial update to a profile.
func (r *MemoryProfileRepository) Update(_ context.Context, id string, patch models.ProfilePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.profiles[id]
	if !ok {
		return fmt.Errorf("profile with ID %s: %w", id, ErrNotFound)
	}
	r.profiles[id] = models.NewProfileRow(patch.Apply(row.ToProfile()))
	return nil
}

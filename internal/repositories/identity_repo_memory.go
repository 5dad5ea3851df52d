package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"plantmart/internal/models"

	"github.com/google/uuid"
)

// MemoryIdentityRepository is an in-memory implementation of IdentityRepository.
type MemoryIdentityRepository struct {
	identities map[string]models.Identity
	mu         sync.RWMutex
}

// NewMemoryIdentityRepository creates a new instance of MemoryIdentityRepository.
func NewMemoryIdentityRepository() *MemoryIdentityRepository {
	return &MemoryIdentityRepository{
		identities: make(map[string]models.Identity),
	}
}

// Create adds a new identity. Emails are unique, case-insensitively.
func (r *MemoryIdentityRepository) Create(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity.Email = strings.ToLower(identity.Email)
	for _, existing := range r.identities {
		if existing.Email == identity.Email {
			return fmt.Errorf("identity with email %s already exists", identity.Email)
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	r.identities[identity.ID] = *identity
	return nil
}

// GetByEmail returns an identity by email.
func (r *MemoryIdentityRepository) GetByEmail(_ context.Context, email string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, identity := range r.identities {
		if identity.Email == email {
			found := identity
			return &found, nil
		}
	}
	return nil, fmt.Errorf("identity with email %s: %w", email, ErrNotFound)
}

// GetByID returns an identity by ID.
func (r *MemoryIdentityRepository) GetByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity with ID %s: %w", id, ErrNotFound)
	}
	return &identity, nil
}

// Delete removes an identity.
func (r *MemoryIdentityRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[id]; !ok {
		return fmt.Errorf("identity with ID %s: %w", id, ErrNotFound)
	}
	delete(r.identities, id)
	return nil
}

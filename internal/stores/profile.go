package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"plantmart/internal/identity"
	"plantmart/internal/metrics"
	"plantmart/internal/models"
	"plantmart/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Status is the authentication state of one identity.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

type profileState struct {
	profile *models.UserProfile
	status  Status
}

// ProfileConfig configures a ProfileStore.
type ProfileConfig struct {
	Compensation CompensationPolicy
}

// ProfileStore mirrors the profile of every signed-in identity and follows
// the identity provider's events.
type ProfileStore struct {
	provider identity.Provider
	repo     repositories.ProfileRepository
	validate *validator.Validate
	policy   CompensationPolicy
	log      logrus.FieldLogger

	mu          sync.RWMutex
	states      map[string]*profileState
	unsubscribe func()
}

// NewProfileStore creates a ProfileStore. Call Start to follow identity events.
func NewProfileStore(provider identity.Provider, repo repositories.ProfileRepository, validate *validator.Validate, cfg ProfileConfig, log logrus.FieldLogger) *ProfileStore {
	policy := cfg.Compensation
	if policy == "" {
		policy = CompensateNone
	}
	return &ProfileStore{
		provider: provider,
		repo:     repo,
		validate: validate,
		policy:   policy,
		log:      log.WithField("store", "profile"),
		states:   make(map[string]*profileState),
	}
}

// Start subscribes to identity events. Calling it twice is a no-op.
func (s *ProfileStore) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.provider.Subscribe(s.handleEvent)
}

// Close drops the identity event subscription. It is idempotent.
func (s *ProfileStore) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *ProfileStore) handleEvent(ctx context.Context, event identity.Event, session *identity.Session) {
	if !session.Authenticated() {
		return
	}
	switch event {
	case identity.SignedIn, identity.TokenRefreshed:
		// failures are logged by FetchProfile and leave the identity unauthenticated
		_, _ = s.FetchProfile(ctx, session)
	case identity.SignedOut:
		s.drop(session.UserID)
	}
}

// SignUp creates an identity and its profile row as one provisioning step.
// If the profile insert fails a *PartialSignUpError is returned after the
// configured compensation ran; with CompensateNone the returned session is
// still usable and EnsureProfile can repair the missing row.
func (s *ProfileStore) SignUp(ctx context.Context, input models.ProfileInput, password string) (*identity.Session, *models.UserProfile, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("invalid profile: %w", err)
	}

	metadata := map[string]any{"name": input.Name}
	if input.Avatar != "" {
		metadata["avatar_url"] = input.Avatar
	}
	session, err := s.provider.SignUp(ctx, input.Email, password, metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}

	s.setStatus(session.UserID, StatusLoading)
	profile := input.Profile(session.UserID)
	profile.TotalOrders = 0

	_, err = s.repo.Create(ctx, profile)
	metrics.RecordGateway("profiles", "insert", err)
	if err != nil {
		s.setStatus(session.UserID, StatusUnauthenticated)
		partial := s.compensate(ctx, session.UserID, err)
		if partial.Compensated {
			session = nil
		}
		return session, nil, partial
	}

	created, err := s.FetchProfile(ctx, session)
	if err != nil {
		return session, nil, err
	}
	return session, created, nil
}

func (s *ProfileStore) compensate(ctx context.Context, identityID string, cause error) *PartialSignUpError {
	partial := &PartialSignUpError{
		IdentityID: identityID,
		Policy:     s.policy,
		Cause:      cause,
	}
	entry := s.log.WithFields(logrus.Fields{"user_id": identityID, "policy": s.policy})

	if s.policy == CompensateDeleteIdentity {
		if err := s.provider.DeleteIdentity(ctx, identityID); err != nil {
			partial.CompensationErr = err
			entry.WithError(err).Error("failed to delete identity after profile insert failure")
		} else {
			partial.Compensated = true
		}
	}
	entry.WithError(cause).Error("error creating profile")
	return partial
}

// EnsureProfile returns the identity's profile row, inserting it from input
// when it does not exist yet.
func (s *ProfileStore) EnsureProfile(ctx context.Context, session *identity.Session, input models.ProfileInput) (*models.UserProfile, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}

	existing, err := s.repo.GetByID(ctx, session.UserID)
	metrics.RecordGateway("profiles", "get", err)
	if err == nil {
		s.setProfile(existing)
		return cloneProfile(existing), nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	if input.Email == "" {
		input.Email = session.Email
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	created, err := s.repo.Create(ctx, input.Profile(session.UserID))
	metrics.RecordGateway("profiles", "insert", err)
	if err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Error("error provisioning profile")
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	s.setProfile(created)
	return cloneProfile(created), nil
}

// SignIn signs in with the provider. The SignedIn event loads the profile
// into the mirror before SignIn returns; the profile is nil if that failed.
func (s *ProfileStore) SignIn(ctx context.Context, email, password string) (*identity.Session, *models.UserProfile, error) {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}
	profile, _ := s.Profile(session.UserID)
	return session, profile, nil
}

// SignOut drops the identity's local state and signs out at the provider.
func (s *ProfileStore) SignOut(ctx context.Context, session *identity.Session) error {
	if !session.Authenticated() {
		return nil
	}
	s.drop(session.UserID)
	if err := s.provider.SignOut(ctx, session); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// FetchProfile loads the identity's profile into the mirror. A missing row
// or gateway error leaves the identity unauthenticated.
func (s *ProfileStore) FetchProfile(ctx context.Context, session *identity.Session) (*models.UserProfile, error) {
	if !session.Authenticated() {
		return nil, nil
	}

	s.setStatus(session.UserID, StatusLoading)
	profile, err := s.repo.GetByID(ctx, session.UserID)
	metrics.RecordGateway("profiles", "get", err)
	if err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Error("error fetching profile")
		s.mu.Lock()
		s.states[session.UserID] = &profileState{status: StatusUnauthenticated}
		s.mu.Unlock()
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	s.setProfile(profile)
	return cloneProfile(profile), nil
}

// UpdateProfile applies patch to the mirrored profile.
func (s *ProfileStore) UpdateProfile(ctx context.Context, session *identity.Session, patch models.ProfilePatch) (*models.UserProfile, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	current, ok := s.Profile(session.UserID)
	if !ok {
		return nil, fmt.Errorf("no user logged in: %w", ErrUnauthenticated)
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("invalid profile update: %w", err)
	}
	if patch.Empty() {
		return current, nil
	}

	err := s.repo.Update(ctx, session.UserID, patch)
	metrics.RecordGateway("profiles", "update", err)
	if err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Error("error updating profile")
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[session.UserID]
	if !ok || state.profile == nil {
		// signed out while the update was in flight
		return nil, fmt.Errorf("no user logged in: %w", ErrUnauthenticated)
	}
	updated := patch.Apply(*state.profile)
	state.profile = &updated
	return cloneProfile(&updated), nil
}

// Profile returns a copy of the identity's mirrored profile.
func (s *ProfileStore) Profile(userID string) (*models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	if !ok || state.profile == nil {
		return nil, false
	}
	return cloneProfile(state.profile), true
}

// Status returns the identity's authentication state. Identities the store
// has never seen are unauthenticated.
func (s *ProfileStore) Status(userID string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[userID]; ok {
		return state.status
	}
	return StatusUnauthenticated
}

func (s *ProfileStore) setStatus(userID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		state = &profileState{}
		s.states[userID] = state
	}
	state.status = status
}

func (s *ProfileStore) setProfile(profile *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[profile.ID] = &profileState{
		profile: cloneProfile(profile),
		status:  StatusAuthenticated,
	}
}

func (s *ProfileStore) drop(userID string) {
	s.mu.Lock()
	delete(s.states, userID)
	s.mu.Unlock()
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	out := *p
	out.FavoriteCategories = append([]string{}, p.FavoriteCategories...)
	return &out
}

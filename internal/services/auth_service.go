package services

import (
	"context"
	"fmt"

	"plantmart/internal/identity"
	"plantmart/internal/models"
	"plantmart/internal/stores"

	"github.com/sirupsen/logrus"
)

// AuthService ties the identity provider to the per-user stores: it signs
// users in and out and keeps their cart and profile mirrors in step.
type AuthService struct {
	provider identity.Provider
	profiles *stores.ProfileStore
	carts    *stores.CartStore
	log      logrus.FieldLogger
}

// NewAuthService creates a new AuthService.
func NewAuthService(provider identity.Provider, profiles *stores.ProfileStore, carts *stores.CartStore, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		provider: provider,
		profiles: profiles,
		carts:    carts,
		log:      log.WithField("service", "auth"),
	}
}

// Register signs a user up and provisions their profile.
func (s *AuthService) Register(ctx context.Context, input models.ProfileInput, password string) (*identity.Session, *models.UserProfile, error) {
	return s.profiles.SignUp(ctx, input, password)
}

// Login authenticates a user, loads their profile and warms their cart mirror.
func (s *AuthService) Login(ctx context.Context, email, password string) (*identity.Session, *models.UserProfile, error) {
	session, profile, err := s.profiles.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.carts.FetchCart(ctx, session); err != nil {
		s.log.WithField("user_id", session.UserID).WithError(err).Warn("signed in but cart could not be loaded")
	}
	return session, profile, nil
}

// Refresh exchanges a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	session, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return session, nil
}

// Logout ends the session and drops the user's mirrors.
func (s *AuthService) Logout(ctx context.Context, session *identity.Session) error {
	if !session.Authenticated() {
		return stores.ErrUnauthenticated
	}
	s.carts.Forget(session.UserID)
	return s.profiles.SignOut(ctx, session)
}

// Authenticate resolves the session behind an access token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*identity.Session, error) {
	session, err := s.provider.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return session, nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"plantmart/pkg/supabase"
)

// SupabaseProvider delegates identity management to GoTrue.
type SupabaseProvider struct {
	auth   *supabase.AuthClient
	events *Broadcaster
}

// NewSupabaseProvider creates a SupabaseProvider on client.
func NewSupabaseProvider(client *supabase.Client) *SupabaseProvider {
	return &SupabaseProvider{
		auth:   client.Auth(),
		events: NewBroadcaster(),
	}
}

// SignUp creates a GoTrue user.
func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	resp, err := p.auth.SignUp(ctx, email, password, metadata)
	if err != nil {
		var se *supabase.Error
		if errors.As(err, &se) && (se.Status == http.StatusUnprocessableEntity || se.Code == "user_already_exists") {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, se.Message)
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	session := sessionFrom(resp)
	if session.UserID == "" {
		return nil, fmt.Errorf("sign up: response carried no user")
	}
	return session, nil
}

// SignIn exchanges credentials for a session and emits SignedIn.
func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		var se *supabase.Error
		if errors.As(err, &se) && se.Status == http.StatusBadRequest {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	session := sessionFrom(resp)
	p.events.Emit(ctx, SignedIn, session)
	return session, nil
}

// SignOut revokes the session at GoTrue and emits SignedOut.
func (p *SupabaseProvider) SignOut(ctx context.Context, session *Session) error {
	if !session.Authenticated() {
		return nil
	}
	err := p.auth.SignOut(ctx, session.AccessToken)
	p.events.Emit(ctx, SignedOut, session)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Refresh exchanges a refresh token and emits TokenRefreshed.
func (p *SupabaseProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := p.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	session := sessionFrom(resp)
	p.events.Emit(ctx, TokenRefreshed, session)
	return session, nil
}

// Verify asks GoTrue who owns accessToken.
func (p *SupabaseProvider) Verify(ctx context.Context, accessToken string) (*Session, error) {
	user, err := p.auth.GetUser(ctx, accessToken)
	if err != nil {
		var se *supabase.Error
		if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, se.Message)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return &Session{
		UserID:      user.ID,
		Email:       user.Email,
		AccessToken: accessToken,
	}, nil
}

// DeleteIdentity removes a GoTrue user. The client must hold a service-role key.
func (p *SupabaseProvider) DeleteIdentity(ctx context.Context, userID string) error {
	if err := p.auth.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete identity %s: %w", userID, err)
	}
	return nil
}

// Subscribe registers an event listener.
func (p *SupabaseProvider) Subscribe(l Listener) func() {
	return p.events.Subscribe(l)
}

func sessionFrom(resp *supabase.AuthResponse) *Session {
	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.User != nil {
		session.UserID = resp.User.ID
		session.Email = resp.User.Email
	}
	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		session.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	return session
}

// Package identity provides the session/identity providers the stores
// authenticate against, and the event stream they react to.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, expired or revoked tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrEmailTaken is returned by SignUp when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Session is an authenticated identity plus its tokens. Every store call that
// touches per-user data takes one.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Authenticated reports whether s identifies a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// Event is an identity state change.
type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	TokenRefreshed Event = "TOKEN_REFRESHED"
	SignedOut      Event = "SIGNED_OUT"
)

// Listener receives identity events. session is the session the event is
// about; for SignedOut it is the session being ended.
type Listener func(ctx context.Context, event Event, session *Session)

// Provider is an identity provider.
type Provider interface {
	// SignUp creates an identity. It does not emit SignedIn; the returned
	// session may carry no tokens when the provider requires confirmation.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, session *Session) error
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// Verify resolves the identity behind an access token.
	Verify(ctx context.Context, accessToken string) (*Session, error)
	DeleteIdentity(ctx context.Context, userID string) error
	// Subscribe registers l and returns a function that removes it.
	Subscribe(l Listener) (unsubscribe func())
}

// Broadcaster fans identity events out to listeners. Emit calls listeners
// synchronously, in subscription order.
type Broadcaster struct {
	mu        sync.RWMutex
	next      int
	order     []int
	listeners map[int]Listener
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[int]Listener)}
}

// Subscribe registers l. The returned function is safe to call more than once.
func (b *Broadcaster) Subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = l
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit delivers event to every current listener.
func (b *Broadcaster) Emit(ctx context.Context, event Event, session *Session) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, event, session)
	}
}

// Len returns the number of subscribed listeners.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

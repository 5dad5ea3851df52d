package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"plantmart/internal/models"
	"plantmart/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// LocalConfig configures a LocalProvider.
type LocalConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	RefreshTTL time.Duration
}

// LocalProvider manages identities in an IdentityRepository and issues
// HS256 JWT access and refresh tokens.
type LocalProvider struct {
	identities repositories.IdentityRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	refreshTTL time.Duration
	events     *Broadcaster
	log        logrus.FieldLogger

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
	now     func() time.Time
}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider(identities repositories.IdentityRepository, cfg LocalConfig, log logrus.FieldLogger) (*LocalProvider, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &LocalProvider{
		identities: identities,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		refreshTTL: cfg.RefreshTTL,
		events:     NewBroadcaster(),
		log:        log,
		revoked:    make(map[string]time.Time),
		now:        time.Now,
	}, nil
}

// SignUp registers a new identity and hashes its password.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if existing, err := p.identities.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &models.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if name, ok := metadata["name"].(string); ok {
		identity.Name = name
	}
	if err := p.identities.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to register identity: %w", err)
	}
	return p.issue(identity)
}

// SignIn authenticates email/password and emits SignedIn.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	identity, err := p.identities.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := p.issue(identity)
	if err != nil {
		return nil, err
	}
	p.events.Emit(ctx, SignedIn, session)
	return session, nil
}

// SignOut revokes the session's tokens and emits SignedOut.
func (p *LocalProvider) SignOut(ctx context.Context, session *Session) error {
	if !session.Authenticated() {
		return nil
	}
	for _, token := range []string{session.AccessToken, session.RefreshToken} {
		if token == "" {
			continue
		}
		if claims, err := p.parse(token); err == nil {
			p.revoke(claims)
		}
	}
	p.events.Emit(ctx, SignedOut, session)
	return nil
}

// Refresh exchanges a refresh token for a new session and emits
// TokenRefreshed. The old refresh token is revoked.
func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := p.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims["typ"] != tokenTypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	userID, _ := claims["user_id"].(string)
	identity, err := p.identities.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown identity", ErrInvalidToken)
	}
	p.revoke(claims)

	session, err := p.issue(identity)
	if err != nil {
		return nil, err
	}
	p.events.Emit(ctx, TokenRefreshed, session)
	return session, nil
}

// Verify validates an access token and returns its session.
func (p *LocalProvider) Verify(_ context.Context, accessToken string) (*Session, error) {
	claims, err := p.parse(accessToken)
	if err != nil {
		return nil, err
	}
	if claims["typ"] != tokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	exp, _ := claims["exp"].(float64)
	return &Session{
		UserID:      userID,
		Email:       email,
		AccessToken: accessToken,
		ExpiresAt:   time.Unix(int64(exp), 0).UTC(),
	}, nil
}

// DeleteIdentity removes an identity.
func (p *LocalProvider) DeleteIdentity(ctx context.Context, userID string) error {
	if err := p.identities.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete identity %s: %w", userID, err)
	}
	return nil
}

// Subscribe registers an event listener.
func (p *LocalProvider) Subscribe(l Listener) func() {
	return p.events.Subscribe(l)
}

func (p *LocalProvider) issue(identity *models.Identity) (*Session, error) {
	now := p.now()
	accessExp := now.Add(p.tokenTTL)

	access, err := p.sign(identity, tokenTypeAccess, now, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, err := p.sign(identity, tokenTypeRefresh, now, now.Add(p.refreshTTL))
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:       identity.ID,
		Email:        identity.Email,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp.UTC(),
	}, nil
}

func (p *LocalProvider) sign(identity *models.Identity, typ string, now, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": identity.ID,
		"email":   identity.Email,
		"typ":     typ,
		"jti":     uuid.New().String(),
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(p.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

func (p *LocalProvider) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.jwtSecret, nil
	})
	if err != nil {
		p.log.WithError(err).Debug("token validation failed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if jti, _ := claims["jti"].(string); p.isRevoked(jti) {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}

func (p *LocalProvider) revoke(claims jwt.MapClaims) {
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}
	exp, _ := claims["exp"].(float64)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[jti] = time.Unix(int64(exp), 0)

	// expired tokens fail validation anyway
	now := p.now()
	for id, until := range p.revoked {
		if until.Before(now) {
			delete(p.revoked, id)
		}
	}
}

func (p *LocalProvider) isRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.revoked[jti]
	return ok
}

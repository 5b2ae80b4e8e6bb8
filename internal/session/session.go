// Package session persists the signed-in user's bearer credential and
// announces when it is revoked.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/service"
)

// Storage keys shared with every other front end of the same API.
const (
	TokenKey    = "auth_token"
	UsernameKey = "username"
)

// LoginFailedMessage is shown for any failed sign-in, whatever the cause.
const LoginFailedMessage = "Invalid username or password"

// LogoutReason records why a session ended.
type LogoutReason string

// Logout reasons.
const (
	ReasonUser         LogoutReason = "user"
	ReasonUnauthorized LogoutReason = "unauthorized"
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.LoginResponse, error)
}

// Store owns the persisted session. It is safe for concurrent use.
type Store struct {
	kv          service.KeyValueStore
	logger      *slog.Logger
	subscribers map[int]func(LogoutReason)
	nextID      int
	mu          sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a session store backed by kv.
func New(kv service.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:          kv,
		logger:      slog.Default(),
		subscribers: make(map[int]func(LogoutReason)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login signs in through auth and persists the returned token and username.
// Every failure is reported as ErrAuthFailed with the same user message so
// the caller cannot tell a bad password from an unreachable server.
func (s *Store) Login(ctx context.Context, auth Authenticator, username, password string) (*model.Session, error) {
	if auth == nil {
		return nil, fmt.Errorf("%w: no authenticator", common.ErrMissingConfig)
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, common.NewUserError(LoginFailedMessage, fmt.Errorf("%w: username and password are required", common.ErrAuthFailed))
	}

	resp, err := auth.Login(ctx, username, password)
	if err != nil {
		s.logger.Debug("Login rejected", "username", username, "error", err)
		return nil, common.NewUserError(LoginFailedMessage, fmt.Errorf("%w: %w", common.ErrAuthFailed, err))
	}
	if resp == nil || resp.AccessToken == "" {
		return nil, common.NewUserError(LoginFailedMessage, fmt.Errorf("%w: empty access token", common.ErrAuthFailed))
	}

	name := resp.Username
	if name == "" {
		name = username
	}

	if err := s.kv.SetValue(ctx, TokenKey, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to save session token: %w", err)
	}
	if err := s.kv.SetValue(ctx, UsernameKey, name); err != nil {
		return nil, fmt.Errorf("failed to save username: %w", err)
	}

	s.logger.Info("Signed in", "username", name)
	return newSession(resp.AccessToken, resp.TokenType, name), nil
}

// Logout clears the persisted credential and notifies subscribers.
// Subscribers are notified even when no session was stored.
func (s *Store) Logout(ctx context.Context, reason LogoutReason) error {
	if err := s.kv.DeleteValues(ctx, TokenKey, UsernameKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.Info("Signed out", "reason", string(reason))

	s.mu.Lock()
	handlers := make([]func(LogoutReason), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(reason)
	}
	return nil
}

// Subscribe registers fn to run after every logout.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(LogoutReason)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Token returns the persisted bearer token, or "" when signed out.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.kv.GetValue(ctx, TokenKey)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return token, nil
}

// IsAuthenticated reports whether a non-empty token is persisted.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	if err != nil {
		s.logger.Warn("Could not read session", "error", err)
		return false
	}
	return token != ""
}

// Current returns the persisted session or ErrNotAuthenticated.
func (s *Store) Current(ctx context.Context) (*model.Session, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, common.ErrNotAuthenticated
	}

	username, err := s.kv.GetValue(ctx, UsernameKey)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}

	return newSession(token, "bearer", username), nil
}

func newSession(token, tokenType, username string) *model.Session {
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &model.Session{
		Token:     token,
		TokenType: tokenType,
		Username:  username,
		ExpiresAt: TokenExpiry(token),
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying it.
// It returns nil for opaque tokens or tokens without an expiry.
func TokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

// Package session owns the one live LedgerOS session token for the
// lifetime of the process.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/port"
)

// Session is the application-scoped token holder. Every change bumps the
// generation so callers can tell whether a token they saw is still the
// live one.
type Session struct {
	store  port.TokenStore
	logger *zap.Logger

	mu         sync.RWMutex
	token      string
	generation uint64
	onExpire   []func()
}

// New creates an empty session backed by store.
func New(store port.TokenStore, logger *zap.Logger) *Session {
	return &Session{store: store, logger: logger}
}

// OnExpire registers fn to run once per expiry, after the token is gone.
func (s *Session) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

// Init loads a persisted token, if any. A store failure leaves the session
// logged out.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load persisted token", zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.token = token
	s.generation++
	s.mu.Unlock()
	return nil
}

// Set makes token the live token and persists it.
func (s *Session) Set(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.generation++
	s.mu.Unlock()

	if err := s.store.Save(ctx, token); err != nil {
		s.logger.Warn("failed to persist token", zap.Error(err))
	}
}

// Clear removes the live token locally and from the store.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.generation++
	s.mu.Unlock()

	s.forget(ctx)
}

// Expire ends the session after the server rejected token. It only acts
// when token is still the live one, so any number of concurrent rejections
// of the same token expire the session exactly once. It reports whether
// this call did the expiring.
func (s *Session) Expire(ctx context.Context, token string) bool {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.generation++
	hooks := append([]func(){}, s.onExpire...)
	s.mu.Unlock()

	s.logger.Info("session expired")
	s.forget(ctx)
	for _, fn := range hooks {
		fn()
	}
	return true
}

// Teardown drops the in-memory token at process exit. The persisted token
// is kept so the next start resumes the session.
func (s *Session) Teardown(context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Token returns the live token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns the live token together with its generation.
func (s *Session) Snapshot() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.generation
}

// Authenticated reports whether a token is live.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Generation increases on every Set, Clear and Expire.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Session) forget(ctx context.Context) {
	if err := s.store.Delete(ctx); err != nil {
		s.logger.Warn("failed to delete persisted token", zap.Error(err))
	}
}

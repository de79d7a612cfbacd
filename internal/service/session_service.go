// Package service holds the console's use cases. Each service talks to the
// LedgerOS API through the port interfaces and keeps per-page view
// snapshots; nothing here knows about HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/port"
	"github.com/ledgeros/console-bfa-go/internal/session"
)

var sessionTracer = otel.Tracer("service/session")

// SessionService is the session gate: first-run setup, login, logout and
// the settings page actions. It also issues the console access tokens the
// browser uses against this gateway.
type SessionService struct {
	api       port.AuthAPI
	session   *session.Session
	jwtSecret []byte
	accessTTL time.Duration
	instance  string
	onReset   []func()
	logger    *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(api port.AuthAPI, sess *session.Session, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		api:       api,
		session:   sess,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		instance:  uuid.NewString(),
		logger:    logger,
	}
}

// OnReset registers fn to run whenever cached views must be dropped:
// after setup, login, logout and a data reset.
func (s *SessionService) OnReset(fn func()) {
	s.onReset = append(s.onReset, fn)
}

func (s *SessionService) resetViews() {
	for _, fn := range s.onReset {
		fn()
	}
}

// ============================================================
// Status — GET /v1/session
// ============================================================

// Status decides what the gate shows for the holder of the LedgerOS
// token itself. A failed status check never blocks: it reads as "login
// required".
func (s *SessionService) Status(ctx context.Context) *domain.SessionStatus {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Status")
	defer span.End()

	check, err := s.api.Check(ctx)
	if err != nil {
		s.logger.Warn("auth check failed", zap.Error(err))
		return &domain.SessionStatus{State: domain.StateLoginRequired}
	}
	if check.SetupRequired {
		return &domain.SessionStatus{State: domain.StateSetupRequired, SetupRequired: true}
	}
	if !s.session.Authenticated() {
		return &domain.SessionStatus{State: domain.StateLoginRequired}
	}

	if err := s.api.Probe(ctx); err != nil {
		// A 401 has already cleared the token inside the client. Any other
		// failure leaves a possibly valid token alone.
		if !s.session.Authenticated() {
			return &domain.SessionStatus{State: domain.StateLoginRequired}
		}
		s.logger.Warn("token probe failed", zap.Error(err))
	}
	return &domain.SessionStatus{State: domain.StateAuthenticated, Authenticated: true}
}

// StatusFor is Status as seen by one browser. A live session only counts
// as authenticated when accessToken is a console token issued for it, so
// a browser whose token predates a gateway restart or a newer login is
// sent to the login page instead of into protected routes it cannot use.
func (s *SessionService) StatusFor(ctx context.Context, accessToken string) *domain.SessionStatus {
	status := s.Status(ctx)
	if status.State != domain.StateAuthenticated {
		return status
	}
	if _, err := s.ValidateAccessToken(accessToken); err != nil {
		s.logger.Debug("session live but console token rejected", zap.Error(err))
		return &domain.SessionStatus{State: domain.StateLoginRequired}
	}
	return status
}

// Authenticated reports whether a LedgerOS token is live.
func (s *SessionService) Authenticated() bool {
	return s.session.Authenticated()
}

// ============================================================
// Setup / Login — POST /v1/session/setup, /v1/session/login
// ============================================================

// Setup sets the first password and logs in.
func (s *SessionService) Setup(ctx context.Context, form domain.SetupForm) (*domain.ConsoleLogin, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Setup")
	defer span.End()

	if err := form.Validate(); err != nil {
		return nil, err
	}
	token, err := s.api.Setup(ctx, form.Password)
	if err != nil {
		return nil, authFailed(err)
	}
	s.logger.Info("first-run setup complete")
	return s.begin(ctx, token)
}

// Login exchanges the password for a session.
func (s *SessionService) Login(ctx context.Context, form domain.LoginForm) (*domain.ConsoleLogin, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Login")
	defer span.End()

	if err := form.Validate(); err != nil {
		return nil, err
	}
	token, err := s.api.Login(ctx, form.Password)
	if err != nil {
		return nil, authFailed(err)
	}
	s.logger.Info("logged in")
	return s.begin(ctx, token)
}

// authFailed keeps a rejected password from reading as an expired session.
func authFailed(err error) error {
	var (
		unauthorized *domain.ErrUnauthorized
		expired      *domain.ErrSessionExpired
		gone         *domain.ErrSessionAlreadyExpired
	)
	if errors.As(err, &unauthorized) || errors.As(err, &expired) || errors.As(err, &gone) {
		return &domain.ErrUnauthorized{Message: "Authentication failed"}
	}
	return domain.Failed(err, "Authentication failed")
}

func (s *SessionService) begin(ctx context.Context, token string) (*domain.ConsoleLogin, error) {
	s.session.Set(ctx, token)
	s.resetViews()

	_, gen := s.session.Snapshot()
	access, err := s.signAccessToken(gen)
	if err != nil {
		return nil, fmt.Errorf("signing console token: %w", err)
	}
	return &domain.ConsoleLogin{AccessToken: access, ExpiresIn: int(s.accessTTL.Seconds())}, nil
}

// ============================================================
// Logout — POST /v1/session/logout
// ============================================================

// Logout tells the server, then forgets the token locally whatever the
// server said.
func (s *SessionService) Logout(ctx context.Context) {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Logout")
	defer span.End()

	if s.session.Authenticated() {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warn("logout request failed", zap.Error(err))
		}
	}
	s.session.Clear(ctx)
	s.resetViews()
	s.logger.Info("logged out")
}

// ============================================================
// Settings — change password, reset all data
// ============================================================

// ChangePassword changes the password of the live session.
func (s *SessionService) ChangePassword(ctx context.Context, form domain.ChangePasswordForm) error {
	ctx, span := sessionTracer.Start(ctx, "SessionService.ChangePassword")
	defer span.End()

	if err := form.Validate(); err != nil {
		return err
	}
	if err := s.api.ChangePassword(ctx, form.Request()); err != nil {
		return domain.Failed(err, "Failed to change password")
	}
	return nil
}

// ResetAllData wipes every record after the literal confirmation.
func (s *SessionService) ResetAllData(ctx context.Context, form domain.ResetForm) error {
	ctx, span := sessionTracer.Start(ctx, "SessionService.ResetAllData")
	defer span.End()

	if err := form.Validate(); err != nil {
		return err
	}
	if err := s.api.ResetAllData(ctx); err != nil {
		return domain.Failed(err, "Failed to reset data")
	}
	s.resetViews()
	s.logger.Warn("all data reset")
	return nil
}

// ============================================================
// Console access tokens — used by middleware
// ============================================================

// ConsoleClaims binds a console token to one session generation of one
// gateway process. Any later login, logout or expiry invalidates it.
type ConsoleClaims struct {
	Sub      string `json:"sub"`
	Instance string `json:"sid"`
	Gen      uint64 `json:"gen"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken checks a console token against the live session.
func (s *SessionService) ValidateAccessToken(tokenString string) (*ConsoleClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ConsoleClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Invalid or expired token"}
	}

	claims, ok := token.Claims.(*ConsoleClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token type"}
	}

	live, gen := s.session.Snapshot()
	if claims.Instance != s.instance || claims.Gen != gen || live == "" {
		return nil, &domain.ErrUnauthorized{Message: "Login required"}
	}
	return claims, nil
}

func (s *SessionService) signAccessToken(gen uint64) (string, error) {
	now := time.Now()
	claims := ConsoleClaims{
		Sub:      "console",
		Instance: s.instance,
		Gen:      gen,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "ledgeros-console",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

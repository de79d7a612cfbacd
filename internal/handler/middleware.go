package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/ledgeros/console-bfa-go/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "consoleClaims"

// ConsoleAuthMiddleware validates the console's Bearer token against the
// live session and injects its claims into the context.
func ConsoleAuthMiddleware(sessionSvc *service.SessionService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Login required", Redirect: loginPath})
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid token format", Redirect: loginPath})
				return
			}

			claims, err := sessionSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Debug("auth: token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Redirect: loginPath})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the console claims of an authenticated request.
func ClaimsFromContext(ctx context.Context) *service.ConsoleClaims {
	v, _ := ctx.Value(claimsKey).(*service.ConsoleClaims)
	return v
}

// bearerToken returns the Bearer credential of r, or "" when there is none.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

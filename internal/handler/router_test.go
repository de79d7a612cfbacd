package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/handler"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type stubUpstream struct{ state string }

func (s stubUpstream) CircuitState() string { return s.state }

func newRouter(upstream handler.Upstream) http.Handler {
	return handler.NewRouter(handler.Services{}, upstream, nil, observability.NewMetrics(), zap.NewNop())
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(newRouter(nil), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		wantCode int
		want     string
	}{
		{"closed circuit", "closed", http.StatusOK, "healthy"},
		{"half-open circuit", "half-open", http.StatusOK, "degraded"},
		{"open circuit", "open", http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newRouter(stubUpstream{state: tt.state}), http.MethodGet, "/readyz")
			require.Equal(t, tt.wantCode, rec.Code)

			health := decodeBody[domain.HealthStatus](t, rec)
			assert.Equal(t, tt.want, health.Status)
			require.Len(t, health.Services, 2)
			assert.Equal(t, "ledgeros-api", health.Services[1].Name)
			assert.Equal(t, tt.state, health.Services[1].CircuitState)
		})
	}
}

func TestMetrics(t *testing.T) {
	rec := serve(newRouter(nil), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console_session_expirations_total")
}

func TestConsoleMetrics(t *testing.T) {
	rec := serve(newRouter(nil), http.MethodGet, "/v1/metrics/console")

	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, snap["authenticated"])
}

func TestProtectedRoutesRequireConsoleToken(t *testing.T) {
	router := newRouter(nil)

	for _, path := range []string{"/v1/import", "/v1/transactions", "/v1/loans", "/v1/exports/transactions"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(router, http.MethodGet, path)
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			body := decodeBody[map[string]string](t, rec)
			assert.Equal(t, "Login required", body["error"])
			assert.Equal(t, "/login", body["redirect"])
		})
	}
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/import", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	newRouter(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token format", decodeBody[map[string]string](t, rec)["error"])
}

package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConsoleSnapshotCountsRequestsAndRows(t *testing.T) {
	m := NewMetrics()

	m.IncrRequest("2xx")
	m.IncrRequest("2xx")
	m.IncrRequest("4xx")
	m.IncrRequest("5xx")
	m.IncrExternalError("upload")
	m.IncrExternalError("reports")
	m.IncrSessionExpired()
	m.IncrStaleDiscarded("transactions")
	m.AddStagedRows(12)
	m.AddSavedRows(10)

	snap := m.GetConsoleSnapshot(true)

	assert.EqualValues(t, 4, snap.TotalRequests)
	assert.InDelta(t, 0.25, snap.ErrorRate, 1e-9)
	assert.EqualValues(t, 2, snap.UpstreamErrors)
	assert.EqualValues(t, 1, snap.SessionExpirations)
	assert.EqualValues(t, 1, snap.StaleDiscarded)
	assert.EqualValues(t, 12, snap.RowsStaged)
	assert.EqualValues(t, 10, snap.RowsSaved)
	assert.True(t, snap.Authenticated)
}

func TestConsoleSnapshotEmpty(t *testing.T) {
	snap := NewMetrics().GetConsoleSnapshot(false)

	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.ErrorRate)
	assert.False(t, snap.Authenticated)
}

func TestNewMetricsTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 204: "2xx", 302: "3xx", 401: "4xx", 502: "5xx"}
	for status, want := range cases {
		assert.Equal(t, want, StatusClass(status), "status %d", status)
	}
}

func TestZapLoggerMiddlewareCountsStatus(t *testing.T) {
	m := NewMetrics()
	h := ZapLoggerMiddleware(zap.NewNop(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/reports", nil))

	snap := m.GetConsoleSnapshot(false)
	assert.EqualValues(t, 1, snap.TotalRequests)
	assert.InDelta(t, 1.0, snap.ErrorRate, 1e-9)
}

package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an upstream dependency.
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	LatencyMs    int64  `json:"latencyMs"`
	CircuitState string `json:"circuitState,omitempty"`
	LastChecked  string `json:"lastChecked"`
}

// ConsoleMetrics is returned by GET /v1/metrics/console.
type ConsoleMetrics struct {
	TotalRequests      int64   `json:"totalRequests"`
	UpstreamErrors     int64   `json:"upstreamErrors"`
	ErrorRate          float64 `json:"errorRate"`
	SessionExpirations int64   `json:"sessionExpirations"`
	StaleDiscarded     int64   `json:"staleResponsesDiscarded"`
	RowsStaged         int64   `json:"rowsStaged"`
	RowsSaved          int64   `json:"rowsSaved"`
	Authenticated      bool    `json:"authenticated"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// Package resilience provides fault-tolerance patterns for upstream calls:
// circuit breaker and bulkhead. Calls are never retried; a failed request is
// reported to the caller as-is.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
)

// Config holds resilience parameters.
type Config struct {
	MaxConcurrency int
	OpenTimeout    time.Duration
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// Only transport failures and 5xx responses count against it: a 4xx is the
// server answering correctly, and a 401 is the session ending.
func NewCircuitBreaker(name string, cfg Config, logger *zap.Logger) *gobreaker.CircuitBreaker {
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     timeout,          // open -> half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
	})
}

// IsSuccessful tells the breaker which outcomes are healthy.
func IsSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < 500
	}
	var unauthorized *domain.ErrUnauthorized
	var expired *domain.ErrSessionExpired
	if errors.As(err, &unauthorized) || errors.As(err, &expired) {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// InFlight returns the number of slots currently held.
func (b *Bulkhead) InFlight() int {
	return len(b.sem)
}

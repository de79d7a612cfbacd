package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/resilience"
)

func TestIsSuccessful(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"not found", &domain.APIError{Status: 404, Detail: "missing"}, true},
		{"bad request wrapped", fmt.Errorf("create: %w", &domain.APIError{Status: 400}), true},
		{"unauthorized", &domain.ErrUnauthorized{}, true},
		{"session expired", &domain.ErrSessionExpired{}, true},
		{"server error", &domain.APIError{Status: 502}, false},
		{"transport", errors.New("connection refused"), false},
		{"canceled", context.Canceled, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resilience.IsSuccessful(tc.err); got != tc.want {
				t.Errorf("IsSuccessful(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCircuitBreaker_ClientErrorsNeverTrip(t *testing.T) {
	cb := resilience.NewCircuitBreaker("ledgeros-test", resilience.Config{}, zap.NewNop())

	for i := 0; i < 20; i++ {
		_, _ = cb.Execute(func() (any, error) {
			return nil, &domain.APIError{Status: 422, Detail: "invalid"}
		})
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed breaker after 4xx responses, got %s", cb.State())
	}
}

func TestCircuitBreaker_TripsOnServerErrors(t *testing.T) {
	cb := resilience.NewCircuitBreaker("ledgeros-test", resilience.Config{OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (any, error) {
			return nil, &domain.APIError{Status: 503}
		})
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}

	_, err := cb.Execute(func() (any, error) { return nil, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if bh.InFlight() != 2 {
		t.Errorf("expected 2 in flight, got %d", bh.InFlight())
	}

	// Third acquire should block; test with timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestBulkhead_NonPositiveSizeAllowsOne(t *testing.T) {
	bh := resilience.NewBulkhead(0)
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	bh.Release()
}

// Package ledgerapi is the HTTP client for the LedgerOS REST API. Every
// request carries the live session token; a 401 from any endpoint ends the
// session.
package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/infra/resilience"
	"github.com/ledgeros/console-bfa-go/internal/session"
)

var tracer = otel.Tracer("ledgerapi")

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Client talks to one LedgerOS backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *session.Session
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a Client for the backend at origin. Paths are resolved
// under origin + "/api".
func NewClient(
	httpClient *http.Client,
	origin string,
	sess *session.Session,
	cb *gobreaker.CircuitBreaker,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(origin, "/") + "/api",
		session:    sess,
		cb:         cb,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
	}
}

// CircuitState reports the breaker state for readiness checks.
func (c *Client) CircuitState() string {
	return c.cb.State().String()
}

// request describes one upstream call.
type request struct {
	service     string // endpoint group, used for metrics and errors
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// do sends req with the live token and returns the successful response.
// The caller must close the body; closing it releases the bulkhead slot.
func (c *Client) do(ctx context.Context, req request) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "LedgerAPI."+req.service, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("ledgeros.path", req.path),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}

	token := c.session.Token()
	start := time.Now()

	result, err := c.cb.Execute(func() (any, error) {
		return c.send(ctx, req, token)
	})

	c.metrics.RecordRequestDuration("ledgerapi."+req.service, time.Since(start))

	if err != nil {
		c.bulkhead.Release()
		err = c.classify(ctx, req, token, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := result.(*http.Response)
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: c.bulkhead.Release}
	return resp, nil
}

// send performs the HTTP exchange. Non-2xx statuses become errors so the
// breaker can judge them; the body of a successful response is left open.
func (c *Client) send(ctx context.Context, req request, token string) (*http.Response, error) {
	query := url.Values{}
	for k, v := range req.query {
		query[k] = v
	}
	if token != "" {
		query.Set("token", token)
	}

	target := c.baseURL + req.path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, err
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.ErrUnauthorized{}
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &domain.APIError{Status: resp.StatusCode, Detail: parseDetail(raw)}
}

// classify turns a failed call into the domain error callers handle.
// A 401 expires the session if token is still live; only the call that
// did the expiring reports ErrSessionExpired. Later rejections of the same
// token report ErrSessionAlreadyExpired.
func (c *Client) classify(ctx context.Context, req request, token string, err error) error {
	var unauthorized *domain.ErrUnauthorized
	if errors.As(err, &unauthorized) {
		if c.session.Expire(ctx, token) {
			c.metrics.IncrSessionExpired()
			c.logger.Warn("ledgeros rejected session token",
				zap.String("service", req.service),
				zap.String("path", req.path),
			)
			return &domain.ErrSessionExpired{}
		}
		if token != "" {
			return &domain.ErrSessionAlreadyExpired{}
		}
		return err
	}

	c.metrics.IncrExternalError(req.service)

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		c.logger.Debug("ledgeros api error",
			zap.String("service", req.service),
			zap.Int("status", apiErr.Status),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "ledgeros"}
	}

	c.logger.Warn("ledgeros request failed",
		zap.String("service", req.service),
		zap.String("path", req.path),
		zap.Error(err),
	)
	return &domain.ErrExternalService{Service: req.service, Err: err}
}

// parseDetail extracts the server's message from {"detail": ...}. FastAPI
// sends either a string or a list of {msg} validation entries.
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return text
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

type releasingBody struct {
	io.ReadCloser
	release func()
	done    bool
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	if !b.done {
		b.done = true
		b.release()
	}
	return err
}

// ============================================================
// JSON helpers
// ============================================================

func (c *Client) getJSON(ctx context.Context, service, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, request{service: service, method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(service, resp.Body, out)
}

// sendJSON sends body as JSON. out may be nil when the response is ignored.
func (c *Client) sendJSON(ctx context.Context, service, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding %s request: %w", service, err)
		}
	}
	resp, err := c.do(ctx, request{
		service:     service,
		method:      method,
		path:        path,
		query:       query,
		body:        payload,
		contentType: "application/json",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decode(service, resp.Body, out)
}

func decode(service string, r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return &domain.ErrExternalService{Service: service, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

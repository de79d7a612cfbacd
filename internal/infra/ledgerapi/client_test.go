package ledgerapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/ledgerapi"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/infra/resilience"
	"github.com/ledgeros/console-bfa-go/internal/session"
)

type memStore struct {
	mu    sync.Mutex
	token string
}

func (m *memStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memStore) Save(_ context.Context, t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = t
	return nil
}

func (m *memStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func newClient(t *testing.T, h http.Handler) (*ledgerapi.Client, *session.Session, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	sess := session.New(&memStore{}, logger)
	metrics := observability.NewMetrics()
	c := ledgerapi.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		srv.URL,
		sess,
		resilience.NewCircuitBreaker("ledgeros-test", resilience.Config{}, logger),
		resilience.NewBulkhead(4),
		metrics,
		logger,
	)
	return c, sess, metrics
}

func TestClient_AppendsTokenAndPrefix(t *testing.T) {
	var gotPath, gotToken, gotType string
	c, sess, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		gotType = r.URL.Query().Get("type")
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Food","type":"expense","parent_id":null}]`))
	}))
	sess.Set(context.Background(), "tok-123")

	tree, err := c.Categories().Tree(context.Background(), domain.CategoryExpense)

	require.NoError(t, err)
	assert.Equal(t, "/api/categories", gotPath)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, "expense", gotType)
	require.Len(t, tree, 1)
	assert.Equal(t, "Food", tree[0].Name)
}

func TestClient_DetailBecomesAPIError(t *testing.T) {
	c, sess, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Account name already exists"}`))
	}))
	sess.Set(context.Background(), "tok")

	err := ledgerapi.NewResource[domain.Account](c, "/accounts").Create(context.Background(), map[string]string{"name": "x"})

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Account name already exists", apiErr.Detail)
	assert.True(t, sess.Authenticated(), "a 4xx other than 401 keeps the session")
}

func TestClient_ValidationDetailList(t *testing.T) {
	c, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a valid float"}]}`))
	}))

	err := c.Loans().Repay(context.Background(), domain.RepaymentInput{LoanID: "l1"})

	assert.Equal(t, "field required; value is not a valid float", domain.UserMessage(err, "Failed"))
}

func TestClient_401ExpiresSessionOnce(t *testing.T) {
	release := make(chan struct{})
	var hits int32
	c, sess, metrics := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))
	sess.Set(context.Background(), "tok")

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledgerapi.NewResource[domain.Profile](c, "/profiles").List(context.Background(), nil)
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == n }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	var expired, alreadyExpired int
	for _, err := range errs {
		var e *domain.ErrSessionExpired
		var gone *domain.ErrSessionAlreadyExpired
		switch {
		case errors.As(err, &e):
			expired++
		case errors.As(err, &gone):
			alreadyExpired++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, expired, "exactly one caller reports the expiry")
	assert.Equal(t, n-1, alreadyExpired, "the others learn the session is gone without a second expiry")
	assert.False(t, sess.Authenticated())
	assert.EqualValues(t, 1, metrics.GetConsoleSnapshot(false).SessionExpirations)
}

func TestClient_401WithoutSessionIsUnauthorized(t *testing.T) {
	c, _, metrics := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := ledgerapi.NewResource[domain.Profile](c, "/profiles").List(context.Background(), nil)

	var unauthorized *domain.ErrUnauthorized
	require.True(t, errors.As(err, &unauthorized))
	assert.Zero(t, metrics.GetConsoleSnapshot(false).SessionExpirations)
}

func TestClient_NetworkFailureIsExternalServiceError(t *testing.T) {
	logger := zap.NewNop()
	broken := ledgerapi.NewClient(
		&http.Client{Timeout: 200 * time.Millisecond},
		"http://127.0.0.1:1",
		session.New(&memStore{}, logger),
		resilience.NewCircuitBreaker("ledgeros-broken", resilience.Config{}, logger),
		resilience.NewBulkhead(1),
		observability.NewMetrics(),
		logger,
	)

	_, err := broken.Auth().Check(context.Background())

	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "Something went wrong", domain.UserMessage(err, "Something went wrong"))
}

func TestClient_UploadIsMultipart(t *testing.T) {
	c, sess, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload/bank-statement", r.URL.Path)
		assert.Equal(t, "acc-1", r.URL.Query().Get("account_id"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "statement.csv", hdr.Filename)
		assert.Equal(t, "date,amount\n", string(data))
		_, _ = w.Write([]byte(`{"transactions":[{"id":"tmp-1","date":"2024-04-01","description":"UPI","amount":120,"transaction_type":"expense","balance":900}],"count":1}`))
	}))
	sess.Set(context.Background(), "tok")

	res, err := c.Uploads().UploadStatement(context.Background(), "acc-1", "statement.csv", strings.NewReader("date,amount\n"))

	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "tmp-1", res.Transactions[0].ID)
	assert.Contains(t, res.Transactions[0].Extra, "balance")
}

func TestClient_SaveSendsExplicitNulls(t *testing.T) {
	var rows []map[string]any
	c, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		w.WriteHeader(http.StatusOK)
	}))

	err := c.Uploads().SaveTransactions(context.Background(), []domain.StagedTransaction{{
		Transaction: domain.Transaction{ID: "tmp-1", AccountID: "acc", Amount: 5, TransactionType: domain.TxExpense},
	}})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	for _, key := range []string{"category_id", "payee_id", "linked_loan_id"} {
		v, ok := rows[0][key]
		assert.True(t, ok, "%s must be present", key)
		assert.Nil(t, v, "%s must be null", key)
	}
}

func TestClient_ExportStreamsBody(t *testing.T) {
	c, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export/ca-report", r.URL.Path)
		assert.Equal(t, "2024-25", r.URL.Query().Get("financial_year"))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))

	body, contentType, err := c.Exports().Export(context.Background(), domain.ExportCAReport, map[string][]string{"financial_year": {"2024-25"}})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04", string(data))
	assert.Equal(t, "application/octet-stream", contentType)
}

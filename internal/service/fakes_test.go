package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/infra/snapshot"
	"github.com/ledgeros/console-bfa-go/internal/service"
)

// --- Mocks ---

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

type fakeResource[T any] struct {
	mu        sync.Mutex
	items     []T
	listErr   error
	writeErr  error
	lists     int
	creates   []any
	updates   map[string]any
	deletes   []string
	beforeRet func(call int) // runs inside List before returning
}

func (f *fakeResource[T]) List(context.Context, url.Values) ([]T, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	items := append([]T(nil), f.items...)
	err := f.listErr
	hook := f.beforeRet
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return items, err
}

func (f *fakeResource[T]) Create(_ context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.creates = append(f.creates, body)
	return nil
}

func (f *fakeResource[T]) Update(_ context.Context, id string, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.updates == nil {
		f.updates = make(map[string]any)
	}
	f.updates[id] = body
	return nil
}

func (f *fakeResource[T]) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

type fakeCategories struct {
	fakeResource[domain.Category]
	created []domain.CategoryInput
	nextID  string
}

func (f *fakeCategories) Tree(ctx context.Context, _ domain.CategoryType) (domain.CategoryTree, error) {
	items, err := f.List(ctx, nil)
	return domain.CategoryTree(items), err
}

func (f *fakeCategories) CreateCategory(_ context.Context, in domain.CategoryInput) (*domain.Category, error) {
	f.created = append(f.created, in)
	return &domain.Category{ID: f.nextID, Name: in.Name, Type: in.Type}, nil
}

type fakeAuth struct {
	setupRequired bool
	checkErr      error
	loginErr      error
	logoutErr     error
	token         string
	probe         func(ctx context.Context) error
	calls         []string
}

func (f *fakeAuth) Check(context.Context) (*domain.AuthCheckResponse, error) {
	f.calls = append(f.calls, "check")
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return &domain.AuthCheckResponse{SetupRequired: f.setupRequired}, nil
}

func (f *fakeAuth) Setup(_ context.Context, _ string) (string, error) {
	f.calls = append(f.calls, "setup")
	return f.token, f.loginErr
}

func (f *fakeAuth) Login(_ context.Context, _ string) (string, error) {
	f.calls = append(f.calls, "login")
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	return f.logoutErr
}

func (f *fakeAuth) ChangePassword(context.Context, domain.ChangePasswordRequest) error {
	f.calls = append(f.calls, "change-password")
	return nil
}

func (f *fakeAuth) ResetAllData(context.Context) error {
	f.calls = append(f.calls, "reset-all-data")
	return nil
}

func (f *fakeAuth) Probe(ctx context.Context) error {
	f.calls = append(f.calls, "probe")
	if f.probe != nil {
		return f.probe(ctx)
	}
	return nil
}

type fakeUploads struct {
	result   *domain.UploadResult
	err      error
	saveErr  error
	saved    [][]domain.StagedTransaction
	inFlight func()
}

func (f *fakeUploads) UploadStatement(_ context.Context, _, _ string, file io.Reader) (*domain.UploadResult, error) {
	_, _ = io.Copy(io.Discard, file)
	if f.inFlight != nil {
		f.inFlight()
	}
	return f.result, f.err
}

func (f *fakeUploads) SaveTransactions(_ context.Context, rows []domain.StagedTransaction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, rows)
	return nil
}

type fakeTransactions struct {
	mu      sync.Mutex
	list    []domain.Transaction
	filters []domain.TransactionFilter
	created []domain.Transaction
	tagged  []domain.BulkTagRequest
}

func (f *fakeTransactions) List(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.list, nil
}

func (f *fakeTransactions) Create(_ context.Context, tx domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, tx)
	return nil
}

func (f *fakeTransactions) Update(context.Context, string, map[string]any) error { return nil }

func (f *fakeTransactions) Delete(context.Context, string) error { return nil }

func (f *fakeTransactions) BulkTag(_ context.Context, req domain.BulkTagRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagged = append(f.tagged, req)
	return nil
}

type fakeLoanAPI struct {
	mu        sync.Mutex
	interest  map[string]*domain.LoanInterest
	requested []string
	repaid    []domain.RepaymentInput
}

func (f *fakeLoanAPI) Interest(_ context.Context, loanID string) (*domain.LoanInterest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, loanID)
	if in, ok := f.interest[loanID]; ok {
		return in, nil
	}
	return nil, &domain.APIError{Status: 404, Detail: "Loan not found"}
}

func (f *fakeLoanAPI) Repay(_ context.Context, in domain.RepaymentInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repaid = append(f.repaid, in)
	return nil
}

type fakeReports struct {
	incomeExpense *domain.IncomeExpense
	err           error
	years         []string
}

func (f *fakeReports) Dashboard(context.Context) (domain.Dashboard, error) {
	return json.RawMessage(`{"net_worth":0}`), f.err
}

func (f *fakeReports) BalanceSheet(context.Context) (domain.BalanceSheet, error) {
	return json.RawMessage(`{"assets":{}}`), f.err
}

func (f *fakeReports) IncomeExpense(context.Context, domain.DateRange) (*domain.IncomeExpense, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.incomeExpense, nil
}

func (f *fakeReports) TaxSummary(_ context.Context, fy string) (domain.TaxSummary, error) {
	f.years = append(f.years, fy)
	return json.RawMessage(`{"financial_year":"` + fy + `"}`), f.err
}

type fakeExports struct {
	kind  domain.ExportKind
	query url.Values
}

func (f *fakeExports) Export(_ context.Context, kind domain.ExportKind, query url.Values) (io.ReadCloser, string, error) {
	f.kind = kind
	f.query = query
	return io.NopCloser(strings.NewReader("PK")), "application/octet-stream", nil
}

// --- Helpers ---

func newCollection[T any](name string, api *fakeResource[T]) *service.Collection[T] {
	metrics := observability.NewMetrics()
	return service.NewCollection[T](name, name, api, snapshot.New[[]T](time.Minute, metrics), metrics, zap.NewNop())
}

func strPtr(s string) *string { return &s }

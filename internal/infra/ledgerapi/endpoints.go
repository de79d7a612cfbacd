package ledgerapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ledgeros/console-bfa-go/internal/domain"
)

// ============================================================
// Generic CRUD resource
// ============================================================

// Resource is one CRUD endpoint group, e.g. /bank-accounts.
type Resource[T any] struct {
	c       *Client
	path    string
	service string
}

// NewResource binds a Resource to path (leading slash, no /api prefix).
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path, service: path[1:]}
}

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var out []T
	if err := r.c.getJSON(ctx, r.service, r.path, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new record.
func (r *Resource[T]) Create(ctx context.Context, body any) error {
	return r.c.sendJSON(ctx, r.service, http.MethodPost, r.path, nil, body, nil)
}

// Update replaces the record with id.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) error {
	return r.c.sendJSON(ctx, r.service, http.MethodPut, r.path+"/"+url.PathEscape(id), nil, body, nil)
}

// Delete removes the record with id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.sendJSON(ctx, r.service, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil, nil)
}

// ============================================================
// Auth
// ============================================================

// Auth covers /auth.
type Auth struct{ c *Client }

// Auth returns the auth endpoint group.
func (c *Client) Auth() *Auth { return &Auth{c: c} }

// Check reports whether first-run setup is still required.
func (a *Auth) Check(ctx context.Context) (*domain.AuthCheckResponse, error) {
	var out domain.AuthCheckResponse
	if err := a.c.getJSON(ctx, "auth", "/auth/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Setup sets the first password and returns a session token.
func (a *Auth) Setup(ctx context.Context, password string) (string, error) {
	return a.tokenCall(ctx, "/auth/setup", password)
}

// Login exchanges the password for a session token.
func (a *Auth) Login(ctx context.Context, password string) (string, error) {
	return a.tokenCall(ctx, "/auth/login", password)
}

func (a *Auth) tokenCall(ctx context.Context, path, password string) (string, error) {
	var out domain.TokenResponse
	if err := a.c.sendJSON(ctx, "auth", http.MethodPost, path, nil, domain.PasswordRequest{Password: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &domain.ErrExternalService{Service: "auth", Err: fmt.Errorf("%s returned no token", path)}
	}
	return out.Token, nil
}

// Logout invalidates the live token server-side.
func (a *Auth) Logout(ctx context.Context) error {
	return a.c.sendJSON(ctx, "auth", http.MethodPost, "/auth/logout", nil, nil, nil)
}

// ChangePassword changes the password of the live session.
func (a *Auth) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	return a.c.sendJSON(ctx, "auth", http.MethodPost, "/auth/change-password", nil, req, nil)
}

// ResetAllData wipes every record on the server.
func (a *Auth) ResetAllData(ctx context.Context) error {
	return a.c.sendJSON(ctx, "auth", http.MethodPost, "/auth/reset-all-data", nil, nil, nil)
}

// Probe validates the live token with a cheap authenticated read.
func (a *Auth) Probe(ctx context.Context) error {
	resp, err := a.c.do(ctx, request{service: "auth", method: http.MethodGet, path: "/reports/dashboard"})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// ============================================================
// Categories
// ============================================================

// Categories covers /categories and /categories/flat.
type Categories struct {
	*Resource[domain.Category]
}

// Categories returns the category endpoint group.
func (c *Client) Categories() *Categories {
	return &Categories{Resource: NewResource[domain.Category](c, "/categories")}
}

// Tree fetches the nested tree, optionally of one type.
func (cat *Categories) Tree(ctx context.Context, typ domain.CategoryType) (domain.CategoryTree, error) {
	query := url.Values{}
	if typ != "" {
		query.Set("type", string(typ))
	}
	tree, err := cat.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return domain.CategoryTree(tree), nil
}

// Flat fetches every category as a flat list.
func (cat *Categories) Flat(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := cat.c.getJSON(ctx, "categories", "/categories/flat", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory posts a category and returns the created record.
func (cat *Categories) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	var out domain.Category
	if err := cat.c.sendJSON(ctx, "categories", http.MethodPost, "/categories", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================
// Transactions
// ============================================================

// Transactions covers /transactions.
type Transactions struct{ c *Client }

// Transactions returns the transaction endpoint group.
func (c *Client) Transactions() *Transactions { return &Transactions{c: c} }

// List fetches transactions matching filter.
func (t *Transactions) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	if err := t.c.getJSON(ctx, "transactions", "/transactions", FilterQuery(filter), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts one transaction.
func (t *Transactions) Create(ctx context.Context, tx domain.Transaction) error {
	return t.c.sendJSON(ctx, "transactions", http.MethodPost, "/transactions", nil, tx, nil)
}

// Update replaces the editable fields of a transaction.
func (t *Transactions) Update(ctx context.Context, id string, body map[string]any) error {
	return t.c.sendJSON(ctx, "transactions", http.MethodPut, "/transactions/"+url.PathEscape(id), nil, body, nil)
}

// Delete removes a transaction.
func (t *Transactions) Delete(ctx context.Context, id string) error {
	return t.c.sendJSON(ctx, "transactions", http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil, nil)
}

// BulkTag sets one category on many transactions.
func (t *Transactions) BulkTag(ctx context.Context, req domain.BulkTagRequest) error {
	return t.c.sendJSON(ctx, "transactions", http.MethodPost, "/transactions/bulk-tag", nil, req, nil)
}

// FilterQuery encodes a filter the way GET /transactions expects.
func FilterQuery(f domain.TransactionFilter) url.Values {
	q := url.Values{}
	if f.AccountID != "" {
		q.Set("account_id", f.AccountID)
	}
	if f.CategoryID != "" && f.CategoryID != domain.NoneSentinel {
		q.Set("category_id", f.CategoryID)
	}
	if f.TransactionType != "" {
		q.Set("transaction_type", string(f.TransactionType))
	}
	if f.Untagged {
		q.Set("untagged", "true")
	}
	if f.StartDate != nil {
		q.Set("start_date", f.StartDate.Format(domain.DateLayout))
	}
	if f.EndDate != nil {
		q.Set("end_date", f.EndDate.Format(domain.DateLayout))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// ============================================================
// Bank statement upload
// ============================================================

// Uploads covers /upload.
type Uploads struct{ c *Client }

// Uploads returns the upload endpoint group.
func (c *Client) Uploads() *Uploads { return &Uploads{c: c} }

// UploadStatement sends a statement file for parsing. Nothing is persisted.
func (u *Uploads) UploadStatement(ctx context.Context, accountID, filename string, file io.Reader) (*domain.UploadResult, error) {
	body, contentType, err := multipartFile(filename, file)
	if err != nil {
		return nil, err
	}
	resp, err := u.c.do(ctx, request{
		service:     "upload",
		method:      http.MethodPost,
		path:        "/upload/bank-statement",
		query:       url.Values{"account_id": {accountID}},
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.UploadResult
	if err := decode("upload", resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveTransactions commits staged rows in one batch.
func (u *Uploads) SaveTransactions(ctx context.Context, rows []domain.StagedTransaction) error {
	return u.c.sendJSON(ctx, "upload", http.MethodPost, "/upload/save-transactions", nil, rows, nil)
}

func multipartFile(filename string, file io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// ============================================================
// Loans
// ============================================================

// Loans covers /loans.
type Loans struct {
	*Resource[domain.Loan]
}

// Loans returns the loan endpoint group.
func (c *Client) Loans() *Loans {
	return &Loans{Resource: NewResource[domain.Loan](c, "/loans")}
}

// Interest fetches the server-computed interest of one loan.
func (l *Loans) Interest(ctx context.Context, loanID string) (*domain.LoanInterest, error) {
	var out domain.LoanInterest
	if err := l.c.getJSON(ctx, "loans", "/loans/"+url.PathEscape(loanID)+"/interest", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Repay records a repayment against a loan.
func (l *Loans) Repay(ctx context.Context, in domain.RepaymentInput) error {
	return l.c.sendJSON(ctx, "loans", http.MethodPost, "/loans/repayment", nil, in, nil)
}

// ============================================================
// Investment holdings
// ============================================================

// Holdings covers /investment-holdings.
type Holdings struct {
	*Resource[domain.InvestmentHolding]
}

// Holdings returns the portfolio endpoint group.
func (c *Client) Holdings() *Holdings {
	return &Holdings{Resource: NewResource[domain.InvestmentHolding](c, "/investment-holdings")}
}

// ImportCSV uploads a broker export.
func (h *Holdings) ImportCSV(ctx context.Context, broker, filename string, file io.Reader) (*domain.CSVImportResult, error) {
	body, contentType, err := multipartFile(filename, file)
	if err != nil {
		return nil, err
	}
	resp, err := h.c.do(ctx, request{
		service:     "investment-holdings",
		method:      http.MethodPost,
		path:        "/investment-holdings/import-csv",
		query:       url.Values{"broker": {broker}},
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.CSVImportResult
	if err := decode("investment-holdings", resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================
// Reports and exports
// ============================================================

// Reports covers /reports.
type Reports struct{ c *Client }

// Reports returns the report endpoint group.
func (c *Client) Reports() *Reports { return &Reports{c: c} }

// Dashboard fetches the dashboard summary.
func (r *Reports) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	err := r.c.getJSON(ctx, "reports", "/reports/dashboard", nil, &out)
	return out, err
}

// BalanceSheet fetches the balance sheet.
func (r *Reports) BalanceSheet(ctx context.Context) (domain.BalanceSheet, error) {
	var out domain.BalanceSheet
	err := r.c.getJSON(ctx, "reports", "/reports/balance-sheet", nil, &out)
	return out, err
}

// IncomeExpense fetches income and expense totals for a date range.
func (r *Reports) IncomeExpense(ctx context.Context, rng domain.DateRange) (*domain.IncomeExpense, error) {
	var out domain.IncomeExpense
	if err := r.c.getJSON(ctx, "reports", "/reports/income-expense", RangeQuery(rng), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaxSummary fetches the tax summary of a financial year.
func (r *Reports) TaxSummary(ctx context.Context, financialYear string) (domain.TaxSummary, error) {
	var out domain.TaxSummary
	err := r.c.getJSON(ctx, "reports", "/reports/tax-summary", url.Values{"financial_year": {financialYear}}, &out)
	return out, err
}

// RangeQuery encodes optional start/end dates.
func RangeQuery(rng domain.DateRange) url.Values {
	q := url.Values{}
	if rng.Start != nil {
		q.Set("start_date", rng.Start.Format(domain.DateLayout))
	}
	if rng.End != nil {
		q.Set("end_date", rng.End.Format(domain.DateLayout))
	}
	return q
}

// Exports covers /export.
type Exports struct{ c *Client }

// Exports returns the export endpoint group.
func (c *Client) Exports() *Exports { return &Exports{c: c} }

// Export streams a workbook. The caller must close the returned reader.
func (e *Exports) Export(ctx context.Context, kind domain.ExportKind, query url.Values) (io.ReadCloser, string, error) {
	resp, err := e.c.do(ctx, request{service: "export", method: http.MethodGet, path: "/export/" + string(kind), query: query})
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return resp.Body, contentType, nil
}

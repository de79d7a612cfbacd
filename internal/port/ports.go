// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the LedgerOS HTTP client and from token persistence.
package port

import (
	"context"
	"io"
	"net/url"

	"github.com/ledgeros/console-bfa-go/internal/domain"
)

// TokenStore persists the single session token under a fixed key.
// Load returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Snapshots holds the last applied response per view, guarded by a
// per-view sequence so an older response never replaces a newer one.
type Snapshots[T any] interface {
	Begin(view string) uint64
	Apply(view string, seq uint64, value T) bool
	Get(view string) (T, bool)
	Invalidate(view string)
	Reset()
}

// Resource is one CRUD endpoint group of the LedgerOS API.
type Resource[T any] interface {
	List(ctx context.Context, query url.Values) ([]T, error)
	Create(ctx context.Context, body any) error
	Update(ctx context.Context, id string, body any) error
	Delete(ctx context.Context, id string) error
}

// AuthAPI covers /auth and the dashboard probe used to validate a token.
type AuthAPI interface {
	Check(ctx context.Context) (*domain.AuthCheckResponse, error)
	Setup(ctx context.Context, password string) (string, error)
	Login(ctx context.Context, password string) (string, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error
	ResetAllData(ctx context.Context) error
	Probe(ctx context.Context) error
}

// CategoryAPI covers /categories.
type CategoryAPI interface {
	Resource[domain.Category]
	Tree(ctx context.Context, typ domain.CategoryType) (domain.CategoryTree, error)
	CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error)
}

// TransactionAPI covers /transactions.
type TransactionAPI interface {
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	Create(ctx context.Context, tx domain.Transaction) error
	Update(ctx context.Context, id string, body map[string]any) error
	Delete(ctx context.Context, id string) error
	BulkTag(ctx context.Context, req domain.BulkTagRequest) error
}

// UploadAPI covers /upload.
type UploadAPI interface {
	UploadStatement(ctx context.Context, accountID, filename string, file io.Reader) (*domain.UploadResult, error)
	SaveTransactions(ctx context.Context, rows []domain.StagedTransaction) error
}

// LoanAPI covers /loans beyond plain CRUD.
type LoanAPI interface {
	Interest(ctx context.Context, loanID string) (*domain.LoanInterest, error)
	Repay(ctx context.Context, in domain.RepaymentInput) error
}

// PortfolioAPI covers the broker CSV import.
type PortfolioAPI interface {
	ImportCSV(ctx context.Context, broker, filename string, file io.Reader) (*domain.CSVImportResult, error)
}

// ReportAPI covers /reports.
type ReportAPI interface {
	Dashboard(ctx context.Context) (domain.Dashboard, error)
	BalanceSheet(ctx context.Context) (domain.BalanceSheet, error)
	IncomeExpense(ctx context.Context, r domain.DateRange) (*domain.IncomeExpense, error)
	TaxSummary(ctx context.Context, financialYear string) (domain.TaxSummary, error)
}

// ExportAPI streams /export workbooks. The caller closes the reader.
type ExportAPI interface {
	Export(ctx context.Context, kind domain.ExportKind, query url.Values) (io.ReadCloser, string, error)
}

package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var accountTracer = otel.Tracer("service/accounts")

// AccountsPage is the accounts view: the fetched accounts grouped by type,
// plus totals over every account whatever the filter.
type AccountsPage struct {
	Filter string                `json:"filter"`
	Groups []domain.AccountGroup `json:"groups"`
	Totals domain.AccountTotals  `json:"totals"`
}

// AccountService is the accounts (ledgers) page.
type AccountService struct {
	accounts     *Collection[domain.Account]
	transactions port.TransactionAPI
	recentLimit  int
	logger       *zap.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(accounts *Collection[domain.Account], transactions port.TransactionAPI, recentLimit int, logger *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, transactions: transactions, recentLimit: recentLimit, logger: logger}
}

// ============================================================
// Accounts
// ============================================================

// Page loads the accounts and groups them. filter is an account type, or
// "" / "all" for everything.
func (s *AccountService) Page(ctx context.Context, filter string) (*AccountsPage, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Page")
	defer span.End()
	span.SetAttributes(attribute.String("filter", filter))

	accounts, err := s.accounts.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newAccountsPage(accounts, filter), nil
}

// Create adds an account and returns the refreshed page.
func (s *AccountService) Create(ctx context.Context, in *domain.AccountInput) (*AccountsPage, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Create")
	defer span.End()

	accounts, err := s.accounts.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return newAccountsPage(accounts, ""), nil
}

// Update edits an account and returns the refreshed page.
func (s *AccountService) Update(ctx context.Context, id string, in *domain.AccountInput) (*AccountsPage, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Update")
	defer span.End()

	accounts, err := s.accounts.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return newAccountsPage(accounts, ""), nil
}

// Delete removes an account once confirmed. It returns nil, false when
// the delete was not confirmed.
func (s *AccountService) Delete(ctx context.Context, id string, confirmed bool) (*AccountsPage, bool, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Delete")
	defer span.End()

	accounts, deleted, err := s.accounts.Delete(ctx, id, confirmed)
	if err != nil || !deleted {
		return nil, deleted, err
	}
	return newAccountsPage(accounts, ""), true, nil
}

// RecentTransactions is the drill-in: the most recent transactions of one
// account, fetched on demand.
func (s *AccountService) RecentTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.RecentTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	txs, err := s.transactions.List(ctx, domain.TransactionFilter{AccountID: accountID, Limit: s.recentLimit})
	if err != nil {
		s.logger.Warn("failed to load account transactions", zap.String("account_id", accountID), zap.Error(err))
		return nil, domain.Failed(err, "Failed to load transactions")
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func newAccountsPage(accounts []domain.Account, filter string) *AccountsPage {
	return &AccountsPage{
		Filter: filter,
		Groups: domain.GroupAccounts(accounts, filter),
		Totals: domain.TotalAccounts(accounts),
	}
}

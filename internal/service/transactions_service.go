package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var txTracer = otel.Tracer("service/transactions")

const transactionsView = "transactions"

// TransactionsPage is the filtered transaction list plus the lookups the
// page renders it with.
type TransactionsPage struct {
	Transactions  []domain.Transaction `json:"transactions"`
	Accounts      []domain.Account     `json:"accounts"`
	Categories    domain.CategoryTree  `json:"categories"`
	AccountNames  map[string]string    `json:"account_names"`
	CategoryNames map[string]string    `json:"category_names"`
}

// TransactionService is the transactions page and the manual entry page.
type TransactionService struct {
	api        port.TransactionAPI
	snapshots  port.Snapshots[[]domain.Transaction]
	accounts   *Collection[domain.Account]
	categories *CategoryService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewTransactionService creates a new transaction service.
func NewTransactionService(
	api port.TransactionAPI,
	snapshots port.Snapshots[[]domain.Transaction],
	accounts *Collection[domain.Account],
	categories *CategoryService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		api:        api,
		snapshots:  snapshots,
		accounts:   accounts,
		categories: categories,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// List
// ============================================================

// Page fetches the filtered list together with accounts and categories.
// Each filter change issues a new fetch; only the newest one lands.
func (s *TransactionService) Page(ctx context.Context, filter domain.TransactionFilter) (*TransactionsPage, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Page")
	defer span.End()
	span.SetAttributes(
		attribute.String("filter.account_id", filter.AccountID),
		attribute.String("filter.category_id", filter.CategoryID),
		attribute.Bool("filter.untagged", filter.Untagged),
	)

	var (
		txs        []domain.Transaction
		accounts   []domain.Account
		categories domain.CategoryTree
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = fetchView(gctx, s.snapshots, transactionsView, s.metrics, func(ctx context.Context) ([]domain.Transaction, error) {
			list, err := s.api.List(ctx, filter)
			if err != nil {
				return nil, domain.Failed(err, "Failed to load transactions")
			}
			if list == nil {
				list = []domain.Transaction{}
			}
			return list, nil
		})
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.accounts.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.categories.Tree(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newTransactionsPage(txs, accounts, categories), nil
}

func newTransactionsPage(txs []domain.Transaction, accounts []domain.Account, tree domain.CategoryTree) *TransactionsPage {
	page := &TransactionsPage{
		Transactions:  txs,
		Accounts:      accounts,
		Categories:    tree,
		AccountNames:  make(map[string]string, len(accounts)),
		CategoryNames: make(map[string]string),
	}
	for _, a := range accounts {
		page.AccountNames[a.ID] = a.Name
	}
	for _, c := range tree.Flatten() {
		if name, ok := tree.DisplayName(c.ID); ok {
			page.CategoryNames[c.ID] = name
		}
	}
	return page
}

// ============================================================
// Mutations: each one refetches the page with the caller's filter
// ============================================================

// Update saves the edit dialog.
func (s *TransactionService) Update(ctx context.Context, id string, edit domain.TransactionEdit, filter domain.TransactionFilter) (*TransactionsPage, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if err := s.api.Update(ctx, id, edit.Payload()); err != nil {
		return nil, domain.Failed(err, "Failed to update transaction")
	}
	return s.Page(ctx, filter)
}

// Delete removes a transaction once confirmed.
func (s *TransactionService) Delete(ctx context.Context, id string, confirmed bool, filter domain.TransactionFilter) (*TransactionsPage, bool, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if !confirmed {
		return nil, false, nil
	}
	if err := s.api.Delete(ctx, id); err != nil {
		return nil, false, domain.Failed(err, "Failed to delete transaction")
	}
	s.logger.Info("transaction deleted", zap.String("transaction_id", id))
	page, err := s.Page(ctx, filter)
	return page, true, err
}

// BulkTag sets one category ("none" clears it) on the selected transactions.
func (s *TransactionService) BulkTag(ctx context.Context, ids []string, categoryID string, filter domain.TransactionFilter) (*TransactionsPage, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.BulkTag")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions", len(ids)))

	req, err := domain.NewBulkTagRequest(ids, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.api.BulkTag(ctx, req); err != nil {
		return nil, domain.Failed(err, "Failed to tag transactions")
	}
	s.logger.Info("transactions tagged", zap.Int("count", len(ids)))
	return s.Page(ctx, filter)
}

// ============================================================
// Manual entry
// ============================================================

// AddEntry records an income or expense. A loan link is only accepted for
// a loan-interest category.
func (s *TransactionService) AddEntry(ctx context.Context, in domain.EntryInput) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.AddEntry")
	defer span.End()

	tx, err := in.Transaction()
	if err != nil {
		return err
	}
	if in.LinkedLoanID != "" && in.LinkedLoanID != domain.NoneSentinel {
		tree, err := s.categories.Tree(ctx)
		if err != nil {
			return err
		}
		accounts, err := s.accounts.Load(ctx)
		if err != nil {
			return err
		}
		req := domain.TagRequest{CategoryID: in.CategoryID, SubCategoryID: in.SubCategoryID, LinkedLoanID: in.LinkedLoanID}
		if _, tx.LinkedLoanID, err = req.ResolveTag(tree, accounts); err != nil {
			return err
		}
	} else {
		tx.LinkedLoanID = ""
	}

	if err := s.api.Create(ctx, tx); err != nil {
		return domain.Failed(err, "Failed to record entry")
	}
	s.accounts.Reset()
	s.logger.Info("entry recorded",
		zap.String("account_id", tx.AccountID),
		zap.String("transaction_type", string(tx.TransactionType)),
	)
	return nil
}

// AddTransfer records a transfer between two accounts.
func (s *TransactionService) AddTransfer(ctx context.Context, in domain.TransferInput) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.AddTransfer")
	defer span.End()

	tx, err := in.Transaction()
	if err != nil {
		return err
	}
	if err := s.api.Create(ctx, tx); err != nil {
		return domain.Failed(err, "Failed to record transfer")
	}
	s.accounts.Reset()
	s.logger.Info("transfer recorded", zap.String("from", in.FromAccountID), zap.String("to", in.ToAccountID))
	return nil
}

// Reset drops the list snapshot.
func (s *TransactionService) Reset() {
	s.snapshots.Reset()
}

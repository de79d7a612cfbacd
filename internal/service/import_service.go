package service

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/port"
	"github.com/ledgeros/console-bfa-go/internal/staging"
)

var importTracer = otel.Tracer("service/import")

// ImportPage is the staged workspace plus the choices the tag dialog
// offers: bank accounts to import into, loan accounts as payees and loan
// links, and the expense category tree.
type ImportPage struct {
	staging.View
	BankAccounts  []domain.Account    `json:"bank_accounts"`
	LoanAccounts  []domain.Account    `json:"loan_accounts"`
	Categories    domain.CategoryTree `json:"categories"`
	CategoryNames map[string]string   `json:"category_names"`
	PayeeNames    map[string]string   `json:"payee_names"`
}

// SelectAction is what a selection request does.
type SelectAction string

const (
	SelectToggle SelectAction = "toggle"
	SelectAll    SelectAction = "toggle_all"
	SelectClear  SelectAction = "clear"
)

// InlineCategory is a category created from the tag dialog. Field says
// which dialog selection the new id fills: "sub_category_id" when it was
// created under the current category, else "category_id".
type InlineCategory struct {
	Category *domain.Category `json:"category"`
	Field    string           `json:"field"`
}

// ImportService drives the bank-statement import workflow.
type ImportService struct {
	ws         *staging.Workspace
	uploads    port.UploadAPI
	accounts   *Collection[domain.Account]
	categories *CategoryService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewImportService creates a new import service.
func NewImportService(
	ws *staging.Workspace,
	uploads port.UploadAPI,
	accounts *Collection[domain.Account],
	categories *CategoryService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		ws:         ws,
		uploads:    uploads,
		accounts:   accounts,
		categories: categories,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// Page
// ============================================================

// Page loads the dialog choices and returns them with the workspace. The
// first bank account becomes the target when none is chosen yet.
func (s *ImportService) Page(ctx context.Context) (*ImportPage, error) {
	ctx, span := importTracer.Start(ctx, "ImportService.Page")
	defer span.End()

	var (
		accounts []domain.Account
		tree     domain.CategoryTree
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.accounts.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tree, err = s.categories.Tree(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.ws.DefaultAccount(accounts)
	expense := tree.OfType(domain.CategoryExpense)

	page := &ImportPage{
		View:          s.ws.View(),
		BankAccounts:  domain.FilterAccounts(accounts, domain.AccountBank),
		LoanAccounts:  domain.LoanAccounts(accounts),
		Categories:    expense,
		CategoryNames: make(map[string]string),
		PayeeNames:    make(map[string]string),
	}
	for _, c := range expense.Flatten() {
		if name, ok := expense.DisplayName(c.ID); ok {
			page.CategoryNames[c.ID] = name
		}
	}
	for _, a := range page.LoanAccounts {
		page.PayeeNames[a.ID] = a.Name
	}
	return page, nil
}

// View returns the workspace without fetching anything.
func (s *ImportService) View() staging.View {
	return s.ws.View()
}

// SelectAccount sets the account rows are imported into. When accounts
// are loaded the choice must be a bank account.
func (s *ImportService) SelectAccount(accountID string) (staging.View, error) {
	if accounts, ok := s.accounts.Snapshot(); ok {
		a, found := domain.FindAccount(accounts, accountID)
		if !found || a.AccountType != domain.AccountBank {
			return staging.View{}, &domain.ErrValidation{Field: "account_id", Message: "Please select a bank account"}
		}
	}
	if err := s.ws.SelectAccount(accountID); err != nil {
		return staging.View{}, err
	}
	return s.ws.View(), nil
}

// ============================================================
// Upload
// ============================================================

// Upload sends a statement for parsing and stages the rows. Nothing is
// persisted until Save.
func (s *ImportService) Upload(ctx context.Context, filename string, file io.Reader) (staging.View, error) {
	ctx, span := importTracer.Start(ctx, "ImportService.Upload")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", filename))

	accountID, ticket, err := s.ws.BeginUpload(filename)
	if err != nil {
		return staging.View{}, err
	}

	res, err := s.uploads.UploadStatement(ctx, accountID, filename, file)
	if err != nil {
		s.ws.FailUpload(ticket)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		s.logger.Warn("statement upload failed", zap.String("account_id", accountID), zap.Error(err))
		return staging.View{}, domain.Failed(err, "Upload failed")
	}

	n, ok := s.ws.FinishUpload(ticket, res.Transactions)
	if !ok {
		s.logger.Info("statement parsed after the import was discarded", zap.String("account_id", accountID))
		return staging.View{}, &domain.ErrConflict{Message: "The import was discarded"}
	}
	s.metrics.AddStagedRows(n)
	s.logger.Info("statement parsed",
		zap.String("account_id", accountID),
		zap.Int("rows", n),
		zap.Int("count", res.Count),
	)
	return s.ws.View(), nil
}

// ============================================================
// Editing
// ============================================================

// Select changes the row selection.
func (s *ImportService) Select(action SelectAction, rowID string) (staging.View, error) {
	var err error
	switch action {
	case SelectToggle:
		err = s.ws.ToggleSelect(rowID)
	case SelectAll:
		err = s.ws.ToggleSelectAll()
	case SelectClear:
		err = s.ws.ClearSelection()
	default:
		err = &domain.ErrValidation{Field: "action", Message: "action must be toggle, toggle_all or clear"}
	}
	if err != nil {
		return staging.View{}, err
	}
	return s.ws.View(), nil
}

// Tag applies the tag dialog to rowID, or to the whole selection when the
// row is part of it. It returns the number of rows tagged.
func (s *ImportService) Tag(ctx context.Context, rowID string, req domain.TagRequest) (int, staging.View, error) {
	ctx, span := importTracer.Start(ctx, "ImportService.Tag")
	defer span.End()
	span.SetAttributes(attribute.String("row.id", rowID))

	tree, err := s.categories.Tree(ctx)
	if err != nil {
		return 0, staging.View{}, err
	}
	accounts, ok := s.accounts.Snapshot()
	if !ok {
		if accounts, err = s.accounts.Load(ctx); err != nil {
			return 0, staging.View{}, err
		}
	}

	tag, loanID, err := req.ResolveTag(tree, accounts)
	if err != nil {
		return 0, staging.View{}, err
	}
	n, err := s.ws.Tag(rowID, tag, loanID)
	if err != nil {
		return 0, staging.View{}, err
	}
	return n, s.ws.View(), nil
}

// DeleteRow removes one staged row.
func (s *ImportService) DeleteRow(rowID string) (staging.View, error) {
	if err := s.ws.DeleteRow(rowID); err != nil {
		return staging.View{}, err
	}
	return s.ws.View(), nil
}

// DeleteSelected removes the selected rows and reports how many went.
func (s *ImportService) DeleteSelected() (int, staging.View, error) {
	n, err := s.ws.DeleteSelected()
	if err != nil {
		return 0, staging.View{}, err
	}
	return n, s.ws.View(), nil
}

// Clear discards every staged row once confirmed.
func (s *ImportService) Clear(confirmed bool) (staging.View, error) {
	if !confirmed {
		return s.ws.View(), nil
	}
	if err := s.ws.Clear(); err != nil {
		return staging.View{}, err
	}
	return s.ws.View(), nil
}

// CreateCategory creates an expense category from the tag dialog, under
// currentCategoryID when one is chosen.
func (s *ImportService) CreateCategory(ctx context.Context, name, currentCategoryID string) (*InlineCategory, error) {
	ctx, span := importTracer.Start(ctx, "ImportService.CreateCategory")
	defer span.End()

	if currentCategoryID == domain.NoneSentinel {
		currentCategoryID = ""
	}
	created, err := s.categories.CreateInline(ctx, name, domain.CategoryExpense, currentCategoryID)
	if err != nil {
		return nil, err
	}
	field := "category_id"
	if currentCategoryID != "" {
		field = "sub_category_id"
	}
	return &InlineCategory{Category: created, Field: field}, nil
}

// ============================================================
// Save
// ============================================================

// Save submits every staged row in one batch with the account selected
// now. On failure the rows stay staged untouched.
func (s *ImportService) Save(ctx context.Context) (int, error) {
	ctx, span := importTracer.Start(ctx, "ImportService.Save")
	defer span.End()

	rows, ticket, err := s.ws.BeginSave()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))

	if err := s.uploads.SaveTransactions(ctx, rows); err != nil {
		s.ws.FinishSave(ticket, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.logger.Warn("saving staged transactions failed", zap.Int("rows", len(rows)), zap.Error(err))
		return 0, domain.Failed(err, "Save failed")
	}

	s.ws.FinishSave(ticket, true)
	s.accounts.Reset()
	s.metrics.AddSavedRows(len(rows))
	s.logger.Info("staged transactions saved",
		zap.String("account_id", rows[0].AccountID),
		zap.Int("rows", len(rows)),
	)
	return len(rows), nil
}

// Discard drops the workspace, e.g. when the session ends.
func (s *ImportService) Discard() {
	s.ws.Discard()
}

package service

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var categoryTracer = otel.Tracer("service/categories")

// CategoriesPage is the category tree split by type, with each top-level
// category's total from the income-expense report keyed by category id.
type CategoriesPage struct {
	Expense domain.CategoryTree `json:"expense"`
	Income  domain.CategoryTree `json:"income"`
	Totals  map[string]float64  `json:"totals"`
}

// CategoryService is the categories page and the inline category creation
// used by the import and entry pages.
type CategoryService struct {
	categories *Collection[domain.Category]
	api        port.CategoryAPI
	reports    port.ReportAPI
	logger     *zap.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories *Collection[domain.Category], api port.CategoryAPI, reports port.ReportAPI, logger *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, api: api, reports: reports, logger: logger}
}

// Page loads the tree and the report totals concurrently. Totals are
// best-effort: a failed report leaves them empty.
func (s *CategoryService) Page(ctx context.Context) (*CategoriesPage, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Page")
	defer span.End()

	var (
		tree   []domain.Category
		report *domain.IncomeExpense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tree, err = s.categories.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if report, err = s.reports.IncomeExpense(gctx, domain.DateRange{}); err != nil {
			s.logger.Warn("failed to load category totals", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newCategoriesPage(tree, report), nil
}

// Tree returns the full category tree, from the snapshot when one is held.
func (s *CategoryService) Tree(ctx context.Context) (domain.CategoryTree, error) {
	if tree, ok := s.categories.Snapshot(); ok {
		return tree, nil
	}
	tree, err := s.categories.Load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CategoryTree(tree), nil
}

// Create adds a category under the two-level rule and returns the
// refreshed page.
func (s *CategoryService) Create(ctx context.Context, in *domain.CategoryInput) (*CategoriesPage, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Create")
	defer span.End()

	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.categories.Create(ctx, categoryForm{in: in, tree: tree})
	if err != nil {
		return nil, err
	}
	return s.withTotals(ctx, items), nil
}

// Update edits a category. A category that has sub-categories cannot
// itself become one.
func (s *CategoryService) Update(ctx context.Context, id string, in *domain.CategoryInput) (*CategoriesPage, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Update")
	defer span.End()

	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	in.NormalizeParent()
	if in.ParentID != nil {
		if *in.ParentID == id {
			return nil, &domain.ErrValidation{Field: "parent_id", Message: "a category cannot be its own parent"}
		}
		if current, ok := tree.Find(id); ok && len(current.Children) > 0 {
			return nil, &domain.ErrValidation{Field: "parent_id", Message: "a category with sub-categories cannot become a sub-category"}
		}
	}
	items, err := s.categories.Update(ctx, id, categoryForm{in: in, tree: tree})
	if err != nil {
		return nil, err
	}
	return s.withTotals(ctx, items), nil
}

// Delete removes a category and its sub-categories once confirmed.
func (s *CategoryService) Delete(ctx context.Context, id string, confirmed bool) (*CategoriesPage, bool, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Delete")
	defer span.End()

	items, deleted, err := s.categories.Delete(ctx, id, confirmed)
	if err != nil || !deleted {
		return nil, deleted, err
	}
	return s.withTotals(ctx, items), true, nil
}

// CreateInline creates a category from a tag or entry dialog and returns
// it. parentID is the dialog's current category, "" for top level.
func (s *CategoryService) CreateInline(ctx context.Context, name string, typ domain.CategoryType, parentID string) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.CreateInline")
	defer span.End()

	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	in := domain.CategoryInput{Name: name, Type: typ}
	if parentID != "" {
		in.ParentID = &parentID
	}
	if err := in.Validate(tree); err != nil {
		return nil, err
	}
	created, err := s.api.CreateCategory(ctx, in)
	if err != nil {
		return nil, domain.Failed(err, "Failed to create category")
	}
	if created.ParentID == nil && in.ParentID != nil {
		created.ParentID = in.ParentID
	}
	s.categories.Reset()
	s.logger.Info("category created inline", zap.String("category_id", created.ID))
	return created, nil
}

// withTotals builds the page after a mutation, with best-effort totals.
func (s *CategoryService) withTotals(ctx context.Context, tree domain.CategoryTree) *CategoriesPage {
	report, err := s.reports.IncomeExpense(ctx, domain.DateRange{})
	if err != nil {
		s.logger.Warn("failed to load category totals", zap.Error(err))
	}
	return newCategoriesPage(tree, report)
}

func newCategoriesPage(tree domain.CategoryTree, report *domain.IncomeExpense) *CategoriesPage {
	page := &CategoriesPage{
		Expense: tree.OfType(domain.CategoryExpense),
		Income:  tree.OfType(domain.CategoryIncome),
		Totals:  make(map[string]float64),
	}
	if report == nil {
		return page
	}
	for _, c := range page.Expense {
		page.Totals[c.ID] = domain.CategoryTotal(c, report.ExpenseByCategory)
	}
	for _, c := range page.Income {
		page.Totals[c.ID] = domain.CategoryTotal(c, report.IncomeByCategory)
	}
	return page
}

// categoryForm validates a category against the tree it will join.
type categoryForm struct {
	in   *domain.CategoryInput
	tree domain.CategoryTree
}

func (f categoryForm) Validate() error { return f.in.Validate(f.tree) }

func (f categoryForm) MarshalJSON() ([]byte, error) { return json.Marshal(f.in) }

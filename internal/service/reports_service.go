package service

import (
	"context"
	"encoding/json"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var reportTracer = otel.Tracer("service/reports")

// ReportsPage is the reports view: the balance sheet next to income and
// expense for a date range.
type ReportsPage struct {
	BalanceSheet  domain.BalanceSheet   `json:"balance_sheet"`
	IncomeExpense *domain.IncomeExpense `json:"income_expense"`
	Net           float64               `json:"net"`
}

// ReportService relays the server's reports. Bodies are passed through
// as the server computed them; only net income is derived here.
type ReportService struct {
	api       port.ReportAPI
	raw       port.Snapshots[json.RawMessage]
	summaries port.Snapshots[*domain.IncomeExpense]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	api port.ReportAPI,
	raw port.Snapshots[json.RawMessage],
	summaries port.Snapshots[*domain.IncomeExpense],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{api: api, raw: raw, summaries: summaries, metrics: metrics, logger: logger}
}

// Dashboard fetches the dashboard summary.
func (s *ReportService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Dashboard")
	defer span.End()

	return fetchView(ctx, s.raw, "dashboard", s.metrics, func(ctx context.Context) (json.RawMessage, error) {
		body, err := s.api.Dashboard(ctx)
		return body, domain.Failed(err, "Failed to load dashboard")
	})
}

// BalanceSheet fetches the balance sheet.
func (s *ReportService) BalanceSheet(ctx context.Context) (domain.BalanceSheet, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.BalanceSheet")
	defer span.End()

	return fetchView(ctx, s.raw, "balance-sheet", s.metrics, func(ctx context.Context) (json.RawMessage, error) {
		body, err := s.api.BalanceSheet(ctx)
		return body, domain.Failed(err, "Failed to load balance sheet")
	})
}

// IncomeExpense fetches income and expense for rng. Every range shares one
// view, so a slow response for an old range never replaces a newer one.
func (s *ReportService) IncomeExpense(ctx context.Context, rng domain.DateRange) (*domain.IncomeExpense, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.IncomeExpense")
	defer span.End()

	return fetchView(ctx, s.summaries, "income-expense", s.metrics, func(ctx context.Context) (*domain.IncomeExpense, error) {
		report, err := s.api.IncomeExpense(ctx, rng)
		if err != nil {
			return nil, domain.Failed(err, "Failed to load income and expense")
		}
		if report == nil {
			report = &domain.IncomeExpense{}
		}
		return report, nil
	})
}

// TaxSummary fetches the tax summary of one financial year.
func (s *ReportService) TaxSummary(ctx context.Context, financialYear string) (domain.TaxSummary, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.TaxSummary")
	defer span.End()

	return fetchView(ctx, s.raw, "tax-summary", s.metrics, func(ctx context.Context) (json.RawMessage, error) {
		body, err := s.api.TaxSummary(ctx, financialYear)
		return body, domain.Failed(err, "Failed to load tax summary")
	})
}

// Page loads the balance sheet and the income-expense report together.
func (s *ReportService) Page(ctx context.Context, rng domain.DateRange) (*ReportsPage, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Page")
	defer span.End()

	page := &ReportsPage{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page.BalanceSheet, err = s.BalanceSheet(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.IncomeExpense, err = s.IncomeExpense(gctx, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	page.Net = page.IncomeExpense.Net()
	return page, nil
}

// Reset drops every report snapshot.
func (s *ReportService) Reset() {
	s.raw.Reset()
	s.summaries.Reset()
}

// rangeParams is the query a date range travels as.
func rangeParams(rng domain.DateRange) url.Values {
	q := url.Values{}
	if rng.Start != nil {
		q.Set("start_date", rng.Start.Format(domain.DateLayout))
	}
	if rng.End != nil {
		q.Set("end_date", rng.End.Format(domain.DateLayout))
	}
	return q
}

package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
)

var taxTracer = otel.Tracer("service/tax")

// TaxPage is the tax planning view of one financial year.
type TaxPage struct {
	FinancialYear string            `json:"financial_year"`
	Summary       domain.TaxSummary `json:"summary"`
}

// TaxService is the tax planning page.
type TaxService struct {
	reports    *ReportService
	deductions *Collection[domain.TaxDeduction]
	now        func() time.Time
	logger     *zap.Logger
}

// NewTaxService creates a new tax service.
func NewTaxService(reports *ReportService, deductions *Collection[domain.TaxDeduction], logger *zap.Logger) *TaxService {
	return &TaxService{reports: reports, deductions: deductions, now: time.Now, logger: logger}
}

// Page fetches the summary of financialYear, the current one when empty.
func (s *TaxService) Page(ctx context.Context, financialYear string) (*TaxPage, error) {
	ctx, span := taxTracer.Start(ctx, "TaxService.Page")
	defer span.End()

	if financialYear == "" {
		financialYear = domain.FinancialYear(s.now())
	}
	span.SetAttributes(attribute.String("financial_year", financialYear))

	summary, err := s.reports.TaxSummary(ctx, financialYear)
	if err != nil {
		return nil, err
	}
	return &TaxPage{FinancialYear: financialYear, Summary: summary}, nil
}

// AddDeduction records a deduction and refetches its year's summary.
func (s *TaxService) AddDeduction(ctx context.Context, in *domain.TaxDeduction) (*TaxPage, error) {
	ctx, span := taxTracer.Start(ctx, "TaxService.AddDeduction")
	defer span.End()

	if in.FinancialYear == "" {
		in.FinancialYear = domain.FinancialYear(s.now())
	}
	if _, err := s.deductions.Create(ctx, in); err != nil {
		return nil, err
	}
	s.logger.Info("tax deduction added",
		zap.String("financial_year", in.FinancialYear),
		zap.String("section", in.Section),
	)
	return s.Page(ctx, in.FinancialYear)
}

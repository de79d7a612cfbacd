package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var loanTracer = otel.Tracer("service/loans")

// maxInterestFetches bounds the per-loan interest calls in flight for one page.
const maxInterestFetches = 4

// LoansPage is every loan with its outstanding balance and, for loans
// that accrue interest, the server's interest figures.
type LoansPage struct {
	Loans  []domain.LoanView `json:"loans"`
	Totals domain.LoanTotals `json:"totals"`
}

// LoanService is the loans page.
type LoanService struct {
	loans  *Collection[domain.Loan]
	api    port.LoanAPI
	logger *zap.Logger
}

// NewLoanService creates a new loan service.
func NewLoanService(loans *Collection[domain.Loan], api port.LoanAPI, logger *zap.Logger) *LoanService {
	return &LoanService{loans: loans, api: api, logger: logger}
}

// Page loads the loans, then fetches interest for each loan with a
// positive rate. A failed interest fetch only leaves that loan without
// interest figures.
func (s *LoanService) Page(ctx context.Context) (*LoansPage, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.Page")
	defer span.End()

	loans, err := s.loans.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, loans), nil
}

func (s *LoanService) page(ctx context.Context, loans []domain.Loan) *LoansPage {
	views := make([]domain.LoanView, len(loans))
	for i, l := range loans {
		views[i] = domain.LoanView{Loan: l, Outstanding: l.Outstanding()}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInterestFetches)
	for i := range views {
		if !views[i].AccruesInterest() {
			continue
		}
		i := i
		g.Go(func() error {
			interest, err := s.api.Interest(gctx, views[i].ID)
			if err != nil {
				s.logger.Warn("failed to load loan interest", zap.String("loan_id", views[i].ID), zap.Error(err))
				return nil
			}
			views[i].Interest = interest
			return nil
		})
	}
	_ = g.Wait()

	return &LoansPage{Loans: views, Totals: domain.TotalLoans(loans)}
}

// Create adds a loan and returns the refreshed page.
func (s *LoanService) Create(ctx context.Context, in *domain.LoanInput) (*LoansPage, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.Create")
	defer span.End()

	loans, err := s.loans.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, loans), nil
}

// Update edits a loan and returns the refreshed page.
func (s *LoanService) Update(ctx context.Context, id string, in *domain.LoanInput) (*LoansPage, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.Update")
	defer span.End()

	loans, err := s.loans.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, loans), nil
}

// Delete removes a loan once confirmed.
func (s *LoanService) Delete(ctx context.Context, id string, confirmed bool) (*LoansPage, bool, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.Delete")
	defer span.End()

	loans, deleted, err := s.loans.Delete(ctx, id, confirmed)
	if err != nil || !deleted {
		return nil, deleted, err
	}
	return s.page(ctx, loans), true, nil
}

// Repay records a repayment and returns the refreshed page.
func (s *LoanService) Repay(ctx context.Context, in domain.RepaymentInput) (*LoansPage, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.Repay")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", in.LoanID), attribute.Bool("is_interest", in.IsInterest))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.api.Repay(ctx, in); err != nil {
		return nil, domain.Failed(err, "Failed to record payment")
	}
	s.logger.Info("loan repayment recorded", zap.String("loan_id", in.LoanID), zap.Bool("is_interest", in.IsInterest))
	return s.Page(ctx)
}

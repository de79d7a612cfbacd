package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/service"
)

func newLoanService(t *testing.T, loans []domain.Loan, interest map[string]*domain.LoanInterest) (*service.LoanService, *fakeResource[domain.Loan], *fakeLoanAPI) {
	t.Helper()
	res := &fakeResource[domain.Loan]{items: loans}
	api := &fakeLoanAPI{interest: interest}
	return service.NewLoanService(newCollection("loans", res), api, zap.NewNop()), res, api
}

func TestLoanPage_FetchesInterestOnlyForInterestBearingLoans(t *testing.T) {
	svc, _, api := newLoanService(t,
		[]domain.Loan{
			{ID: "l1", PersonName: "Ravi", LoanType: domain.LoanGiven, Principal: 10000, TotalRepaid: 2500, InterestRate: 12},
			{ID: "l2", PersonName: "Meera", LoanType: domain.LoanTaken, Principal: 4000},
		},
		map[string]*domain.LoanInterest{"l1": {AccruedInterest: 600, InterestDue: 600}},
	)

	page, err := svc.Page(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, api.requested)
	require.Len(t, page.Loans, 2)
	require.NotNil(t, page.Loans[0].Interest)
	assert.Equal(t, 600.0, page.Loans[0].Interest.InterestDue)
	assert.Nil(t, page.Loans[1].Interest)
	assert.Equal(t, 7500.0, page.Loans[0].Outstanding)
	assert.Equal(t, domain.LoanTotals{Receivable: 7500, Payable: 4000}, page.Totals)
}

func TestLoanPage_FailedInterestFetchIsTolerated(t *testing.T) {
	svc, _, api := newLoanService(t,
		[]domain.Loan{
			{ID: "l1", LoanType: domain.LoanGiven, Principal: 1000, InterestRate: 10},
			{ID: "missing", LoanType: domain.LoanGiven, Principal: 500, InterestRate: 8},
		},
		map[string]*domain.LoanInterest{"l1": {InterestDue: 50}},
	)

	page, err := svc.Page(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"l1", "missing"}, api.requested)
	assert.NotNil(t, page.Loans[0].Interest)
	assert.Nil(t, page.Loans[1].Interest)
}

func TestLoanPage_ManyLoansAllFetched(t *testing.T) {
	loans := make([]domain.Loan, 0, 10)
	interest := make(map[string]*domain.LoanInterest)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		loans = append(loans, domain.Loan{ID: id, LoanType: domain.LoanGiven, Principal: 100, InterestRate: 5})
		interest[id] = &domain.LoanInterest{InterestDue: 1}
	}
	svc, _, api := newLoanService(t, loans, interest)

	page, err := svc.Page(context.Background())

	require.NoError(t, err)
	assert.Len(t, api.requested, 10)
	for _, l := range page.Loans {
		assert.NotNil(t, l.Interest, l.ID)
	}
}

func TestLoanCreate_DefaultsAndValidation(t *testing.T) {
	svc, res, _ := newLoanService(t, nil, nil)

	_, err := svc.Create(context.Background(), &domain.LoanInput{PersonName: "  "})
	var validation *domain.ErrValidation
	require.True(t, errors.As(err, &validation))

	_, err = svc.Create(context.Background(), &domain.LoanInput{PersonName: "Ravi", Principal: domain.NewFormNumber(5000)})
	require.NoError(t, err)
	require.Len(t, res.creates, 1)
	in := res.creates[0].(*domain.LoanInput)
	assert.Equal(t, domain.LoanGiven, in.LoanType)
	assert.Equal(t, domain.InterestSimple, in.InterestType)
}

func TestLoanRepay_RequiresPositiveAmount(t *testing.T) {
	svc, _, api := newLoanService(t, []domain.Loan{{ID: "l1", LoanType: domain.LoanGiven, Principal: 1000}}, nil)

	_, err := svc.Repay(context.Background(), domain.RepaymentInput{LoanID: "l1", Amount: domain.FormNumber{Raw: "-"}})
	var validation *domain.ErrValidation
	require.True(t, errors.As(err, &validation))
	assert.Empty(t, api.repaid)

	page, err := svc.Repay(context.Background(), domain.RepaymentInput{LoanID: "l1", Amount: domain.NewFormNumber(200), IsInterest: true})
	require.NoError(t, err)
	require.Len(t, api.repaid, 1)
	assert.True(t, api.repaid[0].IsInterest)
	assert.Len(t, page.Loans, 1)
}

func TestLoanDelete_UnconfirmedKeepsLoan(t *testing.T) {
	svc, res, _ := newLoanService(t, []domain.Loan{{ID: "l1"}}, nil)

	page, deleted, err := svc.Delete(context.Background(), "l1", false)

	assert.NoError(t, err)
	assert.False(t, deleted)
	assert.Nil(t, page)
	assert.Empty(t, res.deletes)
}

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/infra/snapshot"
	"github.com/ledgeros/console-bfa-go/internal/service"
)

func newTransactionService(t *testing.T) (*service.TransactionService, *fakeTransactions, *fakeResource[domain.Account]) {
	t.Helper()
	accounts := &fakeResource[domain.Account]{items: []domain.Account{
		{ID: "hdfc", Name: "HDFC", AccountType: domain.AccountBank},
		{ID: "cash", Name: "Wallet", AccountType: domain.AccountCash},
		{ID: "loan-ravi", Name: "Ravi", AccountType: domain.AccountLoanReceivable},
	}}
	cats := &fakeCategories{}
	cats.items = []domain.Category{
		{ID: "food", Name: "Food", Type: domain.CategoryExpense, Children: []domain.Category{
			{ID: "groceries", Name: "Groceries", Type: domain.CategoryExpense},
		}},
		{ID: "interest", Name: "Interest Received", Type: domain.CategoryIncome, LinksToLoanInterest: true},
	}
	catSvc := service.NewCategoryService(newCollection("categories", &cats.fakeResource), cats, &fakeReports{}, zap.NewNop())

	api := &fakeTransactions{list: []domain.Transaction{
		{ID: "t1", Description: "Swiggy", Amount: 250, AccountID: "hdfc", Tag: domain.CategoryTag("groceries"), TransactionType: domain.TxExpense},
	}}
	metrics := observability.NewMetrics()
	svc := service.NewTransactionService(api, snapshot.New[[]domain.Transaction](time.Minute, metrics),
		newCollection("accounts", accounts), catSvc, metrics, zap.NewNop())
	return svc, api, accounts
}

func TestTransactionPage_ResolvesNames(t *testing.T) {
	svc, api, _ := newTransactionService(t)
	filter := domain.TransactionFilter{AccountID: "hdfc", Untagged: true}

	page, err := svc.Page(context.Background(), filter)

	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "HDFC", page.AccountNames["hdfc"])
	assert.Equal(t, "Food > Groceries", page.CategoryNames["groceries"])
	assert.Equal(t, []domain.TransactionFilter{filter}, api.filters)
}

func TestTransactionBulkTag_NoneClearsCategory(t *testing.T) {
	svc, api, _ := newTransactionService(t)

	_, err := svc.BulkTag(context.Background(), nil, "food", domain.TransactionFilter{})
	var validation *domain.ErrValidation
	require.True(t, errors.As(err, &validation))

	_, err = svc.BulkTag(context.Background(), []string{"t1"}, domain.NoneSentinel, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, api.tagged, 1)
	assert.Nil(t, api.tagged[0].CategoryID)
}

func TestTransactionDelete_UnconfirmedSkipsServer(t *testing.T) {
	svc, api, _ := newTransactionService(t)

	page, deleted, err := svc.Delete(context.Background(), "t1", false, domain.TransactionFilter{})

	assert.NoError(t, err)
	assert.False(t, deleted)
	assert.Nil(t, page)
	assert.Empty(t, api.filters)
}

func TestAddEntry_SubCategoryWins(t *testing.T) {
	svc, api, _ := newTransactionService(t)

	err := svc.AddEntry(context.Background(), domain.EntryInput{
		Date:            "2024-05-01",
		Amount:          domain.NewFormNumber(120),
		AccountID:       "cash",
		CategoryID:      "food",
		SubCategoryID:   "groceries",
		TransactionType: domain.TxExpense,
	})

	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Equal(t, "groceries", *api.created[0].Tag.CategoryID())
	assert.Empty(t, api.created[0].LinkedLoanID)
}

func TestAddEntry_LoanLinkRules(t *testing.T) {
	svc, api, _ := newTransactionService(t)
	entry := domain.EntryInput{
		Amount:          domain.NewFormNumber(300),
		AccountID:       "hdfc",
		CategoryID:      "food",
		LinkedLoanID:    "loan-ravi",
		TransactionType: domain.TxExpense,
	}

	err := svc.AddEntry(context.Background(), entry)
	var validation *domain.ErrValidation
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "linked_loan_id", validation.Field)

	entry.CategoryID = "interest"
	entry.TransactionType = domain.TxIncome
	require.NoError(t, svc.AddEntry(context.Background(), entry))
	require.Len(t, api.created, 1)
	assert.Equal(t, "loan-ravi", api.created[0].LinkedLoanID)

	entry.LinkedLoanID = "cash"
	err = svc.AddEntry(context.Background(), entry)
	assert.True(t, errors.As(err, &validation), "only loan accounts can be linked")
}

func TestAddTransfer_RejectsSameAccount(t *testing.T) {
	svc, api, _ := newTransactionService(t)

	err := svc.AddTransfer(context.Background(), domain.TransferInput{FromAccountID: "hdfc", ToAccountID: "hdfc", Amount: domain.NewFormNumber(10)})
	var validation *domain.ErrValidation
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "Cannot transfer to same account", validation.Message)

	require.NoError(t, svc.AddTransfer(context.Background(), domain.TransferInput{FromAccountID: "hdfc", ToAccountID: "cash", Amount: domain.NewFormNumber(10)}))
	require.Len(t, api.created, 1)
	assert.Equal(t, domain.TxTransfer, api.created[0].TransactionType)
	assert.Equal(t, "cash", *api.created[0].Tag.PayeeID())
}

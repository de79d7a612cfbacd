package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"", 0, false},
		{"-", 0, false},
		{".", 0, false},
		{"-.", 0, false},
		{"12", 12, true},
		{"12.", 12, true},
		{" -3.5 ", -3.5, true},
		{"1e", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseFormNumber(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseFormNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormNumber_JSON(t *testing.T) {
	var in struct {
		A FormNumber `json:"a"`
		B FormNumber `json:"b"`
		C FormNumber `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"-","b":42.5,"c":null}`), &in))
	assert.Equal(t, "-", in.A.Raw)
	assert.Equal(t, 42.5, in.B.Value())
	assert.Equal(t, "", in.C.Raw)

	out, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0,"b":42.5,"c":0}`, string(out))
}

func TestCategory_LegacyInterestNames(t *testing.T) {
	var tree CategoryTree
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","name":"Interest Paid","type":"expense"},
		{"id":"2","name":"Interest Paid","type":"expense","links_to_loan_interest":false},
		{"id":"3","name":"Loan interest","type":"income","links_to_loan_interest":true},
		{"id":"4","name":"Food","type":"expense","children":[{"id":"5","name":"Interest Received","type":"expense"}]}
	]`), &tree))

	assert.True(t, tree[0].LinksToLoanInterest, "legacy name without flag")
	assert.False(t, tree[1].LinksToLoanInterest, "explicit flag wins over the name")
	assert.True(t, tree[2].LinksToLoanInterest)
	assert.True(t, tree[3].Children[0].LinksToLoanInterest, "children decode through the same rule")
}

func TestCategoryTree_Lookups(t *testing.T) {
	tree := CategoryTree{
		{ID: "food", Name: "Food", Type: CategoryExpense, Children: []Category{{ID: "grocery", Name: "Grocery"}}},
		{ID: "salary", Name: "Salary", Type: CategoryIncome},
	}

	name, ok := tree.DisplayName("grocery")
	require.True(t, ok)
	assert.Equal(t, "Food > Grocery", name)

	child, ok := tree.Find("grocery")
	require.True(t, ok)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, "food", *child.ParentID)

	assert.Len(t, tree.OfType(CategoryIncome), 1)
	assert.Len(t, tree.Flatten(), 3)

	total := CategoryTotal(tree[0], map[string]float64{"Food": 10, "Food > Grocery": 5, "Salary": 99})
	assert.Equal(t, 15.0, total)
}

func TestCategoryInput_Validate(t *testing.T) {
	tree := CategoryTree{
		{ID: "salary", Name: "Salary", Type: CategoryIncome, Children: []Category{{ID: "bonus", Name: "Bonus"}}},
	}

	parent := "salary"
	in := CategoryInput{Name: " Arrears ", ParentID: &parent, Type: CategoryExpense}
	require.NoError(t, in.Validate(tree))
	assert.Equal(t, "Arrears", in.Name)
	assert.Equal(t, CategoryIncome, in.Type, "sub-category inherits the parent's type")

	grand := "bonus"
	deep := CategoryInput{Name: "Too deep", ParentID: &grand}
	assert.Error(t, deep.Validate(tree))

	none := NoneSentinel
	top := CategoryInput{Name: "Misc", ParentID: &none}
	require.NoError(t, top.Validate(tree))
	assert.Nil(t, top.ParentID)
	assert.Equal(t, CategoryExpense, top.Type)
}

func TestGroupAndTotalAccounts(t *testing.T) {
	accounts := []Account{
		{ID: "1", AccountType: AccountCreditCard, CurrentBalance: 300},
		{ID: "2", AccountType: AccountBank, CurrentBalance: 1000},
		{ID: "3", AccountType: AccountLoanReceivable, CurrentBalance: 50},
		{ID: "4", AccountType: AccountBank, CurrentBalance: 10},
		{ID: "5", AccountType: AccountLoanPayable, CurrentBalance: 200},
	}

	groups := GroupAccounts(accounts, "all")
	require.Len(t, groups, 4)
	assert.Equal(t, AccountBank, groups[0].Type)
	assert.Len(t, groups[0].Accounts, 2)

	filtered := GroupAccounts(accounts, "bank")
	require.Len(t, filtered, 1)

	totals := TotalAccounts(accounts)
	assert.Equal(t, 1060.0, totals.Assets)
	assert.Equal(t, 500.0, totals.Liabilities)

	assert.Len(t, LoanAccounts(accounts), 2)
}

func TestPasswordForms(t *testing.T) {
	assert.Equal(t, "Passwords do not match", UserMessage(SetupForm{Password: "abcd", ConfirmPassword: "abce"}.Validate(), ""))
	assert.Equal(t, "Password must be at least 4 characters", UserMessage(SetupForm{Password: "abc", ConfirmPassword: "abc"}.Validate(), ""))
	assert.NoError(t, SetupForm{Password: "abcd", ConfirmPassword: "abcd"}.Validate())

	assert.Error(t, ChangePasswordForm{NewPassword: "abcd", ConfirmPassword: "abcd"}.Validate())
	assert.NoError(t, ChangePasswordForm{CurrentPassword: "old", NewPassword: "abcd", ConfirmPassword: "abcd"}.Validate())

	assert.Error(t, ResetForm{Confirmation: "delete"}.Validate())
	assert.NoError(t, ResetForm{Confirmation: "DELETE"}.Validate())
}

func TestLoans(t *testing.T) {
	loans := []Loan{
		{LoanType: LoanGiven, Principal: 1000, TotalRepaid: 250},
		{LoanType: LoanTaken, Principal: 500, TotalRepaid: 0, InterestRate: 12},
	}
	assert.Equal(t, 750.0, loans[0].Outstanding())
	assert.False(t, loans[0].AccruesInterest())
	assert.True(t, loans[1].AccruesInterest())
	assert.Equal(t, LoanTotals{Receivable: 750, Payable: 500}, TotalLoans(loans))

	assert.Error(t, RepaymentInput{LoanID: "l", Amount: FormNumber{Raw: "-"}}.Validate())
	assert.NoError(t, RepaymentInput{LoanID: "l", Amount: NewFormNumber(10)}.Validate())
}

func TestReportsHelpers(t *testing.T) {
	assert.Equal(t, "2024-25", FinancialYear(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-24", FinancialYear(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1999-00", FinancialYear(time.Date(1999, time.May, 1, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "ledgeros_transactions.xlsx", ExportFileName(ExportTransactions, ""))
	assert.Equal(t, "ledgeros_balance-sheet.xlsx", ExportFileName(ExportBalanceSheet, ""))
	assert.Equal(t, "ledgeros_ca_report_2024-25.xlsx", ExportFileName(ExportCAReport, "2024-25"))

	_, err := ParseDateRange("2024-05-01", "2024-04-01")
	assert.Error(t, err)
	r, err := ParseDateRange("2024-04-01", "")
	require.NoError(t, err)
	assert.NotNil(t, r.Start)
	assert.Nil(t, r.End)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Account exists", UserMessage(&APIError{Status: 400, Detail: "Account exists"}, "Failed"))
	assert.Equal(t, "Failed", UserMessage(&APIError{Status: 500}, "Failed"))
	assert.Equal(t, "Failed", UserMessage(&ErrExternalService{Service: "x"}, "Failed"))
}

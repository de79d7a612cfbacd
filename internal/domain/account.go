package domain

// ============================================================
// Accounts / ledgers
// ============================================================

// AccountType classifies a ledger account.
type AccountType string

const (
	AccountBank           AccountType = "bank"
	AccountCash           AccountType = "cash"
	AccountCreditCard     AccountType = "credit_card"
	AccountInvestment     AccountType = "investment"
	AccountLoanReceivable AccountType = "loan_receivable"
	AccountLoanPayable    AccountType = "loan_payable"
)

// AccountTypes lists the types in display order.
var AccountTypes = []AccountType{
	AccountBank,
	AccountCash,
	AccountCreditCard,
	AccountInvestment,
	AccountLoanReceivable,
	AccountLoanPayable,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsLoan reports whether the account tracks money lent or borrowed.
func (t AccountType) IsLoan() bool {
	return t == AccountLoanReceivable || t == AccountLoanPayable
}

// Account is a ledger account as returned by the LedgerOS API.
// CurrentBalance is computed by the server and never recomputed here.
type Account struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	AccountType    AccountType `json:"account_type"`
	Description    string      `json:"description,omitempty"`
	OpeningBalance float64     `json:"opening_balance"`
	CurrentBalance float64     `json:"current_balance"`
	PersonName     string      `json:"person_name,omitempty"`
}

// AccountInput is the create/edit form for an account.
// Only the opening balance is editable; the server recomputes the rest.
type AccountInput struct {
	Name           string      `json:"name"`
	AccountType    AccountType `json:"account_type"`
	Description    string      `json:"description"`
	OpeningBalance FormNumber  `json:"opening_balance"`
	PersonName     string      `json:"person_name"`
}

// Validate checks the required fields.
func (in *AccountInput) Validate() error {
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	if in.AccountType == "" {
		in.AccountType = AccountBank
	}
	if !in.AccountType.Valid() {
		return &ErrValidation{Field: "account_type", Message: "unknown account type"}
	}
	return nil
}

// AccountGroup is the accounts of one type, in fetch order.
type AccountGroup struct {
	Type     AccountType `json:"type"`
	Accounts []Account   `json:"accounts"`
}

// GroupAccounts filters by type ("" or "all" keeps everything) and groups
// the result by account type in display order. Empty groups are omitted.
func GroupAccounts(accounts []Account, filter string) []AccountGroup {
	byType := make(map[AccountType][]Account)
	for _, a := range accounts {
		if filter != "" && filter != "all" && string(a.AccountType) != filter {
			continue
		}
		byType[a.AccountType] = append(byType[a.AccountType], a)
	}

	groups := make([]AccountGroup, 0, len(byType))
	for _, t := range AccountTypes {
		if list, ok := byType[t]; ok {
			groups = append(groups, AccountGroup{Type: t, Accounts: list})
			delete(byType, t)
		}
	}
	// Types the server knows about but we don't go last.
	for t, list := range byType {
		groups = append(groups, AccountGroup{Type: t, Accounts: list})
	}
	return groups
}

// AccountTotals sums fetched balances into assets and liabilities.
type AccountTotals struct {
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
}

// TotalAccounts sums CurrentBalance across all accounts regardless of filter.
func TotalAccounts(accounts []Account) AccountTotals {
	var t AccountTotals
	for _, a := range accounts {
		switch a.AccountType {
		case AccountBank, AccountCash, AccountInvestment, AccountLoanReceivable:
			t.Assets += a.CurrentBalance
		case AccountCreditCard, AccountLoanPayable:
			t.Liabilities += a.CurrentBalance
		}
	}
	return t
}

// FilterAccounts returns the accounts whose type matches any of types.
func FilterAccounts(accounts []Account, types ...AccountType) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		for _, t := range types {
			if a.AccountType == t {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// LoanAccounts returns loan_receivable and loan_payable accounts.
func LoanAccounts(accounts []Account) []Account {
	return FilterAccounts(accounts, AccountLoanReceivable, AccountLoanPayable)
}

// FindAccount looks an account up by id.
func FindAccount(accounts []Account, id string) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

package domain

import "strings"

// LoanType says who owes whom.
type LoanType string

const (
	LoanGiven LoanType = "given"
	LoanTaken LoanType = "taken"
)

// InterestType selects the accrual formula the server applies.
type InterestType string

const (
	InterestSimple   InterestType = "simple"
	InterestCompound InterestType = "compound"
)

// Loan is a personal loan given or taken.
type Loan struct {
	ID           string       `json:"id"`
	PersonName   string       `json:"person_name"`
	LoanType     LoanType     `json:"loan_type"`
	Principal    float64      `json:"principal"`
	InterestRate float64      `json:"interest_rate"`
	InterestType InterestType `json:"interest_type"`
	StartDate    string       `json:"start_date"`
	Notes        string       `json:"notes,omitempty"`
	TotalRepaid  float64      `json:"total_repaid"`
	InterestPaid float64      `json:"interest_paid"`
}

// Outstanding is principal minus everything repaid.
func (l Loan) Outstanding() float64 {
	return l.Principal - l.TotalRepaid
}

// AccruesInterest reports whether interest details are worth fetching.
func (l Loan) AccruesInterest() bool {
	return l.InterestRate > 0
}

// LoanInput is the create/edit form.
type LoanInput struct {
	PersonName   string       `json:"person_name"`
	LoanType     LoanType     `json:"loan_type"`
	Principal    FormNumber   `json:"principal"`
	InterestRate FormNumber   `json:"interest_rate"`
	InterestType InterestType `json:"interest_type"`
	StartDate    string       `json:"start_date"`
	Notes        string       `json:"notes"`
}

// Validate fills defaults and checks required fields.
func (in *LoanInput) Validate() error {
	in.PersonName = strings.TrimSpace(in.PersonName)
	if in.PersonName == "" {
		return &ErrValidation{Field: "person_name", Message: "person name is required"}
	}
	if in.LoanType == "" {
		in.LoanType = LoanGiven
	}
	if in.LoanType != LoanGiven && in.LoanType != LoanTaken {
		return &ErrValidation{Field: "loan_type", Message: "loan type must be given or taken"}
	}
	if in.InterestType == "" {
		in.InterestType = InterestSimple
	}
	if in.InterestType != InterestSimple && in.InterestType != InterestCompound {
		return &ErrValidation{Field: "interest_type", Message: "interest type must be simple or compound"}
	}
	return nil
}

// LoanInterest is GET /loans/:id/interest. Values are computed server-side.
type LoanInterest struct {
	Principal            float64      `json:"principal"`
	OutstandingPrincipal float64      `json:"outstanding_principal"`
	InterestRate         float64      `json:"interest_rate"`
	InterestType         InterestType `json:"interest_type"`
	DaysElapsed          int          `json:"days_elapsed"`
	AccruedInterest      float64      `json:"accrued_interest"`
	InterestPaid         float64      `json:"interest_paid"`
	InterestDue          float64      `json:"interest_due"`
	TotalDue             float64      `json:"total_due"`
}

// RepaymentInput is the body for POST /loans/repayment.
type RepaymentInput struct {
	LoanID     string     `json:"loan_id"`
	Amount     FormNumber `json:"amount"`
	Date       string     `json:"date"`
	IsInterest bool       `json:"is_interest"`
	Notes      string     `json:"notes"`
}

// Validate requires a positive amount.
func (in RepaymentInput) Validate() error {
	if in.LoanID == "" {
		return &ErrValidation{Field: "loan_id", Message: "loan is required"}
	}
	if v, ok := in.Amount.Parsed(); !ok || v <= 0 {
		return &ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	return nil
}

// LoanView is a loan plus its display arithmetic and interest details.
type LoanView struct {
	Loan
	Outstanding float64       `json:"outstanding"`
	Interest    *LoanInterest `json:"interest,omitempty"`
}

// LoanTotals sums outstanding balances by direction.
type LoanTotals struct {
	Receivable float64 `json:"receivable"`
	Payable    float64 `json:"payable"`
}

// TotalLoans sums outstanding principal: given loans are receivable, taken are payable.
func TotalLoans(loans []Loan) LoanTotals {
	var t LoanTotals
	for _, l := range loans {
		switch l.LoanType {
		case LoanGiven:
			t.Receivable += l.Outstanding()
		case LoanTaken:
			t.Payable += l.Outstanding()
		}
	}
	return t
}

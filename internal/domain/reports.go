package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================
// Reports
// ============================================================

// IncomeExpense is GET /reports/income-expense. Category keys are display
// names; sub-categories appear as "Parent > Child".
type IncomeExpense struct {
	TotalIncome       float64            `json:"total_income"`
	TotalExpense      float64            `json:"total_expense"`
	IncomeByCategory  map[string]float64 `json:"income_by_category"`
	ExpenseByCategory map[string]float64 `json:"expense_by_category"`
}

// Net is income minus expense.
func (r IncomeExpense) Net() float64 {
	return r.TotalIncome - r.TotalExpense
}

// ByType returns the per-category map for the given category type.
func (r IncomeExpense) ByType(t CategoryType) map[string]float64 {
	if t == CategoryIncome {
		return r.IncomeByCategory
	}
	return r.ExpenseByCategory
}

// Report bodies the gateway relays without interpreting.
type (
	Dashboard    = json.RawMessage
	BalanceSheet = json.RawMessage
	TaxSummary   = json.RawMessage
)

// DateRange is an optional start/end filter shared by reports and exports.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange reads yyyy-mm-dd bounds; empty strings leave a bound open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := time.Parse(DateLayout, start)
		if err != nil {
			return r, &ErrValidation{Field: "start_date", Message: "start_date must be yyyy-mm-dd"}
		}
		r.Start = &t
	}
	if end != "" {
		t, err := time.Parse(DateLayout, end)
		if err != nil {
			return r, &ErrValidation{Field: "end_date", Message: "end_date must be yyyy-mm-dd"}
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return r, &ErrValidation{Field: "end_date", Message: "end_date is before start_date"}
	}
	return r, nil
}

// FinancialYear formats the Indian financial year containing t, e.g. "2024-25".
func FinancialYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// ============================================================
// Exports
// ============================================================

// ExportKind names a downloadable workbook.
type ExportKind string

const (
	ExportTransactions ExportKind = "transactions"
	ExportBalanceSheet ExportKind = "balance-sheet"
	ExportCAReport     ExportKind = "ca-report"
)

// Valid reports whether k is a known export.
func (k ExportKind) Valid() bool {
	return k == ExportTransactions || k == ExportBalanceSheet || k == ExportCAReport
}

// ExportFileName is the download name offered to the browser.
func ExportFileName(kind ExportKind, financialYear string) string {
	if kind == ExportCAReport {
		return fmt.Sprintf("ledgeros_ca_report_%s.xlsx", financialYear)
	}
	return fmt.Sprintf("ledgeros_%s.xlsx", kind)
}

package domain

// ============================================================
// Master records: one struct per CRUD page.
// Numeric fields are FormNumber so the same type carries both the
// server's numbers and the console's free-text input.
// ============================================================

// BankAccount is a bank account master record.
type BankAccount struct {
	ID             string     `json:"id,omitempty"`
	BankName       string     `json:"bank_name"`
	AccountType    string     `json:"account_type"`
	AccountNumber  string     `json:"account_number"`
	IFSC           string     `json:"ifsc"`
	Branch         string     `json:"branch"`
	CurrentBalance FormNumber `json:"current_balance"`
}

// Validate fills defaults before submission.
func (b *BankAccount) Validate() error {
	if b.BankName == "" {
		return &ErrValidation{Field: "bank_name", Message: "bank name is required"}
	}
	if b.AccountType == "" {
		b.AccountType = "savings"
	}
	return nil
}

// CreditCard is a credit card master record.
type CreditCard struct {
	ID                 string     `json:"id,omitempty"`
	BankName           string     `json:"bank_name"`
	CardName           string     `json:"card_name"`
	CardNumberLast4    string     `json:"card_number_last4"`
	CreditLimit        FormNumber `json:"credit_limit"`
	CurrentOutstanding FormNumber `json:"current_outstanding"`
	BillingDate        FormNumber `json:"billing_date"`
	DueDate            FormNumber `json:"due_date"`
}

// Validate checks the card fields.
func (c *CreditCard) Validate() error {
	if c.BankName == "" {
		return &ErrValidation{Field: "bank_name", Message: "bank name is required"}
	}
	if n := len(c.CardNumberLast4); n != 0 && n != 4 {
		return &ErrValidation{Field: "card_number_last4", Message: "enter the last 4 digits only"}
	}
	return nil
}

// FixedDeposit is a fixed deposit master record.
type FixedDeposit struct {
	ID             string     `json:"id,omitempty"`
	BankName       string     `json:"bank_name"`
	FDNumber       string     `json:"fd_number"`
	Principal      FormNumber `json:"principal"`
	InterestRate   FormNumber `json:"interest_rate"`
	StartDate      string     `json:"start_date"`
	MaturityDate   string     `json:"maturity_date"`
	MaturityAmount FormNumber `json:"maturity_amount"`
	InterestPayout string     `json:"interest_payout"`
	IsTaxSaver     bool       `json:"is_tax_saver"`
	TDSDeducted    FormNumber `json:"tds_deducted"`
}

// Validate fills defaults before submission.
func (f *FixedDeposit) Validate() error {
	if f.BankName == "" {
		return &ErrValidation{Field: "bank_name", Message: "bank name is required"}
	}
	if f.InterestPayout == "" {
		f.InterestPayout = "cumulative"
	}
	return nil
}

// GoldHolding is a gold master record.
type GoldHolding struct {
	ID                   string     `json:"id,omitempty"`
	GoldType             string     `json:"gold_type"`
	Description          string     `json:"description"`
	QuantityGrams        FormNumber `json:"quantity_grams"`
	Purity               string     `json:"purity"`
	PurchasePricePerGram FormNumber `json:"purchase_price_per_gram"`
	CurrentPricePerGram  FormNumber `json:"current_price_per_gram"`
	PurchaseDate         string     `json:"purchase_date"`
}

// Validate fills defaults before submission.
func (g *GoldHolding) Validate() error {
	if g.GoldType == "" {
		g.GoldType = "physical"
	}
	if g.Purity == "" {
		g.Purity = "24K"
	}
	return nil
}

// CurrentValue is quantity times current price per gram.
func (g GoldHolding) CurrentValue() float64 {
	return g.QuantityGrams.Value() * g.CurrentPricePerGram.Value()
}

// GovScheme is a government savings scheme (PPF, EPF, NPS, ...).
type GovScheme struct {
	ID                 string     `json:"id,omitempty"`
	SchemeType         string     `json:"scheme_type"`
	AccountNumber      string     `json:"account_number"`
	Institution        string     `json:"institution"`
	CurrentBalance     FormNumber `json:"current_balance"`
	InterestRate       FormNumber `json:"interest_rate"`
	StartDate          string     `json:"start_date"`
	MaturityDate       string     `json:"maturity_date"`
	YearlyContribution FormNumber `json:"yearly_contribution"`
}

// Validate checks the scheme type.
func (g *GovScheme) Validate() error {
	if g.SchemeType == "" {
		g.SchemeType = "ppf"
	}
	return nil
}

// RealEstate is a property master record.
type RealEstate struct {
	ID            string     `json:"id,omitempty"`
	PropertyType  string     `json:"property_type"`
	PropertyName  string     `json:"property_name"`
	Address       string     `json:"address"`
	PurchaseDate  string     `json:"purchase_date"`
	PurchaseValue FormNumber `json:"purchase_value"`
	CurrentValue  FormNumber `json:"current_value"`
	RentalIncome  FormNumber `json:"rental_income"`
}

// Validate checks the property name.
func (r *RealEstate) Validate() error {
	if r.PropertyName == "" {
		return &ErrValidation{Field: "property_name", Message: "property name is required"}
	}
	if r.PropertyType == "" {
		r.PropertyType = "residential"
	}
	return nil
}

// Profile is a family member or entity whose finances are tracked.
type Profile struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	EntityType   string `json:"entity_type"`
	PAN          string `json:"pan"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"date_of_birth"`
	TaxRegime    string `json:"tax_regime"`
	Relationship string `json:"relationship"`
}

// Validate fills defaults before submission.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	if p.EntityType == "" {
		p.EntityType = "individual"
	}
	if p.TaxRegime == "" {
		p.TaxRegime = "new"
	}
	return nil
}

// TaxDeduction is a deduction claimed for a financial year.
type TaxDeduction struct {
	ID             string     `json:"id,omitempty"`
	FinancialYear  string     `json:"financial_year"`
	Section        string     `json:"section"`
	Description    string     `json:"description"`
	Amount         FormNumber `json:"amount"`
	ProofAvailable bool       `json:"proof_available"`
}

// Validate checks the section and year.
func (t *TaxDeduction) Validate() error {
	if t.FinancialYear == "" {
		return &ErrValidation{Field: "financial_year", Message: "financial year is required"}
	}
	if t.Section == "" {
		t.Section = "80C"
	}
	return nil
}

// InvestmentHolding is one portfolio position.
type InvestmentHolding struct {
	ID           string     `json:"id,omitempty"`
	HoldingType  string     `json:"holding_type"`
	Symbol       string     `json:"symbol"`
	Name         string     `json:"name"`
	Quantity     FormNumber `json:"quantity"`
	AvgBuyPrice  FormNumber `json:"avg_buy_price"`
	CurrentPrice FormNumber `json:"current_price"`
	Broker       string     `json:"broker"`
}

// Validate fills defaults before submission.
func (h *InvestmentHolding) Validate() error {
	if h.Name == "" && h.Symbol == "" {
		return &ErrValidation{Field: "name", Message: "name or symbol is required"}
	}
	if h.HoldingType == "" {
		h.HoldingType = "stock"
	}
	return nil
}

// Invested is quantity times average buy price.
func (h InvestmentHolding) Invested() float64 {
	return h.Quantity.Value() * h.AvgBuyPrice.Value()
}

// Current is quantity times current price.
func (h InvestmentHolding) Current() float64 {
	return h.Quantity.Value() * h.CurrentPrice.Value()
}

// PortfolioTotals sums the holdings.
type PortfolioTotals struct {
	Invested float64 `json:"invested"`
	Current  float64 `json:"current"`
	Gain     float64 `json:"gain"`
}

// TotalPortfolio sums invested and current value across holdings.
func TotalPortfolio(holdings []InvestmentHolding) PortfolioTotals {
	var t PortfolioTotals
	for _, h := range holdings {
		t.Invested += h.Invested()
		t.Current += h.Current()
	}
	t.Gain = t.Current - t.Invested
	return t
}

// CSVImportResult is the response of POST /investment-holdings/import-csv.
type CSVImportResult struct {
	Count int `json:"count"`
}

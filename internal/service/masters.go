package service

import "github.com/ledgeros/console-bfa-go/internal/domain"

// Masters groups the plain CRUD pages: no arithmetic beyond what the
// server returns, just load, save and delete.
type Masters struct {
	Profiles      *Collection[domain.Profile]
	BankAccounts  *Collection[domain.BankAccount]
	CreditCards   *Collection[domain.CreditCard]
	FixedDeposits *Collection[domain.FixedDeposit]
	GoldHoldings  *Collection[domain.GoldHolding]
	GovSchemes    *Collection[domain.GovScheme]
	RealEstate    *Collection[domain.RealEstate]
	TaxDeductions *Collection[domain.TaxDeduction]
	Holdings      *Collection[domain.InvestmentHolding]
}

// Reset drops every master page snapshot.
func (m *Masters) Reset() {
	m.Profiles.Reset()
	m.BankAccounts.Reset()
	m.CreditCards.Reset()
	m.FixedDeposits.Reset()
	m.GoldHoldings.Reset()
	m.GovSchemes.Reset()
	m.RealEstate.Reset()
	m.TaxDeductions.Reset()
	m.Holdings.Reset()
}

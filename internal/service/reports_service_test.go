package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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

func newReportService(api *fakeReports) *service.ReportService {
	metrics := observability.NewMetrics()
	return service.NewReportService(api,
		snapshot.New[json.RawMessage](time.Minute, metrics),
		snapshot.New[*domain.IncomeExpense](time.Minute, metrics),
		metrics, zap.NewNop())
}

func TestReportPage_NetIncome(t *testing.T) {
	svc := newReportService(&fakeReports{incomeExpense: &domain.IncomeExpense{TotalIncome: 90000, TotalExpense: 35000}})

	page, err := svc.Page(context.Background(), domain.DateRange{})

	require.NoError(t, err)
	assert.Equal(t, 55000.0, page.Net)
	assert.JSONEq(t, `{"assets":{}}`, string(page.BalanceSheet))
}

func TestReportDashboard_FailureUsesFallback(t *testing.T) {
	svc := newReportService(&fakeReports{err: &domain.ErrExternalService{Service: "reports", Err: errors.New("refused")}})

	_, err := svc.Dashboard(context.Background())

	assert.EqualError(t, err, "Failed to load dashboard")
}

func TestTaxPage_DefaultsToCurrentFinancialYear(t *testing.T) {
	reports := &fakeReports{}
	deductions := &fakeResource[domain.TaxDeduction]{}
	svc := service.NewTaxService(newReportService(reports), newCollection("tax-deductions", deductions), zap.NewNop())

	page, err := svc.Page(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.FinancialYear(time.Now()), page.FinancialYear)

	page, err = svc.AddDeduction(context.Background(), &domain.TaxDeduction{FinancialYear: "2023-24", Amount: domain.NewFormNumber(150000)})
	require.NoError(t, err)
	assert.Equal(t, "2023-24", page.FinancialYear)
	require.Len(t, deductions.creates, 1)
	assert.Equal(t, "80C", deductions.creates[0].(*domain.TaxDeduction).Section)
	assert.Equal(t, []string{domain.FinancialYear(time.Now()), "2023-24"}, reports.years)
}

func TestExport_RejectsUnknownKind(t *testing.T) {
	api := &fakeExports{}
	svc := service.NewExportService(api, zap.NewNop())

	_, err := svc.Export(context.Background(), service.ExportRequest{Kind: "payslips"})

	var validation *domain.ErrValidation
	assert.True(t, errors.As(err, &validation))
	assert.Empty(t, api.kind)
}

func TestExport_CAReportCarriesFinancialYear(t *testing.T) {
	api := &fakeExports{}
	svc := service.NewExportService(api, zap.NewNop())

	dl, err := svc.Export(context.Background(), service.ExportRequest{Kind: domain.ExportCAReport, FinancialYear: "2024-25"})

	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, "ledgeros_ca_report_2024-25.xlsx", dl.FileName)
	assert.Equal(t, "2024-25", api.query.Get("financial_year"))
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(body))
}

func TestExport_TransactionsRange(t *testing.T) {
	api := &fakeExports{}
	svc := service.NewExportService(api, zap.NewNop())
	rng, err := domain.ParseDateRange("2024-04-01", "2024-06-30")
	require.NoError(t, err)

	dl, err := svc.Export(context.Background(), service.ExportRequest{Kind: domain.ExportTransactions, Range: rng})

	require.NoError(t, err)
	assert.Equal(t, "ledgeros_transactions.xlsx", dl.FileName)
	assert.Equal(t, "2024-04-01", api.query.Get("start_date"))
	assert.Equal(t, "2024-06-30", api.query.Get("end_date"))
	assert.Empty(t, api.query.Get("financial_year"))
}

package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Reports Handlers
// ============================================================

func reportsPageHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports")
		defer span.End()

		rng, err := dateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, err := svc.Page(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func dashboardHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/dashboard")
		defer span.End()

		body, err := svc.Dashboard(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func balanceSheetHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/balance-sheet")
		defer span.End()

		body, err := svc.BalanceSheet(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func incomeExpenseHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/income-expense")
		defer span.End()

		rng, err := dateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		report, err := svc.IncomeExpense(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// Tax planning
// ============================================================

func taxPageHandler(svc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tax")
		defer span.End()

		page, err := svc.Page(ctx, r.URL.Query().Get("financial_year"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func addDeductionHandler(svc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tax/deductions")
		defer span.End()

		var in domain.TaxDeduction
		if !decodeJSON(w, r, &in) {
			return
		}
		page, err := svc.AddDeduction(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, page)
	}
}

// ============================================================
// Exports
// ============================================================

func exportHandler(svc *service.ExportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/exports/{kind}")
		defer span.End()

		rng, err := dateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dl, err := svc.Export(ctx, service.ExportRequest{
			Kind:          domain.ExportKind(chi.URLParam(r, "kind")),
			Range:         rng,
			FinancialYear: r.URL.Query().Get("financial_year"),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		defer dl.Body.Close()

		w.Header().Set("Content-Type", dl.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, dl.Body); err != nil {
			logger.Warn("export stream interrupted", zap.String("file", dl.FileName), zap.Error(err))
		}
	}
}

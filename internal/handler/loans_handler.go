package handler

import (
	"net/http"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Loans Handlers
// ============================================================

func listLoansHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans")
		defer span.End()

		page, err := svc.Page(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func createLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans")
		defer span.End()

		var in domain.LoanInput
		if !decodeJSON(w, r, &in) {
			return
		}
		page, err := svc.Create(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, page)
	}
}

func updateLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/loans/{loanId}")
		defer span.End()

		var in domain.LoanInput
		if !decodeJSON(w, r, &in) {
			return
		}
		page, err := svc.Update(ctx, chi.URLParam(r, "loanId"), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func deleteLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/loans/{loanId}")
		defer span.End()

		page, deleted, err := svc.Delete(ctx, chi.URLParam(r, "loanId"), confirmed(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if !deleted {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func loanRepaymentHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans/repayment")
		defer span.End()

		var in domain.RepaymentInput
		if !decodeJSON(w, r, &in) {
			return
		}
		page, err := svc.Repay(ctx, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// ============================================================
// Portfolio Handlers
// ============================================================

func portfolioPageHandler(svc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/portfolio")
		defer span.End()

		page, err := svc.Page(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func portfolioImportHandler(svc *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/portfolio/import-csv")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Please choose a file")
			return
		}
		defer file.Close()

		n, page, err := svc.ImportCSV(ctx, r.FormValue("broker"), header.Filename, file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"imported":  n,
			"portfolio": page,
		})
	}
}

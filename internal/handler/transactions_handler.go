package handler

import (
	"net/http"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Transactions Handlers
// ============================================================
//
// Mutations carry the page's current filter in the query string so the
// refetched list matches what the user is looking at.

func listTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		filter, err := transactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, err := svc.Page(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{transactionId}")
		defer span.End()

		filter, err := transactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var edit domain.TransactionEdit
		if !decodeJSON(w, r, &edit) {
			return
		}
		page, err := svc.Update(ctx, chi.URLParam(r, "transactionId"), edit, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func deleteTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionId}")
		defer span.End()

		filter, err := transactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, deleted, err := svc.Delete(ctx, chi.URLParam(r, "transactionId"), confirmed(r), filter)
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

func bulkTagHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/bulk-tag")
		defer span.End()

		filter, err := transactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req struct {
			TransactionIDs []string `json:"transaction_ids"`
			CategoryID     string   `json:"category_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		page, err := svc.BulkTag(ctx, req.TransactionIDs, req.CategoryID, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func addEntryHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/entry")
		defer span.End()

		var in domain.EntryInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if err := svc.AddEntry(ctx, in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.SuccessResponse{Message: "Transaction added successfully"})
	}
}

func addTransferHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/transfer")
		defer span.End()

		var in domain.TransferInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if err := svc.AddTransfer(ctx, in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, domain.SuccessResponse{Message: "Transfer recorded successfully"})
	}
}

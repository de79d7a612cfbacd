package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ledgeros/console-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// sessionExpiredMessage is shown once, to the request whose upstream 401
// ended the session.
const sessionExpiredMessage = "Session expired. Please login again."

// loginPath is where the console sends the browser when the session is gone.
const loginPath = "/login"

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// confirmed reads ?confirm=true, the console's answer to "are you sure?".
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// transactionFilter reads the transactions page filters from the query.
func transactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	rng, err := domain.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	f := domain.TransactionFilter{
		AccountID:       q.Get("account_id"),
		CategoryID:      q.Get("category_id"),
		TransactionType: domain.TransactionType(q.Get("transaction_type")),
		StartDate:       rng.Start,
		EndDate:         rng.End,
	}
	if f.TransactionType != "" && !f.TransactionType.Valid() {
		return domain.TransactionFilter{}, &domain.ErrValidation{Field: "transaction_type", Message: "unknown transaction type"}
	}
	f.Untagged, _ = strconv.ParseBool(q.Get("untagged"))
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	return f, nil
}

func dateRange(r *http.Request) (domain.DateRange, error) {
	q := r.URL.Query()
	return domain.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var expired *domain.ErrSessionExpired
	var gone *domain.ErrSessionAlreadyExpired
	var unauthorized *domain.ErrUnauthorized
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var op *domain.ErrOperation
	var apiErr *domain.APIError
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &expired):
		logger.Warn("session expired")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: sessionExpiredMessage, Redirect: loginPath})
	case errors.As(err, &gone):
		logger.Debug("session already expired")
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unauthorized):
		logger.Debug("unauthorized", zap.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Redirect: loginPath})
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &op):
		status := http.StatusBadGateway
		switch {
		case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
			status = apiErr.Status
		case errors.As(err, &circuitOpen):
			status = http.StatusServiceUnavailable
		}
		logger.Warn("operation failed", zap.Int("status", status), zap.Error(op.Err))
		writeError(w, status, op.Message)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "LedgerOS is unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

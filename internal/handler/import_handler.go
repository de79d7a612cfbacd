package handler

import (
	"fmt"
	"net/http"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxUploadBytes caps a statement or broker CSV upload.
const maxUploadBytes = 20 << 20

// ============================================================
// Bank-statement import
// ============================================================

func importPageHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/import")
		defer span.End()

		page, err := svc.Page(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func importAccountHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PUT /v1/import/account")
		defer span.End()

		var req struct {
			AccountID string `json:"account_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		view, err := svc.SelectAccount(req.AccountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func importUploadHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import/upload")
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
		span.SetAttributes(attribute.Int64("file.size", header.Size))

		view, err := svc.Upload(ctx, header.Filename, file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func importSelectionHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/import/selection")
		defer span.End()

		var req struct {
			Action service.SelectAction `json:"action"`
			RowID  string               `json:"row_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		view, err := svc.Select(req.Action, req.RowID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func importTagHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import/rows/{rowId}/tag")
		defer span.End()

		var req domain.TagRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n, view, err := svc.Tag(ctx, chi.URLParam(r, "rowId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tagged":    n,
			"workspace": view,
		})
	}
}

func importDeleteRowHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/import/rows/{rowId}")
		defer span.End()

		view, err := svc.DeleteRow(chi.URLParam(r, "rowId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func importDeleteSelectedHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/import/rows")
		defer span.End()

		n, view, err := svc.DeleteSelected()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deleted":   n,
			"workspace": view,
		})
	}
}

func importClearHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "DELETE /v1/import")
		defer span.End()

		view, err := svc.Clear(confirmed(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func importCreateCategoryHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import/categories")
		defer span.End()

		var req struct {
			Name              string `json:"name"`
			CurrentCategoryID string `json:"current_category_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		created, err := svc.CreateCategory(ctx, req.Name, req.CurrentCategoryID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func importSaveHandler(svc *service.ImportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import/save")
		defer span.End()

		n, err := svc.Save(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"saved":   n,
			"message": fmt.Sprintf("Saved %d transactions", n),
		})
	}
}

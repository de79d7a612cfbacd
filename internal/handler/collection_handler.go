package handler

import (
	"net/http"

	"github.com/ledgeros/console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Generic CRUD pages
// ============================================================

// form is what a collection's create and edit bodies decode into: a
// pointer to the record type that can validate itself.
type form[T any] interface {
	*T
	service.Validator
}

// mountCollection serves one CRUD page under /{name}.
func mountCollection[T any, PT form[T]](r chi.Router, c *service.Collection[T], logger *zap.Logger) {
	base := "/" + c.Name()
	r.Route(base, func(r chi.Router) {
		r.Get("/", listHandler(c, logger))
		r.Post("/", createHandler[T, PT](c, logger))
		r.Put("/{id}", updateHandler[T, PT](c, logger))
		r.Delete("/{id}", deleteHandler(c, logger))
	})
}

func listHandler[T any](c *service.Collection[T], logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/"+c.Name())
		defer span.End()

		items, err := c.Load(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func createHandler[T any, PT form[T]](c *service.Collection[T], logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/"+c.Name())
		defer span.End()

		in := PT(new(T))
		if !decodeJSON(w, r, in) {
			return
		}
		items, err := c.Create(ctx, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, items)
	}
}

func updateHandler[T any, PT form[T]](c *service.Collection[T], logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/"+c.Name()+"/{id}")
		defer span.End()

		in := PT(new(T))
		if !decodeJSON(w, r, in) {
			return
		}
		items, err := c.Update(ctx, chi.URLParam(r, "id"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// deleteHandler answers an unconfirmed delete with 204 and no upstream call.
func deleteHandler[T any](c *service.Collection[T], logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/"+c.Name()+"/{id}")
		defer span.End()

		items, deleted, err := c.Delete(ctx, chi.URLParam(r, "id"), confirmed(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if !deleted {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

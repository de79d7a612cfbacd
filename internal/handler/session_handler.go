package handler

import (
	"net/http"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Session gate
// ============================================================

func sessionStatusHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/session")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.StatusFor(ctx, bearerToken(r)))
	}
}

func sessionSetupHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/setup")
		defer span.End()

		var form domain.SetupForm
		if !decodeJSON(w, r, &form) {
			return
		}
		login, err := svc.Setup(ctx, form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, login)
	}
}

func sessionLoginHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/login")
		defer span.End()

		var form domain.LoginForm
		if !decodeJSON(w, r, &form) {
			return
		}
		login, err := svc.Login(ctx, form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, login)
	}
}

func sessionLogoutHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/logout")
		defer span.End()

		if claims := ClaimsFromContext(ctx); claims != nil {
			logger.Debug("console logout", zap.Uint64("generation", claims.Gen))
		}
		svc.Logout(ctx)
		w.WriteHeader(http.StatusNoContent)
	}
}

func changePasswordHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/change-password")
		defer span.End()

		var form domain.ChangePasswordForm
		if !decodeJSON(w, r, &form) {
			return
		}
		if err := svc.ChangePassword(ctx, form); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Password changed successfully"})
	}
}

func resetAllDataHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/reset-all-data")
		defer span.End()

		var form domain.ResetForm
		if !decodeJSON(w, r, &form) {
			return
		}
		if err := svc.ResetAllData(ctx, form); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "All data has been reset"})
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/validation"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody reads a JSON body into dst and validates its tags.
func decodeBody(r *http.Request, v *validation.Validator, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return v.Struct(dst)
}

// parseYear reads ?year=. Absent means zero, the current year.
func parseYear(r *http.Request, v *validation.Validator) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ErrValidation{Field: "year", Message: "must be a number"}
	}
	if err := v.Var(year, "min=1970,max=9999"); err != nil {
		return 0, &domain.ErrValidation{Field: "year", Message: "must be between 1970 and 9999"}
	}
	return year, nil
}

// handleServiceError maps domain errors to HTTP responses.
// A refusal that is both unauthorized and an invalid transition answers 403.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validationErr *domain.ErrValidation
	var invalidStatus *domain.ErrInvalidStatus
	var unauthenticated *domain.ErrUnauthenticated
	var unauthorized *domain.ErrUnauthorized
	var transition *domain.ErrInvalidStateTransition
	var malformed *domain.ErrMalformedRecord
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &unauthenticated):
		logger.Warn("unauthenticated", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, unauthenticated.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, unauthorized.Error())
	case errors.As(err, &invalidStatus):
		logger.Debug("invalid status", zap.String("status", invalidStatus.Status))
		writeError(w, http.StatusBadRequest, invalidStatus.Error())
	case errors.As(err, &validationErr):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &transition):
		logger.Debug("invalid transition",
			zap.String("from", string(transition.From)),
			zap.String("to", string(transition.To)),
		)
		writeError(w, http.StatusConflict, transition.Error())
	case errors.As(err, &malformed):
		logger.Warn("malformed record", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, malformed.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, circuitOpen.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, timeout.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream "+external.Service+" request failed")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

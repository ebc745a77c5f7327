package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// rejectionReason classifies a lifecycle refusal for metrics. Joined errors
// report the first class found.
func rejectionReason(err error) string {
	var (
		invalidStatus *domain.ErrInvalidStatus
		unauthorized  *domain.ErrUnauthorized
		transition    *domain.ErrInvalidStateTransition
		malformed     *domain.ErrMalformedRecord
		validation    *domain.ErrValidation
	)
	switch {
	case errors.As(err, &invalidStatus):
		return "invalid_status"
	case errors.As(err, &unauthorized):
		return "unauthorized"
	case errors.As(err, &transition):
		return "invalid_transition"
	case errors.As(err, &malformed):
		return "malformed_record"
	case errors.As(err, &validation):
		return "validation"
	}
	return ""
}

// isUpstreamFailure reports whether err came from the CRM API being unhealthy
// rather than from the request itself.
func isUpstreamFailure(err error) bool {
	var (
		ext     *domain.ErrExternalService
		open    *domain.ErrCircuitOpen
		timeout *domain.ErrTimeout
	)
	return errors.As(err, &ext) || errors.As(err, &open) || errors.As(err, &timeout)
}

// logFailure logs err at Error for upstream failures, Warn for authorization
// failures and Debug for everything the caller got wrong.
func logFailure(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	var (
		unauthorized    *domain.ErrUnauthorized
		unauthenticated *domain.ErrUnauthenticated
	)
	switch {
	case isUpstreamFailure(err):
		logger.Error(msg, fields...)
	case errors.As(err, &unauthorized), errors.As(err, &unauthenticated):
		logger.Warn(msg, fields...)
	default:
		logger.Debug(msg, fields...)
	}
}

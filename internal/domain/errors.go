package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the console gateway.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a transport-level failure talking to the LedgerOS API.
// No server message is available for these.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates there is no usable session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrSessionExpired is returned to the one caller whose 401 response
// cleared the live session.
type ErrSessionExpired struct{}

func (e *ErrSessionExpired) Error() string {
	return "Session expired. Please login again."
}

// ErrSessionAlreadyExpired is returned to callers whose 401 arrived for a
// token that another call had already expired. Only ErrSessionExpired
// carries the redirect.
type ErrSessionAlreadyExpired struct{}

func (e *ErrSessionAlreadyExpired) Error() string {
	return "Session expired"
}

// ErrConflict indicates the operation is not allowed in the current state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// APIError is a non-2xx, non-401 response from the LedgerOS API.
// Detail carries the server's human-readable message when it sent one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("ledgeros api returned status %d", e.Status)
}

// UserMessage returns the server detail when present, else fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	var validation *ErrValidation
	if errors.As(err, &validation) {
		return validation.Message
	}
	return fallback
}

// ErrOperation is a failed user operation. Message is what the console
// shows: the server detail when there was one, else the operation's
// fallback text.
type ErrOperation struct {
	Message string
	Err     error
}

func (e *ErrOperation) Error() string {
	return e.Message
}

func (e *ErrOperation) Unwrap() error {
	return e.Err
}

// Failed wraps err with the message for a failed operation. Session,
// validation and conflict errors already read well and pass through.
func Failed(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var (
		expired    *ErrSessionExpired
		gone       *ErrSessionAlreadyExpired
		unauth     *ErrUnauthorized
		validation *ErrValidation
		conflict   *ErrConflict
		op         *ErrOperation
	)
	switch {
	case errors.As(err, &expired), errors.As(err, &gone), errors.As(err, &unauth),
		errors.As(err, &validation), errors.As(err, &conflict), errors.As(err, &op):
		return err
	}
	return &ErrOperation{Message: UserMessage(err, fallback), Err: err}
}

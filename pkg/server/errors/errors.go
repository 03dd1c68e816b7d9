// Package errors contains the typed errors the server returns to HTTP
// clients. Every error carries a machine-readable code and the HTTP
// status it maps to; handlers convert them with Status and Code.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/galleria-app/galleria/pkg/storage"
)

const InternalServerErrorMsg = "Internal Server Error"

// Error codes returned in the "error" field of error response bodies.
const (
	CodeValidationError       = "validation_error"
	CodeUnauthenticated       = "unauthenticated"
	CodeForbidden             = "forbidden"
	CodeNotFound              = "not_found"
	CodeAlreadyExists         = "already_exists"
	CodeDuplicateRegistration = "duplicate_registration"
	CodeCapacityExceeded      = "capacity_exceeded"
	CodeWindowClosed          = "window_closed"
	CodeInternalError         = "internal_error"
)

// ServerError is the error type all handlers return to the transport
// layer. Message is safe to show to clients.
type ServerError struct {
	HTTPStatus int
	ErrorCode  string
	Message    string
	internal   error
}

func (e *ServerError) Error() string {
	return e.Message
}

// Unwrap exposes the internal cause for errors.Is checks and logging.
func (e *ServerError) Unwrap() error {
	return e.internal
}

// Internal returns the underlying cause, which must never be sent to
// clients.
func (e *ServerError) Internal() error {
	return e.internal
}

func NewValidationError(param, reason string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusBadRequest,
		ErrorCode:  CodeValidationError,
		Message:    fmt.Sprintf("Invalid value for '%s': %s", param, reason),
	}
}

func NewUnauthenticatedError(reason string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusUnauthorized,
		ErrorCode:  CodeUnauthenticated,
		Message:    reason,
	}
}

func NewForbiddenError(resource string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusForbidden,
		ErrorCode:  CodeForbidden,
		Message:    fmt.Sprintf("You do not have permission to modify this %s", resource),
	}
}

func NewNotFoundError(resource, id string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusNotFound,
		ErrorCode:  CodeNotFound,
		Message:    fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

func NewAlreadyExistsError(resource string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusConflict,
		ErrorCode:  CodeAlreadyExists,
		Message:    fmt.Sprintf("%s already exists", resource),
	}
}

func NewDuplicateRegistrationError(tournamentID string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusConflict,
		ErrorCode:  CodeDuplicateRegistration,
		Message:    fmt.Sprintf("You are already registered for tournament '%s'", tournamentID),
	}
}

func NewCapacityExceededError(tournamentID string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusConflict,
		ErrorCode:  CodeCapacityExceeded,
		Message:    fmt.Sprintf("Tournament '%s' is full", tournamentID),
	}
}

func NewWindowClosedError(tournamentID string) *ServerError {
	return &ServerError{
		HTTPStatus: http.StatusConflict,
		ErrorCode:  CodeWindowClosed,
		Message:    fmt.Sprintf("Tournament '%s' is not accepting entries", tournamentID),
	}
}

func NewInternalError(public string, internal error) *ServerError {
	if public == "" {
		public = InternalServerErrorMsg
	}
	return &ServerError{
		HTTPStatus: http.StatusInternalServerError,
		ErrorCode:  CodeInternalError,
		Message:    public,
		internal:   internal,
	}
}

// HandleError converts an error coming out of the command layer into a
// ServerError. Storage sentinels that escaped command-level mapping are
// treated as internal errors so no storage detail leaks to clients.
func HandleError(err error) *ServerError {
	var serverError *ServerError
	if errors.As(err, &serverError) {
		return serverError
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &ServerError{
			HTTPStatus: http.StatusNotFound,
			ErrorCode:  CodeNotFound,
			Message:    "Not found",
		}
	case errors.Is(err, storage.ErrCancelled):
		return &ServerError{
			HTTPStatus: 499,
			ErrorCode:  "request_cancelled",
			Message:    "Request cancelled",
		}
	default:
		return NewInternalError("", err)
	}
}

// FilePath: internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Sync pipeline error types
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeProtocol       ErrorType = "protocol"
	ErrorTypeDecode         ErrorType = "decode"
	ErrorTypeSchemaMismatch ErrorType = "schema_mismatch"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypePersistence    ErrorType = "persistence"

	// Status API error types
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError is the single structured error used throughout the sync pipeline
// and the status API.
type AppError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	Op        string    `json:"op,omitempty"`
	EntityID  int64     `json:"entity_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := string(e.Type)
	if e.Op != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Op)
	}
	if e.EntityID != 0 {
		prefix = fmt.Sprintf("%s entity=%d", prefix, e.EntityID)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.err
}

// WithOp records the operation during which the error happened
func (e *AppError) WithOp(op string) *AppError {
	e.Op = op
	return e
}

// WithEntity records the remote entity the error belongs to
func (e *AppError) WithEntity(id int64) *AppError {
	e.EntityID = id
	return e
}

// WithRequestID adds a request ID to the error
func (e *AppError) WithRequestID(id string) *AppError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func newError(t ErrorType, code int, msg string, err error) *AppError {
	return &AppError{Type: t, Message: msg, Code: code, err: err}
}

// NewTransportError is returned when a remote endpoint could not be reached.
func NewTransportError(msg string, err error) *AppError {
	return newError(ErrorTypeTransport, http.StatusBadGateway, msg, err)
}

// NewProtocolError is returned for non-2xx responses. The status is kept in Details.
func NewProtocolError(msg string, status int) *AppError {
	return newError(ErrorTypeProtocol, http.StatusBadGateway, msg, nil).WithDetails(map[string]int{"status": status})
}

// NewDecodeError is returned when a payload cannot be parsed.
func NewDecodeError(msg string, err error) *AppError {
	return newError(ErrorTypeDecode, http.StatusBadGateway, msg, err)
}

// NewSchemaMismatchError is returned when a record carries an attribute outside the vocabulary.
func NewSchemaMismatchError(msg string, err error) *AppError {
	return newError(ErrorTypeSchemaMismatch, http.StatusUnprocessableEntity, msg, err)
}

// NewConfigurationError is returned when configuration is missing or inconsistent.
func NewConfigurationError(msg string, err error) *AppError {
	return newError(ErrorTypeConfiguration, http.StatusInternalServerError, msg, err)
}

// NewPersistenceError wraps database failures.
func NewPersistenceError(msg string, err error) *AppError {
	return newError(ErrorTypePersistence, http.StatusInternalServerError, msg, err)
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, msg, err)
}

// NewAuthError creates a new authentication error
func NewAuthError(msg string, err error) *AppError {
	return newError(ErrorTypeAuth, http.StatusUnauthorized, msg, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, msg, err)
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, msg, err)
}

// Annotate records op and entity on the AppError in err's chain, keeping
// values that are already set. Errors without an AppError become
// persistence errors.
func Annotate(err error, op string, entityID int64) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return NewPersistenceError(op+" failed", err).WithOp(op).WithEntity(entityID)
	}
	if appErr.Op == "" {
		appErr.Op = op
	}
	if appErr.EntityID == 0 {
		appErr.EntityID = entityID
	}
	return err
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	return Is(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	return Is(err, ErrorTypeValidation)
}

// IsConfiguration checks if an error is a Configuration error
func IsConfiguration(err error) bool {
	return Is(err, ErrorTypeConfiguration)
}

// StatusOf returns the HTTP status carried by the error chain, defaulting to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

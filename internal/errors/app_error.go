package errors

import (
	"fmt"
	"maps"
)

// AppError is a classified failure. It unwraps to its kind's sentinel and to the
// underlying cause, so errors.Is works against both.
type AppError struct {
	Kind       Kind
	Message    string
	Code       string
	StatusCode int
	Details    map[string]any
	Err        error
}

// NewAppError creates an AppError of the given kind.
func NewAppError(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Sentinel().Error()
	}
	if e.Err != nil && e.Err.Error() != msg {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes the kind sentinel and the cause.
func (e *AppError) Unwrap() []error {
	errs := []error{e.Kind.Sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// WithCode sets the machine-readable code and returns the receiver.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithStatus sets the HTTP status code and returns the receiver.
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

// WithDetail adds a single detail entry and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// Normalize converts any error into an AppError. AppErrors found in the chain are
// returned as-is; everything else is classified with KindOf and wrapped.
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Kind:    KindOf(err),
		Message: err.Error(),
		Err:     err,
	}
}

// NewStorageError wraps a backend failure into a STORAGE_ERROR.
func NewStorageError(operation string, cause error) *AppError {
	return NewAppError(KindStorage, "storage operation failed").
		WithCause(cause).
		WithDetail("operation", operation)
}

// NewStorageParseError wraps a JSON decoding failure of a persisted value.
func NewStorageParseError(key string, cause error) *AppError {
	return NewAppError(KindStorageParse, "stored value is corrupt").
		WithCause(cause).
		WithDetail("key", key)
}

// NewValidationError wraps a validation failure into a VALIDATION_ERROR.
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(KindValidation, message).WithCause(cause)
}

package domain

import "fmt"

// Error types for consistent error handling across the storefront BFF.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
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
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an invalid or expired access token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrNotAuthenticated is returned when a mutating cart or profile operation
// runs without a signed-in identity. Nothing has been changed when it is
// returned; the caller should prompt the user to sign in.
type ErrNotAuthenticated struct {
	Operation string
}

func (e *ErrNotAuthenticated) Error() string {
	return fmt.Sprintf("please sign in to %s", e.Operation)
}

// ErrMalformedData indicates a stored record could not be decoded.
type ErrMalformedData struct {
	Key string
	Err error
}

func (e *ErrMalformedData) Error() string {
	return fmt.Sprintf("malformed data under %q: %v", e.Key, e.Err)
}

func (e *ErrMalformedData) Unwrap() error {
	return e.Err
}

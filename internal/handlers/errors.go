package handlers

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuth                 = errors.New("unauthorized")
	ErrValidation           = errors.New("invalid request")
	ErrNotFound             = errors.New("order not found")
	ErrUnsupportedOperation = errors.New("method not allowed")
	ErrConflict             = errors.New("request with this idempotency key is in progress")
	ErrInternal             = errors.New("internal server error")
)

// StorageError is a failure reported by the order or idempotency store.
// Status 0 means the backend never answered.
type StorageError struct {
	Status int
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (status %d): %v", e.Status, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StatusCode maps an error from the taxonomy above to an HTTP status.
func StatusCode(err error) int {
	var se *StorageError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsupportedOperation):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.As(err, &se) && se.Status >= 400:
		return se.Status
	}
	return http.StatusInternalServerError
}

// outcomeError describes a non-success operation status for logging.
func outcomeError(status int, message string) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrInternal, message)
	}
	return &StorageError{Status: status, Err: errors.New(message)}
}

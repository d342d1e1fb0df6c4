package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the request conflicts with the current state of a resource.
var ErrConflict = errors.New("resource state conflict")

// ErrConcurrencyConflict indicates an append lost an optimistic concurrency race.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrInternal indicates an unexpected failure inside the service.
var ErrInternal = errors.New("internal error")

// ErrUnavailable indicates a backing store or broker could not be reached in time.
var ErrUnavailable = errors.New("dependency unavailable")

// AppError carries an HTTP-ish status code next to the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind classifies errors so callers can decide between retrying, reporting and alerting.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindState
	KindConcurrency
	KindNotFound
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindConcurrency:
		return "concurrency"
	case KindNotFound:
		return "not_found"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// kinded is implemented by errors that know their own category.
type kinded interface {
	Kind() Kind
}

// KindOf walks the error chain and returns the first category it finds.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrency
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate):
		return KindState
	case errors.Is(err, ErrUnavailable):
		return KindInfrastructure
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch {
		case appErr.Code >= http.StatusInternalServerError:
			return KindInfrastructure
		case appErr.Code == http.StatusNotFound:
			return KindNotFound
		case appErr.Code == http.StatusConflict:
			return KindState
		case appErr.Code >= http.StatusBadRequest:
			return KindValidation
		}
	}
	return KindUnknown
}

// IsInfrastructure reports whether err came from a store, broker or timeout.
func IsInfrastructure(err error) bool {
	return KindOf(err) == KindInfrastructure
}

// ConcurrencyError reports the stream and versions of a lost optimistic concurrency race.
type ConcurrencyError struct {
	StreamID string
	Expected int64
	Actual   int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency conflict on stream %s: expected version %d, actual %d", e.StreamID, e.Expected, e.Actual)
}

func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

func (e *ConcurrencyError) Kind() Kind {
	return KindConcurrency
}

// NewConcurrencyError creates a ConcurrencyError.
func NewConcurrencyError(streamID string, expected, actual int64) *ConcurrencyError {
	return &ConcurrencyError{StreamID: streamID, Expected: expected, Actual: actual}
}

// InfraError wraps a store, broker or timeout failure with enough context to diagnose it.
type InfraError struct {
	Op          string
	TenantID    string
	AggregateID string
	Err         error
}

func (e *InfraError) Error() string {
	msg := e.Op
	if e.TenantID != "" {
		msg += " tenant=" + e.TenantID
	}
	if e.AggregateID != "" {
		msg += " aggregate=" + e.AggregateID
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

func (e *InfraError) Kind() Kind {
	return KindInfrastructure
}

// NewInfraError wraps err unless it already carries a more specific category
// (a lost concurrency race or a missing record stays what it is).
func NewInfraError(op, tenantID, aggregateID string, err error) error {
	if err == nil {
		return nil
	}
	switch KindOf(err) {
	case KindConcurrency, KindNotFound, KindValidation, KindState:
		return err
	}
	return &InfraError{Op: op, TenantID: tenantID, AggregateID: aggregateID, Err: err}
}

// HTTPStatus maps an error to the status code the transport layer should answer with.
// An AppError anywhere in the chain keeps its own code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code > 0 {
		return appErr.Code
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindState, KindConcurrency:
		return http.StatusConflict
	case KindInfrastructure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	ErrProfileNotFound = errors.New("profile not found")
	ErrPaymentNotFound = errors.New("payment record not found")

	// ErrGatewayUnavailable means the gateway access credential is not configured.
	ErrGatewayUnavailable = errors.New("payment gateway credential not configured")
	// ErrMalformedNotification is returned for webhook bodies without a usable payment id.
	ErrMalformedNotification = errors.New("malformed notification")
	ErrInvalidSignature      = errors.New("invalid webhook signature")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrRateLimited     = errors.New("too many requests")
	ErrLockNotAcquired = errors.New("lock not acquired")
)

type ValidationKind string

const (
	MissingField    ValidationKind = "MissingField"
	InvalidEmail    ValidationKind = "InvalidEmail"
	InvalidAmount   ValidationKind = "InvalidAmount"
	InvalidQuantity ValidationKind = "InvalidQuantity"

	InvalidParameter ValidationKind = "InvalidParameter"
)

// ValidationError is the caller's fault: rendered as 400 and never retried.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

// GatewayError wraps any non-2xx answer or transport failure from the payment gateway.
// StatusCode is 0 when no HTTP response was received (timeouts included).
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s: http %d", e.Op, e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ReconciliationError marks an authoritative payment detail that failed validation.
// It points at a contract change or tampering, so it is not retried by re-fetching.
type ReconciliationError struct {
	PaymentID string
	Reason    string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile payment %s: %s", e.PaymentID, e.Reason)
}

// ApplyError is a failed membership write after the payment was durably recorded.
type ApplyError struct {
	PayerID   string
	PaymentID string
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("extend membership payer=%s payment=%s: %v", e.PayerID, e.PaymentID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

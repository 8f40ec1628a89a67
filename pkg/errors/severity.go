// Package errors provides severity-aware error types.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// QuoteError is a structured error raised at the edges of the pricing core:
// configuration loading, collaborator stores and request decoding.
type QuoteError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Field       string   `json:"field,omitempty"`
	Recoverable bool     `json:"recoverable"`
	Err         error    `json:"-"`
}

func (e *QuoteError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s (field: %s)", e.Severity, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// Error codes
const (
	ErrCodeInvalidRateCard  = "INVALID_RATE_CARD"
	ErrCodeSnapshotNotFound = "SNAPSHOT_NOT_FOUND"
	ErrCodeContractLookup   = "CONTRACT_LOOKUP_FAILED"
	ErrCodeSurgeLookup      = "SURGE_LOOKUP_FAILED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
)

// NewInvalidRateCardError reports a rate card value that cannot be used.
func NewInvalidRateCardError(field, reason string) *QuoteError {
	return &QuoteError{
		Code:        ErrCodeInvalidRateCard,
		Message:     reason,
		Severity:    SeverityError,
		Field:       field,
		Recoverable: false,
	}
}

// NewSnapshotNotFoundError reports a missing rate card snapshot.
func NewSnapshotNotFoundError(ref string) *QuoteError {
	return &QuoteError{
		Code:        ErrCodeSnapshotNotFound,
		Message:     fmt.Sprintf("No rate card snapshot found: %s", ref),
		Severity:    SeverityError,
		Recoverable: false,
	}
}

// NewLookupError wraps a failed collaborator lookup. Lookups are always
// recoverable: the caller prices without the missing signal.
func NewLookupError(code, subject string, err error) *QuoteError {
	return &QuoteError{
		Code:        code,
		Message:     fmt.Sprintf("lookup failed for %s: %v", subject, err),
		Severity:    SeverityWarning,
		Recoverable: true,
		Err:         err,
	}
}

// NewInvalidRequestError reports an undecodable request body.
func NewInvalidRequestError(err error) *QuoteError {
	return &QuoteError{
		Code:        ErrCodeInvalidRequest,
		Message:     err.Error(),
		Severity:    SeverityError,
		Recoverable: false,
		Err:         err,
	}
}

// CodeOf returns the code of the first QuoteError in err's chain.
func CodeOf(err error) string {
	var qe *QuoteError
	if stderrors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

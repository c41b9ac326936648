package usecase

import "fmt"

// Error codes, matching the failure kinds of the reconciliation engine.
const (
	CodeConfigMissing     = "CONFIG_MISSING"
	CodeExternalCall      = "EXTERNAL_CALL"
	CodeMalformedState    = "MALFORMED_STATE"
	CodeInvalidCallback   = "INVALID_CALLBACK"
	CodeUnmatchedCallback = "UNMATCHED_CALLBACK"
)

// DomainError is an expected business condition (invalid callback, nothing
// to charge). Callers branch on it; it is never retried.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}

// TechnicalError is an infrastructure failure (CRM or gateway unreachable,
// non-2xx). Wrapped around the cause so errors.Is/As keep working; the
// retry policy treats these as transient.
type TechnicalError struct {
	Code    string
	Message string
	Cause   error
}

func (e *TechnicalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Cause
}

func NewTechnicalError(code, message string, cause error) *TechnicalError {
	return &TechnicalError{Code: code, Message: message, Cause: cause}
}

func IsTechnicalError(err error) bool {
	_, ok := err.(*TechnicalError)
	return ok
}

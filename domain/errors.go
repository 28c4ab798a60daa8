package domain

import "errors"

// Failure taxonomy for a conversation turn. Adapters wrap provider errors
// into one of these so the gateway and the companion can branch on kind
// without knowing the provider.
var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrUpstream    = errors.New("upstream failure")
)

// ValidationError rejects a malformed request before any upstream call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

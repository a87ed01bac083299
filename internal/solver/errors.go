package solver

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while solving.
//
// Runtime errors include:
//   - Quota exceeded: generation produced more Solutions than allowed
//   - Closure limit: the type closure grew past its bound
//   - Unknown node: an edge names a handle no node declares
//   - Cancelled: the caller's context ended the solve
//
// Policy violations (leaks, type and capability errors) are never runtime
// errors; they are reported as Feedback.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates generation exceeded the solution quota.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeClosureLimit indicates the type closure exceeded its bound.
	ErrCodeClosureLimit RuntimeErrorCode = "CLOSURE_LIMIT"

	// ErrCodeUnknownNode indicates an edge references an undeclared node.
	ErrCodeUnknownNode RuntimeErrorCode = "UNKNOWN_NODE"

	// ErrCodeCancelled indicates the context was cancelled mid-solve.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and QuotaExceededError.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded) || IsQuotaExceededError(err)
}

// IsClosureLimitError returns true if the error is a closure limit error.
func IsClosureLimitError(err error) bool {
	return hasCode(err, ErrCodeClosureLimit)
}

// IsUnknownNodeError returns true if the error is an unknown node error.
func IsUnknownNodeError(err error) bool {
	return hasCode(err, ErrCodeUnknownNode)
}

// IsCancelledError returns true if the solve was cancelled.
func IsCancelledError(err error) bool {
	return hasCode(err, ErrCodeCancelled)
}

// NewClosureLimitError creates a RuntimeError for an oversized closure.
func NewClosureLimitError(types, maxTypes int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeClosureLimit,
		Message: fmt.Sprintf("type closure exceeded %d known types (%d)", maxTypes, types),
		Details: map[string]string{
			"types":     fmt.Sprintf("%d", types),
			"max_types": fmt.Sprintf("%d", maxTypes),
		},
	}
}

// NewFactLimitError creates a RuntimeError for a closure that derived
// more Subtype facts than its bound allows.
func NewFactLimitError(facts, maxFacts, maxTypes int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeClosureLimit,
		Message: fmt.Sprintf("type closure exceeded %d subtype facts (%d)", maxFacts, facts),
		Details: map[string]string{
			"facts":     fmt.Sprintf("%d", facts),
			"max_facts": fmt.Sprintf("%d", maxFacts),
			"max_types": fmt.Sprintf("%d", maxTypes),
		},
	}
}

// NewUnknownNodeError creates a RuntimeError for an edge endpoint that is
// not a declared node.
func NewUnknownNodeError(handle string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownNode,
		Message: fmt.Sprintf("edge references undeclared node %q", handle),
		Details: map[string]string{"node": handle},
	}
}

// NewCancelledError wraps a context error.
func NewCancelledError(cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCancelled,
		Message: fmt.Sprintf("solve cancelled: %v", cause),
	}
}

package solver

import (
	"errors"
	"fmt"
)

// SolutionQuota tracks how many Solutions generation has produced and
// enforces an upper bound.
//
// Generation is exponential in the number of admissible edges. The quota
// turns a runaway enumeration into an error instead of exhausting memory.
// A limit of zero or less disables the check.
type SolutionQuota struct {
	limit   int
	current int
}

// NewSolutionQuota creates a quota with the given limit.
func NewSolutionQuota(limit int) *SolutionQuota {
	return &SolutionQuota{limit: limit}
}

// Check counts one more Solution and validates it against the limit.
func (q *SolutionQuota) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &QuotaExceededError{Solutions: q.current, Limit: q.limit}
	}
	return nil
}

// Current returns the number of Solutions counted so far.
func (q *SolutionQuota) Current() int {
	return q.current
}

// Limit returns the configured limit.
func (q *SolutionQuota) Limit() int {
	return q.limit
}

// QuotaExceededError is returned when generation exceeds the quota.
// It aborts the solve; partial results are discarded.
type QuotaExceededError struct {
	Solutions int
	Limit     int
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("solution quota exceeded: %d solutions > %d limit", e.Solutions, e.Limit)
}

// IsQuotaExceededError returns true if the error is a QuotaExceededError.
func IsQuotaExceededError(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

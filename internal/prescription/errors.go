package prescription

import (
	"errors"
	"fmt"
	"time"

	"guidance-desk/internal/weekly"
)

var (
	// ErrIssueRequired rejects empty issue text before the gate is consulted.
	ErrIssueRequired = errors.New("issue description is required")
	// ErrUpstream wraps generation failures and unusable model output. The quota is untouched.
	ErrUpstream = errors.New("prescription generation failed")
	// ErrPersistence wraps log read/write failures.
	ErrPersistence = errors.New("prescription log unavailable")
)

// QuotaExceededError is returned when this week's prescription already exists.
type QuotaExceededError struct {
	Decision weekly.Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("a prescription was already created for week %s; next available %s",
		e.Decision.Week.Key(), e.Decision.NextAvailableAt.Format(time.RFC3339))
}

// RetryAfter is the wait until the next weekly window opens.
func (e *QuotaExceededError) RetryAfter() time.Duration {
	left := e.Decision.NextAvailableAt.Sub(e.Decision.Now)
	if left < 0 {
		return 0
	}
	return left
}

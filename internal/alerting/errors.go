package alerting

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned when rate-limit backoff exceeds its budget.
var ErrRetriesExhausted = errors.New("notification retries exhausted")

// RateLimitError reports a send rejected by flood control. The channel asks
// the caller to wait RetryAfter before sending again.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// DeliveryError reports any other failed send.
type DeliveryError struct {
	StatusCode  int
	Description string
	Err         error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("deliver message: %v", e.Err)
	case e.Description != "":
		return fmt.Sprintf("deliver message: status %d: %s", e.StatusCode, e.Description)
	default:
		return fmt.Sprintf("deliver message: status %d", e.StatusCode)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

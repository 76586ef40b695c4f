package resilience

import (
	"context"
	"errors"
)

// ClassifyBackendError is the default classifier for outbound backend calls.
// Caller cancellation never retries and never trips the breaker; transport
// failures do both.
func ClassifyBackendError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

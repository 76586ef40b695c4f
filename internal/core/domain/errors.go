package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable marks connectivity or timeout failures of the
	// embedding provider, vector index, structured store, or the LLM.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrMalformedModelOutput marks a classification or filter-translation
	// response that does not parse to the expected shape.
	ErrMalformedModelOutput = errors.New("malformed model output")

	// ErrInvalidFilterField marks a predicate referencing a field outside
	// the fixed schema. Always recovered locally by discarding the filter.
	ErrInvalidFilterField = errors.New("invalid filter field")

	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

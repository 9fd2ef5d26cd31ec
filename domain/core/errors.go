package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors: terminal for the run, never retried
	ErrEmptyDataset            = errors.New("dataset contains no rows")
	ErrInsufficientRows        = errors.New("dataset must contain at least 2 rows")
	ErrNoNumericColumns        = errors.New("dataset contains no numeric columns")
	ErrInvalidIdentifierColumn = errors.New("identifier column not present in dataset")

	// Analysis errors
	ErrNoAnalyzableData = errors.New("no chunk produced an analyzable result")

	// Transient external-service errors: retried with fixed backoff
	ErrRateLimited     = errors.New("external service rate limit")
	ErrExternalService = errors.New("external service failure")

	// Not found errors
	ErrNotFound = errors.New("resource not found")
)

// NewNotFoundError builds a not-found error with the resource and id attached.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsInputError reports whether err is a terminal input-validation error.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrInsufficientRows) ||
		errors.Is(err, ErrNoNumericColumns) ||
		errors.Is(err, ErrInvalidIdentifierColumn)
}

// IsRetryable reports whether err is a transient external-service error.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrExternalService)
}

// IsNotFoundError reports whether err wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

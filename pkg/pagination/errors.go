package pagination

import (
	"errors"
	"fmt"
)

// Common errors returned by the controller.
var (
	// ErrAlreadyInitialized is returned when Initialize runs more than once.
	ErrAlreadyInitialized = errors.New("controller already initialized")

	// ErrUnexpectedBatch is returned when a result does not match the outstanding fetch.
	ErrUnexpectedBatch = errors.New("unexpected batch")

	// ErrFetchFailed marks a failed batch attempt.
	ErrFetchFailed = errors.New("fetch failed")
)

// FetchError records a failed attempt to fetch a single page.
// The failure is scoped to that attempt; the same page is fetched again on the
// next request.
type FetchError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("fetch page %d failed", e.Page)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes every FetchError match ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

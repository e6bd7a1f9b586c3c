package pagination

import (
	"errors"
	"testing"
)

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name:     "with cause",
			err:      &FetchError{Page: 3, Err: errors.New("timeout")},
			expected: "fetch page 3: timeout",
		},
		{
			name:     "without cause",
			err:      &FetchError{Page: 1},
			expected: "fetch page 1 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFetchError_Is(t *testing.T) {
	cause := errors.New("upstream unavailable")
	err := error(&FetchError{Page: 2, Err: cause})

	if !errors.Is(err, ErrFetchFailed) {
		t.Error("errors.Is(err, ErrFetchFailed) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if errors.Is(err, ErrUnexpectedBatch) {
		t.Error("errors.Is(err, ErrUnexpectedBatch) = true, want false")
	}
}

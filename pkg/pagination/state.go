package pagination

import (
	"fmt"
)

// LoadState is the controller's position in the fetch lifecycle.
// Exactly one state holds at any time.
type LoadState int

const (
	// StateIdle means no fetch is in flight and more batches may be requested.
	StateIdle LoadState = iota

	// StateFetching means exactly one fetch is outstanding.
	StateFetching

	// StateExhausted is terminal. No further fetches are ever issued.
	StateExhausted
)

// String returns the lowercase state name.
func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// MarshalText encodes the state by name so JSON snapshots stay readable.
func (s LoadState) MarshalText() ([]byte, error) {
	switch s {
	case StateIdle, StateFetching, StateExhausted:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown load state %d", int(s))
	}
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *LoadState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "fetching":
		*s = StateFetching
	case "exhausted":
		*s = StateExhausted
	default:
		return fmt.Errorf("unknown load state %q", string(text))
	}
	return nil
}

// CanRequest reports whether a new fetch may be issued from this state.
func (s LoadState) CanRequest() bool {
	return s == StateIdle
}

// IsTerminal reports whether the state admits no further transitions.
func (s LoadState) IsTerminal() bool {
	return s == StateExhausted
}

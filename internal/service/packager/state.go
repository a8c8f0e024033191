package packager

import "fmt"

// State is the position of a run in the pipeline.
type State int

// Pipeline states in execution order. StateFailed is terminal and reachable from any state.
const (
	StateIdle State = iota
	StateSelectorsResolved
	StateManifestPatched
	StateNamed
	StateArchived
	StateChecksummed
	StateDone
	StateFailed
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectorsResolved:
		return "selectors-resolved"
	case StateManifestPatched:
		return "manifest-patched"
	case StateNamed:
		return "named"
	case StateArchived:
		return "archived"
	case StateChecksummed:
		return "checksummed"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// next reports whether to directly follows s.
func (s State) next(to State) bool {
	if to == StateFailed {
		return s != StateDone && s != StateFailed
	}

	return s < StateDone && to == s+1
}

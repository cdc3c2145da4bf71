package commit

import (
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
)

// State tracks one subtree's position in the edit/save cycle.
type State int32

const (
	StateClean State = iota
	StateDirty
	StateSaving
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OpFailure records one operation that failed during a save. The save is
// not atomic across entities: sibling successes are merged and reported
// alongside.
type OpFailure struct {
	Op  mutation.Op
	Err error
}

// Report summarizes one save attempt.
type Report struct {
	State      State
	Dispatched int
	Failures   []OpFailure
}

// Failed reports whether any operation failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

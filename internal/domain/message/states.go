package message

// State is the two-tier lifecycle of a stored message. Active messages are
// readable; tombstoned messages keep their row but lose body and
// attachment; purged messages are physically gone (the state exists only
// transiently, between selection and row deletion in the retention sweep).
//
// Legal transitions: Active -> Tombstoned -> Purged, and Active -> Purged
// (hard eviction of never-deleted messages). Never in reverse.
type State string

const (
	StateActive     State = "active"
	StateTombstoned State = "tombstoned"
	StatePurged     State = "purged"
)

func (s State) CanTransition(next State) bool {
	switch s {
	case StateActive:
		return next == StateTombstoned || next == StatePurged
	case StateTombstoned:
		return next == StatePurged
	}
	return false
}

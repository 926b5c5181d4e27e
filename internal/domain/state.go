package domain

// SyncState is a step of the incremental sync state machine:
// Idle -> AuthPending -> Fetching -> Inserting -> WatermarkUpdate -> Done,
// with any failing step moving to Failed.
type SyncState string

const (
	StateIdle            SyncState = "idle"
	StateAuthPending     SyncState = "auth_pending"
	StateFetching        SyncState = "fetching"
	StateInserting       SyncState = "inserting"
	StateWatermarkUpdate SyncState = "watermark_update"
	StateDone            SyncState = "done"
	StateFailed          SyncState = "failed"
)

var nextState = map[SyncState]SyncState{
	StateIdle:            StateAuthPending,
	StateAuthPending:     StateFetching,
	StateFetching:        StateInserting,
	StateInserting:       StateWatermarkUpdate,
	StateWatermarkUpdate: StateDone,
}

// CanTransition reports whether the machine may move from s to to. Failed is
// reachable from every non-terminal state, and an empty batch jumps from
// Fetching straight to Done.
func (s SyncState) CanTransition(to SyncState) bool {
	if s.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	if s == StateFetching && to == StateDone {
		return true
	}
	return nextState[s] == to
}

// Terminal reports whether no further transitions follow.
func (s SyncState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

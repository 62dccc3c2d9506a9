package domain

// State is the lifecycle state of the storage service.
type State int32

const (
	StateUninitialized State = iota
	StateMigrating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateMigrating:
		return "migrating"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

package supervisor

// State is the supervisor's belief about the stored credential.
type State int

const (
	// StateUnknown is the initial state, before the first verification.
	StateUnknown State = iota
	// StateValid means the stored credential decodes and has not expired.
	StateValid
	// StateExpired is terminal for a credential; only a new token leaves it.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	default:
		return "invalid-state"
	}
}

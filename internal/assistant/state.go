package assistant

// State of a session's conversation
type State int

const (
	StateIdle State = iota
	StateAwaiting
	StateErrorRecovering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StateErrorRecovering:
		return "error_recovering"
	default:
		return "unknown"
	}
}

type event int

const (
	eventSubmit event = iota
	eventResolve
	eventReject
	eventSettle
)

// reduce returns the next state, or false if e is not allowed in s
func reduce(s State, e event) (State, bool) {
	switch {
	case s == StateIdle && e == eventSubmit:
		return StateAwaiting, true
	case s == StateAwaiting && e == eventResolve:
		return StateIdle, true
	case s == StateAwaiting && e == eventReject:
		return StateErrorRecovering, true
	case s == StateErrorRecovering && e == eventSettle:
		return StateIdle, true
	}
	return s, false
}

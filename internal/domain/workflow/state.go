package workflow

// State represents a leave request state in the approval lifecycle
type State string

const (
	StatePendingSupervisor State = "pending_supervisor"
	StatePendingHR         State = "pending_hr"
	StateApproved          State = "approved"
	StateRejected          State = "rejected"
)

var validStates = map[State]bool{
	StatePendingSupervisor: true,
	StatePendingHR:         true,
	StateApproved:          true,
	StateRejected:          true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

package workflow

import (
	"fmt"
	"time"
)

// Notice identifies which party a transition notifies and with what content
type Notice string

const (
	// NoticeSupervisorReview asks the supervisor to decide on a new request
	NoticeSupervisorReview Notice = "supervisor_review"

	// NoticeHRReview asks HR to decide on a supervisor-approved request
	NoticeHRReview Notice = "hr_review"

	// NoticeRequesterApproved tells the requester the request completed
	NoticeRequesterApproved Notice = "requester_approved"

	// NoticeRequesterRejected tells the requester the request was rejected
	NoticeRequesterRejected Notice = "requester_rejected"
)

// Transition describes the outcome of firing an action in a given state:
// the next state, the history annotation to append, and the notice to send.
type Transition struct {
	Next       State
	Annotation string
	Notice     Notice
}

// HistoryEntry renders the append-only history annotation for this
// transition, e.g. "Supervisor approved at 2025-11-10T09:00:00Z; ".
func (t Transition) HistoryEntry(at time.Time) string {
	return fmt.Sprintf("%s %s; ", t.Annotation, at.Format(time.RFC3339))
}

// transitions is the closed transition table: (state, action) pairs absent
// from the table are invalid transitions, never silent fall-through.
var transitions = map[State]map[Action]Transition{
	StatePendingSupervisor: {
		ActionApprove: {Next: StatePendingHR, Annotation: "Supervisor approved at", Notice: NoticeHRReview},
		ActionReject:  {Next: StateRejected, Annotation: "Rejected at", Notice: NoticeRequesterRejected},
	},
	StatePendingHR: {
		ActionApprove: {Next: StateApproved, Annotation: "HR approved at", Notice: NoticeRequesterApproved},
		ActionReject:  {Next: StateRejected, Annotation: "Rejected at", Notice: NoticeRequesterRejected},
	},
}

// Decide computes the transition for firing action in current.
// Terminal states permit no actions and fail with ErrInvalidTransition.
func Decide(current State, action Action) (Transition, error) {
	if !current.IsValid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrInvalidState, current)
	}
	if current.IsTerminal() {
		return Transition{}, fmt.Errorf("%w: %s is terminal, cannot fire %s", ErrInvalidTransition, current, action)
	}

	t, ok := transitions[current][action]
	if !ok {
		return Transition{}, fmt.Errorf("%w: cannot fire %s from state %s", ErrInvalidTransition, action, current)
	}
	return t, nil
}

// PermittedActions returns the actions that can be fired in the given state
func PermittedActions(current State) []Action {
	actions := make([]Action, 0, len(transitions[current]))
	for a := range transitions[current] {
		actions = append(actions, a)
	}
	return actions
}

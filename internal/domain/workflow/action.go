package workflow

import "fmt"

// Action represents a decision an approver can take on a pending request
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction converts a raw callback token into an Action.
// Tokens outside the closed set fail with ErrUnknownAction.
func ParseAction(token string) (Action, error) {
	switch Action(token) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, token)
	}
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

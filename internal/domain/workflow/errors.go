package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed,
	// including any action taken on a terminal state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrUnknownAction is returned when a decision callback carries an
	// action token outside the approve/reject set
	ErrUnknownAction = errors.New("unknown action")
)

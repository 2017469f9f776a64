package core

import "errors"

var (
	// ErrInvalidSelection indicates a choice outside the question's options.
	ErrInvalidSelection = errors.New("choice is not one of the question's options")

	// ErrIllegalTransition indicates an action the current phase does not accept.
	ErrIllegalTransition = errors.New("action not allowed in the current phase")

	// ErrModelUnavailable indicates the language model could not produce an
	// analysis.  The session is left unchanged and the action may be retried.
	ErrModelUnavailable = errors.New("analysis unavailable")

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
)

package deploy

import "errors"

var (
	// ErrStepIncomplete is returned when confirming before the phase's
	// command sequence has finished.
	ErrStepIncomplete = errors.New("current step has not completed")
	// ErrNoPrevious is returned by Back on the first phase.
	ErrNoPrevious = errors.New("no previous phase")
	// ErrTerminal is returned for any transition out of Success.
	ErrTerminal = errors.New("deployment already succeeded")
)

package dispatch

import "errors"

// ErrNoDestinationAvailable is returned when both destinations are paused.
var ErrNoDestinationAvailable = errors.New("no destination available")

// ValidationError reports a payload that cannot be dispatched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

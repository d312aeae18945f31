package probe

import "errors"

var (
	// ErrProbe is returned when the duration of a file cannot be determined.
	ErrProbe = errors.New("duration probe failed")
)

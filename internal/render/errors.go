package render

import "errors"

var (
	// ErrRender is returned when a frame cannot be drawn or written.
	ErrRender = errors.New("frame render failed")
	// ErrInvalidColor is returned for colour strings that cannot be parsed.
	ErrInvalidColor = errors.New("invalid color")
)

package render

import "sync/atomic"

// Counter hands out frame identifiers. It starts at 1 and is never reset.
type Counter struct {
	n atomic.Uint64
}

func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the next identifier.
func (c *Counter) Next() uint64 {
	return c.n.Add(1)
}

// Last returns the most recently assigned identifier, or 0 if none.
func (c *Counter) Last() uint64 {
	return c.n.Load()
}

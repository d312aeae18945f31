package tags

import "errors"

// ErrTagRead is returned when a file is unreadable or carries no tag container.
var ErrTagRead = errors.New("tag read failed")

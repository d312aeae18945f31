package processor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEncode marks every failure of the external encoder.
	ErrEncode = errors.New("encode failed")
	// ErrVerify is returned when a produced video does not match the expected format.
	ErrVerify = errors.New("output verification failed")
)

const stderrTailLines = 12

// EncodeError carries ffmpeg's diagnostic output for a failed encode
type EncodeError struct {
	Output string
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("encode %s: %v", e.Output, e.Err)
	if tail := lastLines(e.Stderr, stderrTailLines); tail != "" {
		msg += "\nffmpeg output:\n" + tail
	}
	return msg
}

func (e *EncodeError) Unwrap() []error {
	return []error{ErrEncode, e.Err}
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

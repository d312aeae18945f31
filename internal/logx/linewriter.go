package logx

import (
	"bufio"
	"bytes"
	"io"

	"github.com/rs/zerolog"
)

// LineWriter turns process output into one zerolog event per line.
type LineWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func NewLineWriter(logger zerolog.Logger, fields map[string]string, level zerolog.Level) *LineWriter {
	w := logger.With()
	for k, v := range fields {
		w = w.Str(k, v)
	}
	return &LineWriter{logger: w.Logger(), level: level}
}

// Pipe logs every line read from r until EOF.
func (lw *LineWriter) Pipe(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(scanLines)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		lw.logger.WithLevel(lw.level).Msg(sc.Text())
	}
	// Drain so the writer side never blocks on a line too long to scan
	_, _ = io.Copy(io.Discard, r)
}

// scanLines splits on \n and on the bare \r ffmpeg uses to redraw its
// progress line. A \r\n pair yields an empty token, which Pipe skips.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

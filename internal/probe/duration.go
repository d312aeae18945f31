// Package probe determines the playing time of MP3 files.
//
// Durations come from github.com/hajimehoshi/go-mp3: the decoder scans the
// frame headers of a seekable file and reports the decoded PCM length in
// bytes. go-mp3 always emits 16-bit stereo, so one second of audio is
// 4*SampleRate bytes.
package probe

import (
	"fmt"
	"io"
	"math"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

const bytesPerFrame = 4 // 16-bit samples, 2 channels

// mp3Stream is the subset of gomp3.Decoder used here, so tests can fake it
type mp3Stream interface {
	Length() int64
	SampleRate() int
}

var newDecoder = func(r io.Reader) (mp3Stream, error) {
	return gomp3.NewDecoder(r)
}

// Duration returns the length of the MP3 at path in seconds.
func Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	defer f.Close()

	dec, err := newDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrProbe, path, err)
	}
	return streamDuration(dec)
}

func streamDuration(dec mp3Stream) (float64, error) {
	length := dec.Length()
	if length <= 0 {
		return 0, fmt.Errorf("%w: unknown stream length", ErrProbe)
	}
	rate := dec.SampleRate()
	if rate <= 0 {
		return 0, fmt.Errorf("%w: invalid sample rate %d", ErrProbe, rate)
	}
	return float64(length) / float64(bytesPerFrame*rate), nil
}

// LoopCount is the number of whole seconds the still frame must cover.
// It is never less than 1.
func LoopCount(seconds float64) int {
	n := int(math.Ceil(seconds))
	if n < 1 {
		return 1
	}
	return n
}

package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/melody-ding/go-mp3vid/internal/logx"
	"github.com/melody-ding/go-mp3vid/internal/probe"
)

var execCommand = exec.CommandContext

// Settings fixes the shape of every produced video
type Settings struct {
	FFmpegPath   string
	FrameRate    int
	Width        int
	Height       int
	VideoCodec   string
	PixelFormat  string
	AudioCodec   string
	AudioBitrate string
	Timeout      time.Duration
}

// DefaultSettings encodes 1920x1080 60fps H.264/yuv420p video with 192k AAC audio.
func DefaultSettings() Settings {
	return Settings{
		FFmpegPath:   "ffmpeg",
		FrameRate:    60,
		Width:        1920,
		Height:       1080,
		VideoCodec:   "libx264",
		PixelFormat:  "yuv420p",
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		Timeout:      30 * time.Minute,
	}
}

// Composer muxes a still frame with an audio track using ffmpeg
type Composer struct {
	settings Settings
	logger   zerolog.Logger
}

func NewComposer(settings Settings, logger zerolog.Logger) *Composer {
	if settings.FFmpegPath == "" {
		settings.FFmpegPath = "ffmpeg"
	}
	return &Composer{settings: settings, logger: logger}
}

// Args returns the ffmpeg arguments that loop framePath for loops seconds
// under audioPath and write outputPath.
func (c *Composer) Args(framePath, audioPath, outputPath string, loops int) []string {
	s := c.settings
	transforms := []Transform{
		ScaleTransform{Width: s.Width, Height: s.Height},
		FPSTransform{FPS: s.FrameRate},
	}

	image := ffmpeg.Input(framePath, ffmpeg.KwArgs{
		"loop":      1,
		"framerate": s.FrameRate,
	}).Video()
	audio := ffmpeg.Input(audioPath).Audio()

	return ffmpeg.Output([]*ffmpeg.Stream{image, audio}, outputPath, ffmpeg.KwArgs{
		"t":       loops,
		"vf":      ComposeTransforms(transforms...),
		"c:v":     s.VideoCodec,
		"pix_fmt": s.PixelFormat,
		"c:a":     s.AudioCodec,
		"b:a":     s.AudioBitrate,
		"r":       s.FrameRate,
	}).OverWriteOutput().GetArgs()
}

// Compose encodes outputPath and waits for ffmpeg to exit. The still frame
// covers ceil(durationSeconds) seconds.
func (c *Composer) Compose(ctx context.Context, framePath, audioPath, outputPath string, durationSeconds float64) error {
	loops := probe.LoopCount(durationSeconds)
	args := c.Args(framePath, audioPath, outputPath, loops)

	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	c.logger.Debug().
		Str("output", outputPath).
		Int("loops", loops).
		Strs("args", args).
		Msg("starting ffmpeg")

	var stderr bytes.Buffer
	pr, pw := io.Pipe()
	lw := logx.NewLineWriter(c.logger, map[string]string{"proc": "ffmpeg"}, zerolog.DebugLevel)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lw.Pipe(pr)
	}()

	cmd := execCommand(ctx, c.settings.FFmpegPath, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.MultiWriter(&stderr, pw)

	runErr := cmd.Run()
	pw.Close()
	wg.Wait()

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			runErr = fmt.Errorf("timed out after %s: %w", c.settings.Timeout, ctx.Err())
		} else if ctx.Err() != nil {
			runErr = fmt.Errorf("%w: %v", ctx.Err(), runErr)
		}
		return &EncodeError{Output: outputPath, Stderr: stderr.String(), Err: runErr}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return &EncodeError{Output: outputPath, Stderr: stderr.String(), Err: fmt.Errorf("no output file: %v", err)}
	}
	if info.Size() == 0 {
		return &EncodeError{Output: outputPath, Stderr: stderr.String(), Err: errors.New("output file is empty")}
	}

	return nil
}

// MediaInfo holds the properties checked on a produced video
type MediaInfo struct {
	Width     int
	Height    int
	FrameRate float64
	Duration  float64
}

// Inspect probes a produced video with ffprobe.
func Inspect(path string) (MediaInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("error probing %s: %w", path, err)
	}
	return parseProbe([]byte(out))
}

// Verify checks that info matches the composer's settings and lasts at
// least as long as the source audio.
func (c *Composer) Verify(info MediaInfo, audioDuration float64) error {
	s := c.settings
	if info.Width != s.Width || info.Height != s.Height {
		return fmt.Errorf("%w: resolution %dx%d, want %dx%d", ErrVerify, info.Width, info.Height, s.Width, s.Height)
	}
	if diff := info.FrameRate - float64(s.FrameRate); diff > 0.01 || diff < -0.01 {
		return fmt.Errorf("%w: frame rate %s, want %d", ErrVerify, strconv.FormatFloat(info.FrameRate, 'f', 2, 64), s.FrameRate)
	}
	// Container durations are rounded to milliseconds
	if info.Duration+0.05 < audioDuration {
		return fmt.Errorf("%w: duration %.3fs shorter than audio %.3fs", ErrVerify, info.Duration, audioDuration)
	}
	return nil
}

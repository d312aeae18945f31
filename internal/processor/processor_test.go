package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeCommand re-runs the test binary as a stand-in for ffmpeg
func fakeCommand(behavior string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_BEHAVIOR="+behavior)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	var output string
	for _, a := range os.Args {
		if strings.HasSuffix(a, ".mp4") {
			output = a
		}
	}

	switch os.Getenv("HELPER_BEHAVIOR") {
	case "ok":
		fmt.Fprintln(os.Stderr, "frame=  120 fps=60")
		os.WriteFile(output, []byte("fake mp4 data"), 0644)
	case "empty":
		os.WriteFile(output, nil, 0644)
	case "none":
	case "fail":
		fmt.Fprintln(os.Stderr, "song.mp3: Invalid data found when processing input")
		os.Exit(1)
	case "hang":
		time.Sleep(10 * time.Second)
	}
	os.Exit(0)
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func newTestComposer(timeout time.Duration) *Composer {
	s := DefaultSettings()
	s.Timeout = timeout
	return NewComposer(s, zerolog.Nop())
}

func TestComposeTransforms(t *testing.T) {
	tests := []struct {
		name       string
		transforms []Transform
		want       string
	}{
		{
			name:       "scale and fps",
			transforms: []Transform{ScaleTransform{Width: 1920, Height: 1080}, FPSTransform{FPS: 60}},
			want:       "scale=1920:1080,fps=60",
		},
		{
			name:       "single",
			transforms: []Transform{FPSTransform{FPS: 30}},
			want:       "fps=30",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeTransforms(tt.transforms...); got != tt.want {
				t.Errorf("ComposeTransforms() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArgs(t *testing.T) {
	c := NewComposer(DefaultSettings(), zerolog.Nop())
	args := c.Args("frame-1.png", "song.mp3", "song.mp4", 184)

	want := map[string]string{
		"-loop":      "1",
		"-framerate": "60",
		"-t":         "184",
		"-c:v":       "libx264",
		"-pix_fmt":   "yuv420p",
		"-vf":        "scale=1920:1080,fps=60",
		"-c:a":       "aac",
		"-b:a":       "192k",
		"-r":         "60",
	}
	for flag, v := range want {
		if got := argValue(args, flag); got != v {
			t.Errorf("Args() %s = %q, want %q (args: %v)", flag, got, v, args)
		}
	}

	// The looped image must be the first input, the audio the second
	var inputs []string
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			inputs = append(inputs, args[i+1])
		}
	}
	if len(inputs) != 2 || inputs[0] != "frame-1.png" || inputs[1] != "song.mp3" {
		t.Errorf("Args() inputs = %v", inputs)
	}

	loopIdx, frameIdx := -1, -1
	for i, a := range args {
		if a == "-loop" {
			loopIdx = i
		}
		if a == "frame-1.png" {
			frameIdx = i
		}
	}
	if loopIdx < 0 || loopIdx > frameIdx {
		t.Errorf("-loop must be an input option of the frame: %v", args)
	}

	if !contains(args, "song.mp4") || !contains(args, "-y") {
		t.Errorf("Args() missing output or overwrite flag: %v", args)
	}
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

func TestCompose(t *testing.T) {
	orig := execCommand
	defer func() { execCommand = orig }()

	tests := []struct {
		name        string
		behavior    string
		timeout     time.Duration
		wantErr     bool
		wantStderr  string
		wantTimeout bool
	}{
		{name: "success", behavior: "ok", timeout: time.Minute},
		{name: "process failure", behavior: "fail", timeout: time.Minute, wantErr: true, wantStderr: "Invalid data found"},
		{name: "empty output", behavior: "empty", timeout: time.Minute, wantErr: true},
		{name: "no output", behavior: "none", timeout: time.Minute, wantErr: true},
		{name: "timeout", behavior: "hang", timeout: 300 * time.Millisecond, wantErr: true, wantTimeout: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCommand = fakeCommand(tt.behavior)
			out := filepath.Join(t.TempDir(), "song.mp4")

			c := newTestComposer(tt.timeout)
			err := c.Compose(context.Background(), "frame-1.png", "song.mp3", out, 183.4)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compose() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			if !errors.Is(err, ErrEncode) {
				t.Errorf("Compose() error = %v, want ErrEncode", err)
			}
			var encErr *EncodeError
			if !errors.As(err, &encErr) {
				t.Fatalf("Compose() error type = %T, want *EncodeError", err)
			}
			if encErr.Output != out {
				t.Errorf("EncodeError.Output = %s, want %s", encErr.Output, out)
			}
			if tt.wantStderr != "" && !strings.Contains(err.Error(), tt.wantStderr) {
				t.Errorf("Compose() error %q does not surface ffmpeg output %q", err, tt.wantStderr)
			}
			if tt.wantTimeout && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Compose() error = %v, want deadline exceeded", err)
			}
		})
	}
}

func TestComposeCancelled(t *testing.T) {
	orig := execCommand
	defer func() { execCommand = orig }()
	execCommand = fakeCommand("hang")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	c := newTestComposer(time.Minute)
	err := c.Compose(ctx, "frame-1.png", "song.mp3", filepath.Join(t.TempDir(), "song.mp4"), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Compose() error = %v, want context.Canceled", err)
	}
}

func TestLastLines(t *testing.T) {
	s := "a\nb\nc\nd\n"
	if got := lastLines(s, 2); got != "c\nd" {
		t.Errorf("lastLines() = %q, want %q", got, "c\nd")
	}
	if got := lastLines("", 3); got != "" {
		t.Errorf("lastLines(\"\") = %q, want empty", got)
	}
}

// createTestAudio creates a short mp3 using ffmpeg's sine source
func createTestAudio(t *testing.T, seconds float64) string {
	path := filepath.Join(t.TempDir(), "tone.mp3")
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=440:duration=%g", seconds),
		"-c:a", "libmp3lame",
		path,
		"-y",
	)
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg cannot create mp3 fixtures: %v", err)
	}
	return path
}

// createTestFrame creates a still image using ffmpeg's color source
func createTestFrame(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "frame-1.png")
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", "color=c=black:s=1920x1080",
		"-frames:v", "1",
		path,
		"-y",
	)
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg cannot create image fixtures: %v", err)
	}
	return path
}

func TestComposeWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	audio := createTestAudio(t, 1.5)
	frame := createTestFrame(t)
	out := filepath.Join(t.TempDir(), "tone.mp4")

	c := NewComposer(DefaultSettings(), zerolog.Nop())
	if err := c.Compose(context.Background(), frame, audio, out, 1.5); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	info, err := Inspect(out)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if err := c.Verify(info, 1.5); err != nil {
		t.Errorf("Verify() error = %v (info %+v)", err, info)
	}
}

// Package render draws the still frame used as video background.
//
// Frames are 1920x1080 PNG files drawn with github.com/fogleman/gg. Text is
// set in a monospaced face: either a TrueType/OpenType file given by
// Options.FontPath or the Go Mono face embedded in golang.org/x/image.
//
// Layout rules:
//   - the text is split on newlines, then every line wider than the canvas
//     minus both margins is word-wrapped (see wrapText)
//   - each line is centred horizontally by its measured width
//   - the block is anchored to the bottom: the last baseline sits at
//     Height - Margin - descent
//
// Lines that do not fit vertically are drawn above the canvas top and are
// therefore clipped.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"

	"github.com/melody-ding/go-mp3vid/internal/types"
)

const (
	FrameWidth  = 1920
	FrameHeight = 1080
)

// Options controls how frames look and where they are written
type Options struct {
	Dir             string
	FontPath        string
	FontSize        float64
	TextColor       string
	BackgroundColor string
	Margin          float64
}

// DefaultOptions renders white 24pt Go Mono text on black into ./tmp/output.
func DefaultOptions() Options {
	return Options{
		Dir:             filepath.Join("tmp", "output"),
		FontSize:        24,
		TextColor:       "white",
		BackgroundColor: "black",
		Margin:          80,
	}
}

// Renderer draws frames and numbers them with its Counter
type Renderer struct {
	opts    Options
	counter *Counter
	face    font.Face
	fg      color.Color
	bg      color.Color
}

// New validates opts, loads the font face and creates the output directory.
func New(opts Options, counter *Counter) (*Renderer, error) {
	if counter == nil {
		counter = NewCounter()
	}
	if opts.FontSize <= 0 {
		return nil, fmt.Errorf("%w: font size must be positive, got %v", ErrRender, opts.FontSize)
	}
	if opts.Margin < 0 || opts.Margin*2 >= FrameWidth {
		return nil, fmt.Errorf("%w: invalid margin %v", ErrRender, opts.Margin)
	}

	fg, err := ParseColor(opts.TextColor)
	if err != nil {
		return nil, fmt.Errorf("text color: %w", err)
	}
	bg, err := ParseColor(opts.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("background color: %w", err)
	}

	face, err := loadFace(opts.FontPath, opts.FontSize)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: error creating frame directory: %v", ErrRender, err)
	}

	return &Renderer{
		opts:    opts,
		counter: counter,
		face:    face,
		fg:      fg,
		bg:      bg,
	}, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	data := gomono.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: error reading font: %v", ErrRender, err)
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing font: %v", ErrRender, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: error creating font face: %v", ErrRender, err)
	}
	return face, nil
}

// Render draws text onto a new frame and writes it as frame-<N>.png.
func (r *Renderer) Render(text string) (types.Frame, error) {
	id := r.counter.Next()

	dc := gg.NewContext(FrameWidth, FrameHeight)
	dc.SetColor(r.bg)
	dc.Clear()

	dc.SetFontFace(r.face)
	dc.SetColor(r.fg)

	measure := func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	}
	lines := wrapText(text, FrameWidth-2*r.opts.Margin, measure)

	m := r.face.Metrics()
	ascent := float64(m.Ascent.Ceil())
	descent := float64(m.Descent.Ceil())
	lineHeight := ascent + descent

	baseline := FrameHeight - r.opts.Margin - descent
	for i := len(lines) - 1; i >= 0; i-- {
		x := (FrameWidth - measure(lines[i])) / 2
		dc.DrawString(lines[i], x, baseline)
		baseline -= lineHeight
	}

	frame := types.Frame{
		ID:     id,
		Width:  FrameWidth,
		Height: FrameHeight,
		Path:   filepath.Join(r.opts.Dir, fmt.Sprintf("frame-%d.png", id)),
	}
	if err := dc.SavePNG(frame.Path); err != nil {
		return types.Frame{}, fmt.Errorf("%w: error writing %s: %v", ErrRender, frame.Path, err)
	}
	return frame, nil
}

package processor

import (
	"fmt"
	"strings"
)

// Transform is a single ffmpeg video filter
type Transform interface {
	// Filter returns the filtergraph expression for this transformation
	Filter() string
}

// FPSTransform resamples the output to a constant frame rate
type FPSTransform struct {
	FPS int
}

func (t FPSTransform) Filter() string {
	return fmt.Sprintf("fps=%d", t.FPS)
}

// ScaleTransform resizes the video
type ScaleTransform struct {
	Width  int
	Height int
}

func (t ScaleTransform) Filter() string {
	return fmt.Sprintf("scale=%d:%d", t.Width, t.Height)
}

// ComposeTransforms chains transformations into one -vf argument
func ComposeTransforms(transforms ...Transform) string {
	filters := make([]string, 0, len(transforms))
	for _, t := range transforms {
		if f := t.Filter(); f != "" {
			filters = append(filters, f)
		}
	}
	return strings.Join(filters, ",")
}

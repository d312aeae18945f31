package types

import "strings"

// Track represents a single MP3 file queued for conversion
type Track struct {
	Path     string
	Name     string
	Duration float64
	Tags     TagSet
}

// TagSet maps a tag name (ID3 frame id or alias such as "year") to its value
type TagSet map[string]string

// Get returns the first non-empty value among keys.
func (t TagSet) Get(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := strings.TrimSpace(t[k]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Frame is a rendered still image used as the video background
type Frame struct {
	ID     uint64
	Width  int
	Height int
	Path   string
}

// RenderJob ties a track to its frame and destination video
type RenderJob struct {
	Track      Track
	Frame      Frame
	OutputPath string
	LoopCount  int
}

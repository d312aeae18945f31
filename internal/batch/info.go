package batch

import (
	"fmt"

	"github.com/melody-ding/go-mp3vid/internal/types"
)

// Placeholder replaces tags missing from a file
const Placeholder = "unknown"

// InfoText builds the overlay text for a track.
func InfoText(name string, tags types.TagSet) string {
	return fmt.Sprintf(
		"Filename: %s [MP3]\nMETADATA TAGS FOUND\n-------------------\naudio_year_rendered::%s; encoded_by::%s; TBPM::%s beats per minute",
		name,
		tagOr(tags, "year", "TYER", "TDRC"),
		tagOr(tags, "TENC"),
		tagOr(tags, "TBPM"),
	)
}

func tagOr(tags types.TagSet, keys ...string) string {
	if v, ok := tags.Get(keys...); ok {
		return v
	}
	return Placeholder
}

package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/melody-ding/go-mp3vid/internal/types"
)

const mp3Ext = ".mp3"

// ListTracks returns the MP3 files directly inside dir, in listing order.
// Directories, hidden files and other extensions are ignored.
func ListTracks(dir string) ([]types.Track, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading input directory: %w", err)
	}

	var tracks []types.Track
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !IsMP3(name) {
			continue
		}
		if !e.Type().IsRegular() {
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}

		tracks = append(tracks, types.Track{
			Path: filepath.Join(dir, name),
			Name: TrackName(name),
		})
	}

	return tracks, nil
}

// IsMP3 reports whether name has an .mp3 extension, ignoring case.
func IsMP3(name string) bool {
	return strings.EqualFold(filepath.Ext(name), mp3Ext)
}

// TrackName strips the directory and extension from path.
func TrackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath is the .mp4 written next to the source file.
func OutputPath(track types.Track) string {
	return filepath.Join(filepath.Dir(track.Path), track.Name+".mp4")
}

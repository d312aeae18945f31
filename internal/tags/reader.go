// Package tags reads embedded metadata from MP3 files.
//
// ID3v2 frames are read with github.com/bogem/id3v2. Files without an ID3v2
// header fall back to github.com/dhowden/tag, which also understands ID3v1.
// Frames are exposed under their frame id (TENC, TBPM, ...) plus a few
// lowercase aliases (year, title, artist, album, genre).
package tags

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"

	"github.com/melody-ding/go-mp3vid/internal/types"
)

const id3v2Magic = "ID3"

var aliases = map[string][]string{
	"year":   {"TYER", "TDRC", "TORY", "TDOR", "TYE", "TOR", "year"},
	"title":  {"TIT2", "TT2", "title"},
	"artist": {"TPE1", "TPE2", "TP1", "TP2", "artist"},
	"album":  {"TALB", "TAL", "album"},
	"genre":  {"TCON", "TCO", "genre"},
	// ID3v2.2 uses three-letter frame ids
	"TENC": {"TEN"},
	"TBPM": {"TBP"},
}

// Read returns every tag found in the file at path. A file whose tag
// container holds no text frames yields an empty set; ErrTagRead is returned
// only when the file cannot be read or carries no tag container at all.
func Read(path string) (types.TagSet, error) {
	set, found, err := readID3v2(path)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return nil, fmt.Errorf("%w: %v", ErrTagRead, err)
	}
	if err != nil || !found {
		// ID3v2.2 and damaged ID3v2 headers are left to dhowden/tag
		fallback, ferr := readFallback(path)
		if ferr != nil {
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v; %v", ErrTagRead, path, err, ferr)
			}
			return nil, ferr
		}
		set = fallback
	}

	addAliases(set)
	return set, nil
}

// readID3v2 reports found when the file starts with an ID3v2 header, even if
// none of its frames carry text.
func readID3v2(path string) (types.TagSet, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	head := make([]byte, len(id3v2Magic))
	if _, err := io.ReadFull(f, head); err != nil || string(head) != id3v2Magic {
		return types.TagSet{}, false, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, false, err
	}

	t, err := id3v2.ParseReader(f, id3v2.Options{Parse: true})
	if err != nil {
		return nil, true, err
	}

	set := types.TagSet{}
	for id, frames := range t.AllFrames() {
		for _, fr := range frames {
			switch fr := fr.(type) {
			case id3v2.TextFrame:
				setOnce(set, id, fr.Text)
			case id3v2.UserDefinedTextFrame:
				setOnce(set, fr.Description, fr.Value)
			case id3v2.CommentFrame:
				setOnce(set, id, fr.Text)
			}
		}
	}
	return set, true, nil
}

func readFallback(path string) (types.TagSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTagRead, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTagRead, err)
	}

	set := types.TagSet{}
	for k, v := range m.Raw() {
		switch val := v.(type) {
		case string:
			setOnce(set, k, val)
		case int:
			if val != 0 {
				setOnce(set, k, strconv.Itoa(val))
			}
		case *tag.Comm:
			setOnce(set, k, val.Text)
		}
	}
	if y := m.Year(); y > 0 {
		setOnce(set, "year", strconv.Itoa(y))
	}
	return set, nil
}

func addAliases(set types.TagSet) {
	for alias, keys := range aliases {
		if _, ok := set[alias]; ok {
			continue
		}
		if v, ok := set.Get(keys...); ok {
			set[alias] = v
		}
	}
	// TDRC holds a full timestamp; the year alias only wants the year part.
	if y := set["year"]; len(y) > 4 && y[4] == '-' {
		set["year"] = y[:4]
	}
}

func setOnce(set types.TagSet, key, value string) {
	key = strings.TrimSpace(key)
	value = strings.Trim(strings.TrimSpace(value), "\x00")
	if key == "" || value == "" {
		return
	}
	if _, ok := set[key]; !ok {
		set[key] = value
	}
}

package tags

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
)

// writeID3v2File writes an ID3v2 tag followed by dummy audio bytes
func writeID3v2File(t *testing.T, frames map[string]string) string {
	t.Helper()

	tg := id3v2.NewEmptyTag()
	for id, text := range frames {
		tg.AddTextFrame(id, id3v2.EncodingUTF8, text)
	}

	var buf bytes.Buffer
	if _, err := tg.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	buf.Write(bytes.Repeat([]byte{0xAA}, 256))

	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeID3v1File writes dummy audio followed by a 128-byte ID3v1 block
func writeID3v1File(t *testing.T, title, year string) string {
	t.Helper()

	field := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, s)
		return b
	}

	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0x55}, 512))
	buf.WriteString("TAG")
	buf.Write(field(title, 30))
	buf.Write(field("Artist", 30))
	buf.Write(field("Album", 30))
	buf.Write(field(year, 4))
	buf.Write(field("", 30))
	buf.WriteByte(0)

	path := filepath.Join(t.TempDir(), "legacy.mp3")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeID3v22File writes an ID3v2.2 tag with ISO-8859-1 text frames
func writeID3v22File(t *testing.T, frames [][2]string) string {
	t.Helper()

	var body bytes.Buffer
	for _, fr := range frames {
		size := len(fr[1]) + 1
		body.WriteString(fr[0])
		body.Write([]byte{byte(size >> 16), byte(size >> 8), byte(size)})
		body.WriteByte(0)
		body.WriteString(fr[1])
	}
	body.Write(make([]byte, 16))

	n := body.Len()
	var buf bytes.Buffer
	buf.WriteString("ID3")
	buf.Write([]byte{2, 0, 0})
	buf.Write([]byte{byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)})
	buf.Write(body.Bytes())
	buf.Write(bytes.Repeat([]byte{0xAA}, 256))

	path := filepath.Join(t.TempDir(), "itunes.mp3")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadID3v2(t *testing.T) {
	path := writeID3v2File(t, map[string]string{
		"TYER": "2020",
		"TENC": "LAME",
		"TBPM": "128",
		"TIT2": "Song",
	})

	set, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := map[string]string{
		"year":  "2020",
		"TENC":  "LAME",
		"TBPM":  "128",
		"title": "Song",
	}
	for k, v := range want {
		if set[k] != v {
			t.Errorf("Read()[%q] = %q, want %q", k, set[k], v)
		}
	}
}

func TestReadRecordingTimeYear(t *testing.T) {
	path := writeID3v2File(t, map[string]string{"TDRC": "2019-05-01"})

	set, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if set["year"] != "2019" {
		t.Errorf("Read()[year] = %q, want 2019", set["year"])
	}
}

func TestReadID3v1Fallback(t *testing.T) {
	path := writeID3v1File(t, "Old Song", "1999")

	set, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if set["year"] != "1999" {
		t.Errorf("Read()[year] = %q, want 1999", set["year"])
	}
	if set["title"] != "Old Song" {
		t.Errorf("Read()[title] = %q, want Old Song", set["title"])
	}
}

func TestReadID3v22(t *testing.T) {
	path := writeID3v22File(t, [][2]string{
		{"TYE", "2020"},
		{"TEN", "LAME"},
		{"TBP", "128"},
	})

	set, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := map[string]string{
		"year": "2020",
		"TENC": "LAME",
		"TBPM": "128",
	}
	for k, v := range want {
		if set[k] != v {
			t.Errorf("Read()[%q] = %q, want %q", k, set[k], v)
		}
	}
}

func TestReadContainerWithoutText(t *testing.T) {
	tg := id3v2.NewEmptyTag()
	tg.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/png",
		PictureType: id3v2.PTFrontCover,
		Description: "Front cover",
		Picture:     []byte{0x89, 'P', 'N', 'G'},
	})

	var buf bytes.Buffer
	if _, err := tg.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	buf.Write(bytes.Repeat([]byte{0xAA}, 256))
	path := filepath.Join(t.TempDir(), "pic.mp3")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v, want empty set", err)
	}
	if len(set) != 0 {
		t.Errorf("Read() = %v, want empty set", set)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	noTags := filepath.Join(dir, "plain.mp3")
	if err := os.WriteFile(noTags, bytes.Repeat([]byte{0x11}, 1024), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.mp3")},
		{name: "no tag container", path: noTags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.path)
			if !errors.Is(err, ErrTagRead) {
				t.Errorf("Read() error = %v, want ErrTagRead", err)
			}
		})
	}
}

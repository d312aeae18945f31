package render

import (
	"strings"
	"unicode/utf8"
)

// wrapText splits text on newlines and wraps every line that is wider than
// maxWidth. Lines break at spaces; a single word wider than maxWidth is
// broken between runes. Each output line is at least one rune long, so a
// glyph wider than maxWidth still gets its own line.
func wrapText(text string, maxWidth float64, measure func(string) float64) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, maxWidth, measure)...)
	}
	return out
}

func wrapLine(line string, maxWidth float64, measure func(string) float64) []string {
	if measure(line) <= maxWidth {
		return []string{line}
	}

	var (
		out     []string
		current string
	)
	for _, word := range strings.Fields(line) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current)
			current = ""
		}
		if measure(word) <= maxWidth {
			current = word
			continue
		}
		pieces := breakWord(word, maxWidth, measure)
		out = append(out, pieces[:len(pieces)-1]...)
		current = pieces[len(pieces)-1]
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func breakWord(word string, maxWidth float64, measure func(string) float64) []string {
	var out []string
	for word != "" {
		n := 0
		for i := range word {
			if i == 0 {
				continue
			}
			if measure(word[:i]) > maxWidth {
				break
			}
			n = i
		}
		if n == 0 {
			// Nothing fits besides the first rune
			_, n = utf8.DecodeRuneInString(word)
		}
		if measure(word) <= maxWidth {
			n = len(word)
		}
		out = append(out, word[:n])
		word = word[n:]
	}
	return out
}

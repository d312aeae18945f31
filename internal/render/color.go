package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var namedColors = map[string]color.NRGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"gray":   {128, 128, 128, 255},
	"grey":   {128, 128, 128, 255},
}

// ParseColor accepts a colour name or #rgb, #rrggbb, #rrggbbaa hex notation.
// Alpha is straight, not premultiplied.
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if !strings.HasPrefix(v, "#") {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	hex := v[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{
		R: uint8(n >> 24),
		G: uint8(n >> 16),
		B: uint8(n >> 8),
		A: uint8(n),
	}, nil
}

package server

import (
	"image/color"
	"strconv"
	"strings"
)

var namedColors = map[string]color.RGBA{
	"black": {A: 255},
	"white": {R: 255, G: 255, B: 255, A: 255},
	"gray":  {R: 128, G: 128, B: 128, A: 255},
	"red":   {R: 255, A: 255},
	"green": {G: 128, A: 255},
	"blue":  {B: 255, A: 255},
}

// Tailwind shades used by the reader page.
var (
	progressBlue  = color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 255}
	progressTrack = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 255}
	progressText  = color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 255}
)

func parseHexColor(value string) (color.RGBA, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

func parseShorthandHex(value string) (color.RGBA, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(hex) {
	case 3:
		return parseHexColor(string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}))
	case 6, 8:
		return parseHexColor(hex[:6])
	default:
		return color.RGBA{}, false
	}
}

// parseCSSColor understands #rgb, #rrggbb, rgb()/rgba() and a few names.
// A leading '#' is optional so colours survive query strings unescaped.
func parseCSSColor(input string) (color.RGBA, bool) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" || s == "transparent" {
		return color.RGBA{}, false
	}
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunctional(s)
	}
	return parseShorthandHex(s)
}

func parseRGBFunctional(expr string) (color.RGBA, bool) {
	open := strings.IndexByte(expr, '(')
	close := strings.LastIndexByte(expr, ')')
	if open < 0 || close <= open+1 {
		return color.RGBA{}, false
	}
	parts := strings.Split(expr[open+1:close], ",")
	if len(parts) < 3 {
		parts = strings.Fields(expr[open+1 : close])
	}
	if len(parts) < 3 {
		return color.RGBA{}, false
	}
	toByte := func(component string) uint8 {
		component = strings.TrimSpace(component)
		if strings.HasSuffix(component, "%") {
			p, err := strconv.Atoi(strings.TrimSuffix(component, "%"))
			if err != nil {
				return 0
			}
			return uint8(float64(clampInt(p, 0, 100)) * 255.0 / 100.0)
		}
		n, err := strconv.Atoi(component)
		if err != nil {
			return 0
		}
		return uint8(clampInt(n, 0, 255))
	}
	return color.RGBA{R: toByte(parts[0]), G: toByte(parts[1]), B: toByte(parts[2]), A: 255}, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package server

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
)

func TestParseCSSColor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#fff", color.RGBA{255, 255, 255, 255}, true},
		{"ff0000", color.RGBA{255, 0, 0, 255}, true},
		{"#2563EB", color.RGBA{0x25, 0x63, 0xeb, 255}, true},
		{"#11223380", color.RGBA{0x11, 0x22, 0x33, 255}, true},
		{"rgb(0, 128, 255)", color.RGBA{0, 128, 255, 255}, true},
		{"rgba(10,20,30,0.5)", color.RGBA{10, 20, 30, 255}, true},
		{"rgb(100%, 0%, 50%)", color.RGBA{255, 0, 127, 255}, true},
		{"rgb(300 -5 20)", color.RGBA{255, 0, 20, 255}, true},
		{"Blue", color.RGBA{0, 0, 255, 255}, true},
		{"transparent", color.RGBA{}, false},
		{"#12345g", color.RGBA{}, false},
		{"bogus", color.RGBA{}, false},
		{"", color.RGBA{}, false},
	}
	for _, tc := range tests {
		got, ok := parseCSSColor(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseCSSColor(%q) = (%v,%v), want (%v,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDrawProgressBadgeFill(t *testing.T) {
	t.Parallel()
	red := color.RGBA{255, 0, 0, 255}
	img := drawProgressBadge(badgeOptions{Progress: 50, Width: 100, Height: 10, Fill: red})
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 10 {
		t.Fatalf("bounds = %v", b)
	}
	if got := img.RGBAAt(10, 5); got != red {
		t.Fatalf("filled pixel = %v", got)
	}
	if got := img.RGBAAt(90, 5); got != progressTrack {
		t.Fatalf("track pixel = %v", got)
	}
}

func TestDrawProgressBadgeClamps(t *testing.T) {
	t.Parallel()
	img := drawProgressBadge(badgeOptions{Progress: 250, Width: 5000, Height: -3})
	if b := img.Bounds(); b.Dx() != maxBadgeWidth || b.Dy() != 1 {
		t.Fatalf("bounds = %v", b)
	}
	if got := img.RGBAAt(maxBadgeWidth-1, 0); got != progressBlue {
		t.Fatalf("last pixel = %v, want default fill", got)
	}
}

func TestDrawProgressBadgeLabel(t *testing.T) {
	t.Parallel()
	img := drawProgressBadge(badgeOptions{Progress: 0, Width: 200, Height: 16, Label: "0% complete"})
	inked := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == progressText {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Fatalf("label was not drawn")
	}

	short := drawProgressBadge(badgeOptions{Progress: 0, Width: 200, Height: 8, Label: "0% complete"})
	for x := 0; x < 200; x++ {
		if short.RGBAAt(x, 4) != progressTrack {
			t.Fatalf("label drawn on a bar too short for it")
		}
	}
}

func TestEncodeBadge(t *testing.T) {
	t.Parallel()
	data, err := encodeBadge(drawProgressBadge(badgeOptions{Progress: 30, Width: 40, Height: 4}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 4 {
		t.Fatalf("decoded bounds = %v", b)
	}
}

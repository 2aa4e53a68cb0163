package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	defaultBadgeWidth  = 240
	defaultBadgeHeight = 16
	maxBadgeWidth      = 2000
	maxBadgeHeight     = 200
)

type badgeOptions struct {
	Progress float64
	Width    int
	Height   int
	Fill     color.RGBA
	Label    string
}

// drawProgressBadge renders a horizontal progress bar with the label
// centred on it. Text is skipped when the bar is too short for the face.
func drawProgressBadge(opt badgeOptions) *image.RGBA {
	w := clampInt(opt.Width, 1, maxBadgeWidth)
	h := clampInt(opt.Height, 1, maxBadgeHeight)
	p := math.Max(0, math.Min(100, opt.Progress))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(progressTrack), image.Point{}, draw.Src)

	filled := int(math.Round(float64(w) * p / 100))
	if filled > 0 {
		fill := opt.Fill
		if fill.A == 0 {
			fill = progressBlue
		}
		draw.Draw(img, image.Rect(0, 0, filled, h), image.NewUniform(fill), image.Point{}, draw.Src)
	}

	face := basicfont.Face7x13
	if opt.Label == "" || h < face.Metrics().Height.Ceil() {
		return img
	}
	dr := &font.Drawer{Dst: img, Src: image.NewUniform(progressText), Face: face}
	tw := dr.MeasureString(opt.Label).Ceil()
	x := (w - tw) / 2
	if x < 0 {
		x = 0
	}
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()
	y := (h + ascent - descent) / 2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(opt.Label)
	return img
}

func encodeBadge(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

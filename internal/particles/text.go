package particles

import (
	"errors"
	"image"
	"math/rand/v2"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyText is returned when the text has no visible glyph pixels.
var ErrEmptyText = errors.New("text renders no pixels")

// DefaultTextWidth is the world-space width the text formation spans.
const DefaultTextWidth = 180.0

// textDepth is the z jitter given to text targets so the formation is not flat.
const textDepth = 6.0

// GlyphPixels rasterizes text with the 7x13 bitmap face and returns the lit
// pixels plus the raster bounds. Lines are split on '\n' and left aligned.
func GlyphPixels(text string) ([]image.Point, image.Rectangle) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()

	lines := strings.Split(text, "\n")
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > width {
			width = w
		}
	}
	bounds := image.Rect(0, 0, width, lineHeight*len(lines))
	if width == 0 {
		return nil, bounds
	}

	img := image.NewAlpha(bounds)
	d := &font.Drawer{Dst: img, Src: image.Opaque, Face: face}
	for i, line := range lines {
		d.Dot = fixed.P(0, i*lineHeight+metrics.Ascent.Ceil())
		d.DrawString(line)
	}

	var lit []image.Point
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.AlphaAt(x, y).A > 127 {
				lit = append(lit, image.Pt(x, y))
			}
		}
	}
	return lit, bounds
}

// LayoutText turns text into exactly count world-space targets centred on
// the origin and width units wide. Pixels are reused round-robin and
// jittered within their cell when there are more particles than pixels.
func LayoutText(text string, count int, width float64, rng *rand.Rand) ([]r3.Vec, error) {
	pixels, bounds := GlyphPixels(text)
	if len(pixels) == 0 {
		return nil, ErrEmptyText
	}
	if width <= 0 {
		width = DefaultTextWidth
	}

	cell := width / float64(bounds.Dx())
	cx := float64(bounds.Dx()) / 2
	cy := float64(bounds.Dy()) / 2

	// Shuffle so a short prefix of the targets still covers the whole text.
	rng.Shuffle(len(pixels), func(i, j int) { pixels[i], pixels[j] = pixels[j], pixels[i] })

	out := make([]r3.Vec, count)
	for i := range out {
		px := pixels[i%len(pixels)]
		out[i] = r3.Vec{
			X: (float64(px.X) + rng.Float64() - cx) * cell,
			Y: (cy - float64(px.Y) - rng.Float64()) * cell,
			Z: (rng.Float64() - 0.5) * textDepth,
		}
	}
	return out, nil
}

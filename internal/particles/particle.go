// Package particles owns the particle field and blends it between formations.
package particles

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/formation"
)

// Shape is the mesh a particle is drawn with.
type Shape int

const (
	ShapeOrb Shape = iota
	ShapeCube
)

// String returns the shape name.
func (s Shape) String() string {
	if s == ShapeCube {
		return "cube"
	}
	return "orb"
}

// MarshalText encodes the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ColorClass is the palette entry of a particle.
type ColorClass int

const (
	ColorGold ColorClass = iota
	ColorCrimson
	ColorIvory
)

// String returns the color class name.
func (c ColorClass) String() string {
	switch c {
	case ColorCrimson:
		return "crimson"
	case ColorIvory:
		return "ivory"
	default:
		return "gold"
	}
}

// MarshalText encodes the color class by name.
func (c ColorClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Particle is one element of the field. Targets are fixed once the text
// asset is applied; only Position and Rotation change per tick.
type Particle struct {
	ID    int
	Shape Shape
	Color ColorClass

	TreeTarget    r3.Vec
	ExplodeTarget r3.Vec
	TextTarget    r3.Vec

	Position  r3.Vec
	BaseScale float64
	Rotation  r3.Vec
	Spin      r3.Vec

	phase  float64
	offset r3.Vec
}

// Target returns the particle's target for state s.
func (p *Particle) Target(s formation.State) r3.Vec {
	switch s {
	case formation.Explode:
		return p.ExplodeTarget
	case formation.Text:
		return p.TextTarget
	default:
		return p.TreeTarget
	}
}

// pickColor draws a color class with 70/20/10 weights.
func pickColor(rng *rand.Rand) ColorClass {
	switch r := rng.Float64(); {
	case r < 0.7:
		return ColorGold
	case r < 0.9:
		return ColorCrimson
	default:
		return ColorIvory
	}
}

func newParticle(id int, tree, explode r3.Vec, rng *rand.Rand) Particle {
	shape := ShapeOrb
	if rng.IntN(2) == 1 {
		shape = ShapeCube
	}

	spin := func() float64 { return (rng.Float64() - 0.5) * 0.04 }

	return Particle{
		ID:            id,
		Shape:         shape,
		Color:         pickColor(rng),
		TreeTarget:    tree,
		ExplodeTarget: explode,
		TextTarget:    tree,
		Position:      tree,
		BaseScale:     0.6 + rng.Float64()*0.8,
		Rotation:      r3.Vec{X: rng.Float64() * 6.283, Y: rng.Float64() * 6.283},
		Spin:          r3.Vec{X: spin(), Y: spin(), Z: spin()},
		phase:         rng.Float64() * 6.283,
	}
}

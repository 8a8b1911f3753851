package particles

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Shape of the tree and exploded cloud formations in world units.
const (
	treeHeight    = 120.0
	treeRadius    = 45.0
	treeTurns     = 9.0
	explodeRadius = 110.0
)

// TreeTargets lays n points on a spiral cone with a little radial jitter.
func TreeTargets(n int, rng *rand.Rand) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		t := float64(i) / math.Max(1, float64(n-1))
		radius := treeRadius * (1 - t) * (0.85 + rng.Float64()*0.3)
		angle := t*treeTurns*2*math.Pi + rng.Float64()*0.4

		out[i] = r3.Vec{
			X: radius * math.Cos(angle),
			Y: -treeHeight/2 + t*treeHeight,
			Z: radius * math.Sin(angle),
		}
	}
	return out
}

// ExplodeTargets scatters n points over a thick spherical shell.
func ExplodeTargets(n int, rng *rand.Rand) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		dir := r3.Unit(r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()})
		out[i] = r3.Scale(explodeRadius*(0.6+rng.Float64()*0.4), dir)
	}
	return out
}

package particles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTreeTargets(t *testing.T) {
	points := TreeTargets(500, newTestRand())
	require.Len(t, points, 500)

	for i, p := range points {
		assert.GreaterOrEqual(t, p.Y, -treeHeight/2-1e-9, "point %d below the base", i)
		assert.LessOrEqual(t, p.Y, treeHeight/2+1e-9, "point %d above the tip", i)
		horizontal := r3.Norm(r3.Vec{X: p.X, Z: p.Z})
		assert.LessOrEqual(t, horizontal, treeRadius*1.15+1e-9, "point %d outside the cone", i)
	}

	// The cone narrows toward the tip.
	base := r3.Norm(r3.Vec{X: points[0].X, Z: points[0].Z})
	tip := r3.Norm(r3.Vec{X: points[499].X, Z: points[499].Z})
	assert.Greater(t, base, tip)
}

func TestExplodeTargets(t *testing.T) {
	points := ExplodeTargets(500, newTestRand())
	require.Len(t, points, 500)

	for i, p := range points {
		n := r3.Norm(p)
		assert.GreaterOrEqual(t, n, explodeRadius*0.6-1e-9, "point %d inside the shell", i)
		assert.LessOrEqual(t, n, explodeRadius+1e-9, "point %d outside the shell", i)
	}
}

func TestLayouts_Reproducible(t *testing.T) {
	assert.Equal(t, TreeTargets(50, newTestRand()), TreeTargets(50, newTestRand()))
	assert.Equal(t, ExplodeTargets(50, newTestRand()), ExplodeTargets(50, newTestRand()))
}

func TestLayouts_Tiny(t *testing.T) {
	assert.Empty(t, TreeTargets(0, newTestRand()))
	one := TreeTargets(1, newTestRand())
	require.Len(t, one, 1)
	assert.InDelta(t, -treeHeight/2, one[0].Y, 1e-9)
}

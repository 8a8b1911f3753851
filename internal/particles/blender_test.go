package particles

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/formation"
)

const frame = 16 * time.Millisecond

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func newTestBlender(count int) *Blender {
	cfg := DefaultConfig()
	cfg.Count = count
	return New(cfg, newTestRand())
}

func TestNew(t *testing.T) {
	b := newTestBlender(200)

	require.Equal(t, 200, b.Len())
	for i, p := range b.Particles() {
		assert.Equal(t, i, p.ID)
		assert.Equal(t, p.TreeTarget, p.TextTarget, "text target defaults to tree target")
		assert.Equal(t, p.TreeTarget, p.Position)
		assert.GreaterOrEqual(t, p.BaseScale, 0.6)
	}
	assert.False(t, b.TextReady())
}

func TestNew_ColorWeights(t *testing.T) {
	b := newTestBlender(10000)

	counts := map[ColorClass]int{}
	for _, p := range b.Particles() {
		counts[p.Color]++
	}

	assert.InDelta(t, 0.7, float64(counts[ColorGold])/10000, 0.03)
	assert.InDelta(t, 0.2, float64(counts[ColorCrimson])/10000, 0.03)
	assert.InDelta(t, 0.1, float64(counts[ColorIvory])/10000, 0.03)
}

func TestTick_Converges(t *testing.T) {
	b := newTestBlender(50)

	dist := func() []float64 {
		ps := b.Particles()
		out := make([]float64, len(ps))
		for i, p := range ps {
			out[i] = r3.Norm(r3.Sub(p.ExplodeTarget, p.Position))
		}
		return out
	}

	prev := dist()
	for tick := 0; tick < 600; tick++ {
		b.Tick(formation.Explode, frame)
		cur := dist()
		for i := range cur {
			if prev[i] > 1e-12 {
				require.Less(t, cur[i], prev[i], "particle %d moved away at tick %d", i, tick)
			}
		}
		prev = cur
	}

	for i, d := range prev {
		assert.Less(t, d, 1e-3, "particle %d not converged", i)
	}
}

func TestTick_LerpStep(t *testing.T) {
	b := newTestBlender(1)
	p := b.Particles()[0]

	b.Tick(formation.Explode, frame)

	want := r3.Add(p.Position, r3.Scale(0.03, r3.Sub(p.ExplodeTarget, p.Position)))
	got := b.Particles()[0].Position
	assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), 1e-9)
}

func TestTick_RotationIndependentOfState(t *testing.T) {
	b := newTestBlender(10)
	before := b.Particles()

	for _, s := range []formation.State{formation.Tree, formation.Explode, formation.Text} {
		b.Tick(s, frame)
	}

	for i, p := range b.Particles() {
		want := r3.Add(before[i].Rotation, r3.Scale(3, before[i].Spin))
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want, p.Rotation)), 1e-12)
	}
}

func TestTick_WobbleOnlyWhenExploded(t *testing.T) {
	b := newTestBlender(20)

	b.Tick(formation.Explode, 250*time.Millisecond)
	ps := b.Particles()
	moved := 0
	for i, inst := range b.Render() {
		off := r3.Norm(r3.Sub(inst.Position, ps[i].Position))
		assert.LessOrEqual(t, off, math.Sqrt(3)*1.5+1e-9)
		if off > 0 {
			moved++
		}
	}
	assert.Positive(t, moved, "explode should add a wobble offset")

	b.Tick(formation.Tree, frame)
	ps = b.Particles()
	for i, inst := range b.Render() {
		assert.Equal(t, ps[i].Position, inst.Position)
	}
}

func TestApplyTextTargets(t *testing.T) {
	b := newTestBlender(10)

	assert.False(t, b.ApplyTextTargets(nil), "empty asset is ignored")
	assert.False(t, b.TextReady())

	// Until the asset lands, TEXT blends toward the tree.
	b.Tick(formation.Text, frame)
	for _, p := range b.Particles() {
		assert.Equal(t, p.TreeTarget, p.Target(formation.Text))
	}

	points := []r3.Vec{{X: 1}, {X: 2}, {X: 3}}
	require.True(t, b.ApplyTextTargets(points))
	assert.True(t, b.TextReady())
	for i, p := range b.Particles() {
		assert.Equal(t, points[i%3], p.TextTarget)
	}

	assert.False(t, b.ApplyTextTargets([]r3.Vec{{Y: 9}}), "targets are immutable once applied")
	assert.Equal(t, points[0], b.Particles()[0].TextTarget)
}

func TestGlobalScale(t *testing.T) {
	b := newTestBlender(5)

	require.NoError(t, b.SetGlobalScale(2.5))
	assert.Equal(t, 2.5, b.GlobalScale())

	ps := b.Particles()
	for i, inst := range b.Render() {
		assert.InDelta(t, ps[i].BaseScale*2.5, inst.Scale, 1e-12)
	}

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, b.SetGlobalScale(bad), ErrInvalidScale)
	}
	assert.Equal(t, 2.5, b.GlobalScale())
}

func TestLayoutText(t *testing.T) {
	points, err := LayoutText("HI", 300, 100, newTestRand())
	require.NoError(t, err)
	require.Len(t, points, 300)

	for _, p := range points {
		assert.LessOrEqual(t, math.Abs(p.X), 50.0+1e-9)
		assert.LessOrEqual(t, math.Abs(p.Z), textDepth/2)
	}

	_, err = LayoutText("", 10, 100, newTestRand())
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = LayoutText("   ", 10, 100, newTestRand())
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGlyphPixels_MultiLine(t *testing.T) {
	one, b1 := GlyphPixels("A")
	two, b2 := GlyphPixels("A\nA")

	assert.NotEmpty(t, one)
	assert.Equal(t, 2*b1.Dy(), b2.Dy())
	assert.Len(t, two, 2*len(one))
}

package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
)

func extract(t *testing.T, lm detector.HandLandmarks) Features {
	t.Helper()
	f, err := NewExtractor(DefaultConfig()).Extract(lm.Points[:])
	require.NoError(t, err)
	return f
}

func TestExtract_FingerExtension(t *testing.T) {
	tests := []struct {
		name     string
		pose     detector.HandLandmarks
		fingers  [4]bool
		thumbExt bool
	}{
		{"fist", detector.FistLandmarks(), [4]bool{}, false},
		{"open palm", detector.OpenPalmLandmarks(), [4]bool{true, true, true, true}, true},
		{"index point", detector.IndexPointLandmarks(), [4]bool{true, false, false, false}, false},
		{"thumb point", detector.ThumbPointLandmarks(), [4]bool{}, true},
		{"peace sign", detector.PoseLandmarks(false, true, true, false, false), [4]bool{true, true, false, false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extract(t, tt.pose)
			assert.Equal(t, tt.fingers, f.FingerExtended)
			assert.Equal(t, tt.thumbExt, f.ThumbExtended)
		})
	}
}

func TestExtract_PalmScale(t *testing.T) {
	f := extract(t, detector.FistLandmarks())
	assert.InDelta(t, 0.15, f.PalmScale, 1e-9)
}

func TestExtract_SpreadRange(t *testing.T) {
	fist := extract(t, detector.FistLandmarks())
	open := extract(t, detector.OpenPalmLandmarks())

	assert.Less(t, fist.Spread, 0.5)
	assert.Greater(t, open.Spread, 0.9)
	assert.Greater(t, open.Spread, fist.Spread)
}

func TestExtract_SpreadIsScaleInvariant(t *testing.T) {
	base := detector.OpenPalmLandmarks()
	want := extract(t, base).Spread

	for _, factor := range []float64{0.25, 0.5, 2, 7.5} {
		scaled := base
		for i := range scaled.Points {
			scaled.Points[i] = scaled.Points[i].Scale(factor)
		}

		f := extract(t, scaled)
		assert.InDelta(t, want, f.Spread, 1e-9, "factor %v", factor)
		assert.InDelta(t, 0.15*factor, f.PalmScale, 1e-9, "factor %v", factor)
		assert.Equal(t, extract(t, base).FingerExtended, f.FingerExtended, "factor %v", factor)
	}
}

func TestExtract_InvalidInput(t *testing.T) {
	ex := NewExtractor(DefaultConfig())

	t.Run("too few landmarks", func(t *testing.T) {
		lm := detector.OpenPalmLandmarks()
		_, err := ex.Extract(lm.Points[:20])
		assert.ErrorIs(t, err, ErrTooFewLandmarks)
	})

	t.Run("nil pose", func(t *testing.T) {
		_, err := ex.Extract(nil)
		assert.ErrorIs(t, err, ErrTooFewLandmarks)
	})

	t.Run("non-finite coordinate", func(t *testing.T) {
		lm := detector.OpenPalmLandmarks()
		lm.Points[detector.RingDIP].Y = math.NaN()
		_, err := ex.Extract(lm.Points[:])
		assert.ErrorIs(t, err, ErrNonFinite)
	})

	t.Run("degenerate palm", func(t *testing.T) {
		var lm detector.HandLandmarks
		_, err := ex.Extract(lm.Points[:])
		assert.ErrorIs(t, err, ErrDegeneratePalm)
	})
}

func TestCentroid(t *testing.T) {
	points := []detector.Point3D{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2, Z: 4}}

	assert.Equal(t, detector.Point3D{X: 1, Y: 1, Z: 1}, Centroid(points))
	assert.Equal(t, detector.Point3D{X: 1, Y: 0}, Centroid(points, 0, 1))
	assert.Equal(t, detector.Point3D{}, Centroid(nil))
}

func TestNewExtractor_Defaults(t *testing.T) {
	ex := NewExtractor(Config{})
	assert.Equal(t, DefaultConfig(), ex.Config())
}

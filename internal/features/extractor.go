// Package features computes scale-normalized hand geometry from landmark coordinates.
package features

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
)

// minPalmScale guards the division by palm scale.
const minPalmScale = 1e-6

var (
	// ErrTooFewLandmarks is returned for poses with fewer than 21 points.
	ErrTooFewLandmarks = errors.New("pose has fewer than 21 landmarks")
	// ErrNonFinite is returned when any coordinate is NaN or infinite.
	ErrNonFinite = errors.New("pose has a non-finite coordinate")
	// ErrDegeneratePalm is returned when wrist and middle MCP coincide.
	ErrDegeneratePalm = errors.New("pose has zero palm scale")
)

// Finger identifies one of the four non-thumb fingers.
type Finger int

const (
	Index Finger = iota
	Middle
	Ring
	Pinky
)

// fingerJoints maps each finger to its tip and PIP landmark indices.
var fingerJoints = [4][2]int{
	Index:  {detector.IndexTip, detector.IndexPIP},
	Middle: {detector.MiddleTip, detector.MiddlePIP},
	Ring:   {detector.RingTip, detector.RingPIP},
	Pinky:  {detector.PinkyTip, detector.PinkyPIP},
}

// Config holds the extension tolerances, expressed as fractions of palm scale.
type Config struct {
	FingerTolerance float64
	ThumbTolerance  float64
}

// DefaultConfig returns the empirically tuned tolerances.
func DefaultConfig() Config {
	return Config{
		FingerTolerance: 0.15,
		ThumbTolerance:  0.1,
	}
}

// Features is the geometry of one hand pose.
type Features struct {
	// PalmScale is the wrist to middle MCP distance, the unit for every threshold.
	PalmScale      float64
	FingerExtended [4]bool
	ThumbExtended  bool
	// Centroid is the mean of the five fingertips.
	Centroid detector.Point3D
	// Spread is the mean fingertip distance to Centroid divided by PalmScale.
	// Roughly 0.3 for a fist and 1.3 for a fully open hand.
	Spread float64
	// Points are the landmarks the features were computed from.
	Points [detector.NumLandmarks]detector.Point3D
}

// Extended reports whether finger f is extended.
func (f Features) Extended(finger Finger) bool {
	return f.FingerExtended[finger]
}

// Extractor computes Features from raw landmarks.
type Extractor struct {
	config Config
}

// NewExtractor creates an Extractor. Non-positive tolerances fall back to defaults.
func NewExtractor(config Config) *Extractor {
	def := DefaultConfig()
	if config.FingerTolerance <= 0 {
		config.FingerTolerance = def.FingerTolerance
	}
	if config.ThumbTolerance <= 0 {
		config.ThumbTolerance = def.ThumbTolerance
	}
	return &Extractor{config: config}
}

// Config returns the extractor's tolerances.
func (e *Extractor) Config() Config {
	return e.config
}

// Extract validates points and computes their features. Invalid input is
// reported as an error and never substituted with defaults.
func (e *Extractor) Extract(points []detector.Point3D) (Features, error) {
	if len(points) < detector.NumLandmarks {
		return Features{}, ErrTooFewLandmarks
	}

	var f Features
	for i := 0; i < detector.NumLandmarks; i++ {
		if !points[i].IsFinite() {
			return Features{}, ErrNonFinite
		}
		f.Points[i] = points[i]
	}

	f.PalmScale = detector.Distance(f.Points[detector.Wrist], f.Points[detector.MiddleMCP])
	if f.PalmScale < minPalmScale {
		return Features{}, ErrDegeneratePalm
	}

	for finger, joints := range fingerJoints {
		f.FingerExtended[finger] = e.fingerExtended(&f, joints[0], joints[1])
	}
	f.ThumbExtended = e.thumbExtended(&f)

	f.Centroid = Centroid(f.Points[:], detector.Fingertips[:]...)
	f.Spread = spread(&f)

	return f, nil
}

// fingerExtended compares tip and PIP distances to the wrist; the margin
// scales with palm size so the rule holds at any distance from the camera.
func (e *Extractor) fingerExtended(f *Features, tip, pip int) bool {
	wrist := f.Points[detector.Wrist]
	return detector.Distance(f.Points[tip], wrist) >
		detector.Distance(f.Points[pip], wrist)+f.PalmScale*e.config.FingerTolerance
}

// thumbExtended measures against the pinky MCP because the thumb flexes
// across the palm rather than toward the wrist.
func (e *Extractor) thumbExtended(f *Features) bool {
	pinky := f.Points[detector.PinkyMCP]
	return detector.Distance(f.Points[detector.ThumbTip], pinky) >
		detector.Distance(f.Points[detector.ThumbIP], pinky)+f.PalmScale*e.config.ThumbTolerance
}

func spread(f *Features) float64 {
	dists := make([]float64, len(detector.Fingertips))
	for i, idx := range detector.Fingertips {
		dists[i] = detector.Distance(f.Points[idx], f.Centroid)
	}
	return stat.Mean(dists, nil) / f.PalmScale
}

// Centroid returns the arithmetic mean of points at the given indices.
// With no indices it averages every point.
func Centroid(points []detector.Point3D, indices ...int) detector.Point3D {
	if len(indices) == 0 {
		indices = make([]int, len(points))
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) == 0 {
		return detector.Point3D{}
	}

	var c detector.Point3D
	for _, idx := range indices {
		c.X += points[idx].X
		c.Y += points[idx].Y
		c.Z += points[idx].Z
	}
	n := float64(len(indices))
	return detector.Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// Package gesture turns hand features into a gesture label and a 2D target point.
package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
)

// Kind is the gesture label reported per frame.
type Kind string

const (
	// KindNone means no hand was detected.
	KindNone Kind = "NONE"
	// KindGeneral is any hand shape that is not a pointing pose.
	KindGeneral Kind = "GENERAL"
	// KindPointing is an index or thumb point with the other fingers curled.
	KindPointing Kind = "POINTING"
)

// Classification is the result of classifying one pose.
type Classification struct {
	Kind Kind
	// Source is the landmark index the target came from, or -1 for the
	// fingertip centroid.
	Source int
	// Target is the unmirrored target point.
	Target detector.Point3D
	// X and Y are the target in screen space: X is mirrored when
	// Config.Mirror is set, Y passes through.
	X, Y float64
}

// Config holds classifier options.
type Config struct {
	// Mirror flips X to match a front-facing camera preview.
	Mirror bool
}

// DefaultConfig returns the configuration for a mirrored selfie view.
func DefaultConfig() Config {
	return Config{Mirror: true}
}

// Classifier maps Features to a Classification.
type Classifier struct {
	config Config
}

// NewClassifier creates a Classifier.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Classify applies the pointing rules in priority order. An extended index
// wins over an extended thumb; anything else is GENERAL aimed at the
// fingertip centroid.
func (c *Classifier) Classify(f features.Features) Classification {
	othersCurled := !f.Extended(features.Middle) &&
		!f.Extended(features.Ring) &&
		!f.Extended(features.Pinky)

	result := Classification{Kind: KindGeneral, Source: -1, Target: f.Centroid}

	switch {
	case othersCurled && f.Extended(features.Index):
		result = Classification{Kind: KindPointing, Source: detector.IndexTip, Target: f.Points[detector.IndexTip]}
	case othersCurled && f.ThumbExtended:
		result = Classification{Kind: KindPointing, Source: detector.ThumbTip, Target: f.Points[detector.ThumbTip]}
	}

	result.X = result.Target.X
	if c.config.Mirror {
		result.X = 1 - result.X
	}
	result.Y = result.Target.Y

	return result
}

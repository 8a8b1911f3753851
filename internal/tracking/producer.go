// Package tracking produces one TrackingResult per frame from raw hand landmarks.
package tracking

import (
	"fmt"
	"log"
	"math"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/gesture"
)

// Result is the per-frame tracking output. It is a value: consumers get a
// fresh copy each tick and never mutate it.
type Result struct {
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	IsDetected bool         `json:"isDetected"`
	Gesture    gesture.Kind `json:"gesture"`
	// HandSpread is the normalized [0,1] spread, meaningful only when
	// IsDetected is true.
	HandSpread float64 `json:"handSpread"`
}

// NoDetection returns the neutral result reported whenever no usable hand
// is present.
func NoDetection() Result {
	return Result{X: 0.5, Y: 0.5, IsDetected: false, Gesture: gesture.KindNone, HandSpread: 0}
}

// Frame is one perception sample: the reported hands and the dimensions of
// the image they came from.
type Frame struct {
	Width  int
	Height int
	Hands  []detector.HandLandmarks
}

// Config holds the spread remapping and the stage configs.
type Config struct {
	Features features.Config
	Gesture  gesture.Config
	// SpreadFloor is the raw spread mapped to 0.
	SpreadFloor float64
	// SpreadRange is the raw spread span mapped onto [0,1].
	SpreadRange float64
}

// DefaultConfig returns the tuned remapping of roughly 0.35..1.0 raw spread.
func DefaultConfig() Config {
	return Config{
		Features:    features.DefaultConfig(),
		Gesture:     gesture.DefaultConfig(),
		SpreadFloor: 0.35,
		SpreadRange: 0.65,
	}
}

// Producer runs feature extraction and classification for each frame.
type Producer struct {
	config     Config
	extract    func([]detector.Point3D) (features.Features, error)
	classifier *gesture.Classifier
	failing    bool
}

// NewProducer creates a Producer.
func NewProducer(config Config) *Producer {
	if config.SpreadRange <= 0 {
		config.SpreadRange = DefaultConfig().SpreadRange
	}
	return &Producer{
		config:     config,
		extract:    features.NewExtractor(config.Features).Extract,
		classifier: gesture.NewClassifier(config.Gesture),
	}
}

// NormalizeSpread maps a raw spread into the [0,1] control range.
func (p *Producer) NormalizeSpread(raw float64) float64 {
	return NormalizeSpread(raw, p.config.SpreadFloor, p.config.SpreadRange)
}

// NormalizeSpread computes clamp((raw-floor)/span, 0, 1).
func NormalizeSpread(raw, floor, span float64) float64 {
	v := (raw - floor) / span
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Process returns the tracking result for one frame. It never fails: bad
// frames, extraction errors and panics all become NoDetection.
func (p *Producer) Process(frame Frame) Result {
	if len(frame.Hands) == 0 || frame.Width <= 0 || frame.Height <= 0 {
		return NoDetection()
	}

	res, err := p.process(&frame.Hands[0])
	if err != nil {
		if !p.failing {
			log.Printf("Tracking frame dropped: %v", err)
		}
		p.failing = true
		return NoDetection()
	}

	if p.failing {
		log.Println("Tracking recovered")
	}
	p.failing = false
	return res
}

func (p *Producer) process(hand *detector.HandLandmarks) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("feature pipeline panic: %v", r)
		}
	}()

	f, err := p.extract(hand.Points[:])
	if err != nil {
		return Result{}, err
	}

	c := p.classifier.Classify(f)
	return Result{
		X:          c.X,
		Y:          c.Y,
		IsDetected: true,
		Gesture:    c.Kind,
		HandSpread: p.NormalizeSpread(f.Spread),
	}, nil
}

// Package steering maps tracking output to camera orbit angles and zoom.
package steering

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/tracking"
)

var yAxis = r3.Vec{Y: 1}

// Config holds camera steering parameters.
type Config struct {
	// Easing is the fraction of the remaining distance covered per tick,
	// for both position and radius.
	Easing float64
	// FarRadius is the orbit radius at zero spread.
	FarRadius float64
	// NearRadius is the orbit radius at full spread.
	NearRadius float64
	// AutoRotateSpeed is the orbit advance per tick, in radians, while
	// auto-rotating.
	AutoRotateSpeed float64
}

// DefaultConfig returns radius 200 at a closed hand and 55 fully open.
func DefaultConfig() Config {
	return Config{
		Easing:          0.1,
		FarRadius:       200,
		NearRadius:      55,
		AutoRotateSpeed: 0.004,
	}
}

// Camera is the steered camera state.
type Camera struct {
	Position   r3.Vec `json:"position"`
	AutoRotate bool   `json:"autoRotate"`
}

// Steering eases the camera toward pointing targets and spread-driven zoom.
type Steering struct {
	config     Config
	position   r3.Vec
	autoRotate bool
}

// New creates a Steering with the camera on the +Z axis at FarRadius.
func New(config Config) *Steering {
	if config.Easing <= 0 || config.Easing > 1 {
		config.Easing = DefaultConfig().Easing
	}
	return &Steering{
		config:     config,
		position:   r3.Vec{Z: config.FarRadius},
		autoRotate: true,
	}
}

// Angles maps a screen target to spherical angles: azimuth spans two full
// turns across the frame and polar spans pole to pole top to bottom.
func Angles(x, y float64) (azimuth, polar float64) {
	return -(x - 0.5) * 4 * math.Pi, y * math.Pi
}

// Spherical converts radius, polar and azimuth angles to a position with Y up.
func Spherical(radius, polar, azimuth float64) r3.Vec {
	s := math.Sin(polar)
	return r3.Vec{
		X: radius * s * math.Sin(azimuth),
		Y: radius * math.Cos(polar),
		Z: radius * s * math.Cos(azimuth),
	}
}

// Radius returns the orbit radius for a normalized spread.
func (s *Steering) Radius(spread float64) float64 {
	return s.config.FarRadius - spread*(s.config.FarRadius-s.config.NearRadius)
}

// Update advances the camera by one tick for result r.
func (s *Steering) Update(r tracking.Result) {
	if r.IsDetected && r.Gesture == gesture.KindPointing {
		s.autoRotate = false

		azimuth, polar := Angles(r.X, r.Y)
		target := Spherical(r3.Norm(s.position), polar, azimuth)
		s.position = r3.Add(s.position, r3.Scale(s.config.Easing, r3.Sub(target, s.position)))
	} else {
		s.autoRotate = true
	}

	if s.autoRotate {
		s.position = r3.Rotate(s.position, s.config.AutoRotateSpeed, yAxis)
	}

	if r.IsDetected {
		length := r3.Norm(s.position)
		if length > 0 {
			next := length + (s.Radius(r.HandSpread)-length)*s.config.Easing
			s.position = r3.Scale(next/length, s.position)
		}
	}
}

// SetAutoRotate overrides the auto-rotate flag until the next Update.
func (s *Steering) SetAutoRotate(on bool) {
	s.autoRotate = on
}

// AutoRotate reports whether the camera is orbiting on its own.
func (s *Steering) AutoRotate() bool {
	return s.autoRotate
}

// Camera returns the current camera state.
func (s *Steering) Camera() Camera {
	return Camera{Position: s.position, AutoRotate: s.autoRotate}
}

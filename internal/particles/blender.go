package particles

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/formation"
)

// ErrInvalidScale is returned for a non-positive or non-finite global scale.
var ErrInvalidScale = errors.New("global scale must be a positive number")

// Config holds the particle field parameters.
type Config struct {
	Count int
	// BlendRate is the fraction of the remaining distance covered per tick.
	BlendRate float64
	// WobbleAmplitude is the peak cosmetic offset applied while exploded.
	WobbleAmplitude float64
	// WobbleSpeed is the wobble angular frequency in radians per second.
	WobbleSpeed float64
	// GlobalScale multiplies every particle's base scale.
	GlobalScale float64
}

// DefaultConfig returns the standard field.
func DefaultConfig() Config {
	return Config{
		Count:           1500,
		BlendRate:       0.03,
		WobbleAmplitude: 1.5,
		WobbleSpeed:     2.0,
		GlobalScale:     1.0,
	}
}

// Instance is the render state of one particle for a single tick.
type Instance struct {
	ID       int        `json:"id"`
	Shape    Shape      `json:"shape"`
	Color    ColorClass `json:"color"`
	Position r3.Vec     `json:"position"`
	Scale    float64    `json:"scale"`
	Rotation r3.Vec     `json:"rotation"`
}

// Blender moves the particle field toward the active formation. All
// methods serialize on one lock, so a tick is applied atomically with
// respect to readers on other goroutines.
type Blender struct {
	config    Config
	particles []Particle
	textReady bool
	clock     time.Duration
	mu        sync.Mutex
}

// New builds a field of config.Count particles. Text targets start out as
// the tree targets until ApplyTextTargets is called.
func New(config Config, rng *rand.Rand) *Blender {
	def := DefaultConfig()
	if config.Count <= 0 {
		config.Count = def.Count
	}
	if config.BlendRate <= 0 || config.BlendRate > 1 {
		config.BlendRate = def.BlendRate
	}
	if config.GlobalScale <= 0 {
		config.GlobalScale = def.GlobalScale
	}

	tree := TreeTargets(config.Count, rng)
	explode := ExplodeTargets(config.Count, rng)

	particles := make([]Particle, config.Count)
	for i := range particles {
		particles[i] = newParticle(i, tree[i], explode[i], rng)
	}

	return &Blender{config: config, particles: particles}
}

// Len returns the number of particles.
func (b *Blender) Len() int {
	return len(b.particles)
}

// Tick advances the field by one frame toward state. elapsed is the time
// since the previous tick and only drives the cosmetic wobble.
func (b *Blender) Tick(state formation.State, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clock += elapsed
	t := b.clock.Seconds()
	rate := b.config.BlendRate

	for i := range b.particles {
		p := &b.particles[i]

		p.Position = r3.Add(p.Position, r3.Scale(rate, r3.Sub(p.Target(state), p.Position)))
		p.Rotation = r3.Add(p.Rotation, p.Spin)

		if state == formation.Explode {
			w := t*b.config.WobbleSpeed + p.phase
			p.offset = r3.Scale(b.config.WobbleAmplitude, r3.Vec{
				X: math.Sin(w),
				Y: math.Cos(w * 0.8),
				Z: math.Sin(w * 1.3),
			})
		} else {
			p.offset = r3.Vec{}
		}
	}
}

// ApplyTextTargets installs the text formation. It succeeds once; later
// calls and empty input are ignored and report false.
func (b *Blender) ApplyTextTargets(points []r3.Vec) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.textReady || len(points) == 0 {
		return false
	}
	for i := range b.particles {
		b.particles[i].TextTarget = points[i%len(points)]
	}
	b.textReady = true
	return true
}

// TextReady reports whether the text formation has been applied.
func (b *Blender) TextReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textReady
}

// SetGlobalScale sets the multiplier applied to every base scale.
func (b *Blender) SetGlobalScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return ErrInvalidScale
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.GlobalScale = scale
	return nil
}

// GlobalScale returns the current scale multiplier.
func (b *Blender) GlobalScale() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config.GlobalScale
}

// Render returns the displayed state of every particle, including the
// wobble offset, as a copy the caller owns.
func (b *Blender) Render() []Instance {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Instance, len(b.particles))
	for i := range b.particles {
		p := &b.particles[i]
		out[i] = Instance{
			ID:       p.ID,
			Shape:    p.Shape,
			Color:    p.Color,
			Position: r3.Add(p.Position, p.offset),
			Scale:    p.BaseScale * b.config.GlobalScale,
			Rotation: p.Rotation,
		}
	}
	return out
}

// Particles returns a copy of the particle records.
func (b *Blender) Particles() []Particle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Particle(nil), b.particles...)
}

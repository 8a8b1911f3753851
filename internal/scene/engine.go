// Package scene runs the per-tick core: tracking, formation state, camera
// steering and particle blending.
package scene

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/formation"
	"github.com/ayusman/mudra/internal/particles"
	"github.com/ayusman/mudra/internal/steering"
	"github.com/ayusman/mudra/internal/tracking"
)

// Config bundles the configuration of every core stage.
type Config struct {
	Tracking  tracking.Config
	Formation formation.Config
	Particles particles.Config
	Steering  steering.Config
	// Seed makes particle layout reproducible.
	Seed uint64
}

// DefaultConfig returns the default configuration of every stage.
func DefaultConfig() Config {
	return Config{
		Tracking:  tracking.DefaultConfig(),
		Formation: formation.DefaultConfig(),
		Particles: particles.DefaultConfig(),
		Steering:  steering.DefaultConfig(),
		Seed:      1,
	}
}

// FrameContext is everything one tick needs from the host.
type FrameContext struct {
	// Hands reported by the perception source; only the first is used.
	Hands []detector.HandLandmarks
	// Width and Height of the source image. Zero means no usable frame.
	Width, Height int
	// TimestampMs is monotonically increasing across ticks.
	TimestampMs int64
	// Elapsed is the time since the previous tick.
	Elapsed time.Duration
}

// Snapshot is the result of one tick.
type Snapshot struct {
	TimestampMs int64                 `json:"timestamp"`
	Tracking    tracking.Result       `json:"tracking"`
	Formation   formation.State       `json:"formation"`
	TextReady   bool                  `json:"textReady"`
	Camera      steering.Camera       `json:"camera"`
	Transition  *formation.Transition `json:"transition,omitempty"`
	Particles   []particles.Instance  `json:"particles,omitempty"`
}

// Engine owns the core state. Tick holds the engine lock for its whole
// duration so concurrent readers never see a partially applied tick.
type Engine struct {
	producer *tracking.Producer
	machine  *formation.Machine
	steering *steering.Steering
	blender  *particles.Blender

	pendingText []r3.Vec
	last        Snapshot
	mu          sync.Mutex
}

// New creates an Engine.
func New(config Config) *Engine {
	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))
	return &Engine{
		producer: tracking.NewProducer(config.Tracking),
		machine:  formation.NewMachine(config.Formation),
		steering: steering.New(config.Steering),
		blender:  particles.New(config.Particles, rng),
		last: Snapshot{
			Tracking:  tracking.NoDetection(),
			Formation: formation.Tree,
		},
	}
}

// Tick runs one frame: tracking, formation update, camera steering and
// particle blending, in that order. Particles are not included in the
// returned snapshot; use Render for those.
func (e *Engine) Tick(fc FrameContext) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingText != nil {
		if e.blender.ApplyTextTargets(e.pendingText) {
			log.Printf("Text formation ready (%d targets)", len(e.pendingText))
		}
		e.pendingText = nil
	}

	res := e.producer.Process(tracking.Frame{Width: fc.Width, Height: fc.Height, Hands: fc.Hands})

	var transition *formation.Transition
	if res.IsDetected {
		if tr, ok := e.machine.Update(res.HandSpread, fc.TimestampMs); ok {
			transition = &tr
			log.Printf("Formation %s -> %s (velocity %.2f)", tr.From, tr.To, tr.Velocity)
		}
	}

	e.steering.Update(res)
	if transition != nil {
		e.steering.SetAutoRotate(transition.AutoRotate)
	}

	e.blender.Tick(e.machine.State(), fc.Elapsed)

	e.last = Snapshot{
		TimestampMs: fc.TimestampMs,
		Tracking:    res,
		Formation:   e.machine.State(),
		TextReady:   e.blender.TextReady(),
		Camera:      e.steering.Camera(),
		Transition:  transition,
	}
	return e.last
}

// Last returns the snapshot of the most recent tick.
func (e *Engine) Last() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Render returns the most recent snapshot with particle instances attached.
func (e *Engine) Render() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.last
	s.Particles = e.blender.Render()
	return s
}

// State returns the active formation.
func (e *Engine) State() formation.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.State()
}

// QueueTextTargets hands a prepared text layout to the engine. It is applied
// at the start of the next tick, so asset loading on another goroutine never
// races a blend.
func (e *Engine) QueueTextTargets(points []r3.Vec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingText = points
}

// ParticleCount returns the size of the particle field.
func (e *Engine) ParticleCount() int {
	return e.blender.Len()
}

// SetGlobalScale sets the particle scale multiplier.
func (e *Engine) SetGlobalScale(scale float64) error {
	return e.blender.SetGlobalScale(scale)
}

// GlobalScale returns the particle scale multiplier.
func (e *Engine) GlobalScale() float64 {
	return e.blender.GlobalScale()
}

// Reset returns the formation to Tree. Particles keep their positions and
// blend back from wherever they are.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.machine.Reset()
	e.last.Formation = e.machine.State()
}

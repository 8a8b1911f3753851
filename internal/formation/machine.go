// Package formation holds the three-state formation controller driven by
// hand spread velocity.
package formation

import "time"

// State is the active particle formation.
type State int

const (
	Tree State = iota
	Explode
	Text
)

// String returns the display label for s.
func (s State) String() string {
	switch s {
	case Tree:
		return "TREE"
	case Explode:
		return "EXPLODE"
	case Text:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by label.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the velocity thresholds and timing of the machine.
type Config struct {
	// SampleInterval is the minimum gap between velocity samples.
	SampleInterval time.Duration
	// Cooldown is the minimum time between two transitions.
	Cooldown time.Duration
	// ExpandVelocity is the spread velocity (units/s) above which an open
	// gesture counts as a rapid expand.
	ExpandVelocity float64
	// ContractVelocity is the (negative) velocity below which a closing
	// gesture counts as a rapid contract.
	ContractVelocity float64
}

// DefaultConfig returns the tuned thresholds. Expand and contract are
// deliberately asymmetric.
func DefaultConfig() Config {
	return Config{
		SampleInterval:   100 * time.Millisecond,
		Cooldown:         800 * time.Millisecond,
		ExpandVelocity:   2.0,
		ContractVelocity: -1.0,
	}
}

// Transition describes a state change.
type Transition struct {
	From     State
	To       State
	AtMs     int64
	Velocity float64
	// AutoRotate is the camera auto-rotate setting requested by the change.
	AutoRotate bool
}

// Machine is the formation state machine. It is not safe for concurrent use.
type Machine struct {
	config Config
	state  State

	lastSpread   float64
	lastSampleMs int64
	sampled      bool

	lastTransitionMs int64
	transitioned     bool
	autoRotate       bool
}

// NewMachine creates a Machine in the Tree state.
func NewMachine(config Config) *Machine {
	def := DefaultConfig()
	if config.SampleInterval <= 0 {
		config.SampleInterval = def.SampleInterval
	}
	if config.Cooldown < 0 {
		config.Cooldown = def.Cooldown
	}
	return &Machine{config: config, state: Tree, autoRotate: true}
}

// State returns the active formation.
func (m *Machine) State() State {
	return m.state
}

// AutoRotate reports the auto-rotate setting left by the last transition.
func (m *Machine) AutoRotate() bool {
	return m.autoRotate
}

// Velocity computes the spread velocity between two samples in units per second.
func Velocity(prevSpread, spread float64, prevMs, nowMs int64) float64 {
	dt := float64(nowMs-prevMs) / 1000
	if dt <= 0 {
		return 0
	}
	return (spread - prevSpread) / dt
}

// Update feeds one normalized spread sample taken at nowMs and returns the
// transition it caused, if any. Samples closer than SampleInterval to the
// previous one are ignored entirely.
func (m *Machine) Update(spread float64, nowMs int64) (Transition, bool) {
	if !m.sampled {
		m.lastSpread, m.lastSampleMs, m.sampled = spread, nowMs, true
		return Transition{}, false
	}

	if nowMs-m.lastSampleMs <= m.config.SampleInterval.Milliseconds() {
		return Transition{}, false
	}

	velocity := Velocity(m.lastSpread, spread, m.lastSampleMs, nowMs)
	m.lastSpread, m.lastSampleMs = spread, nowMs

	if m.transitioned && nowMs-m.lastTransitionMs <= m.config.Cooldown.Milliseconds() {
		return Transition{}, false
	}

	next, ok := m.next(velocity)
	if !ok {
		return Transition{}, false
	}

	tr := Transition{From: m.state, To: next, AtMs: nowMs, Velocity: velocity, AutoRotate: false}
	m.state = next
	m.lastTransitionMs = nowMs
	m.transitioned = true
	m.autoRotate = tr.AutoRotate
	return tr, true
}

// next applies the transition table. Contracting in Tree or Text and
// expanding in Explode are no-ops.
func (m *Machine) next(velocity float64) (State, bool) {
	switch {
	case m.state == Tree && velocity > m.config.ExpandVelocity:
		return Explode, true
	case m.state == Text && velocity > m.config.ExpandVelocity:
		return Tree, true
	case m.state == Explode && velocity < m.config.ContractVelocity:
		return Text, true
	}
	return m.state, false
}

// Reset returns the machine to Tree and forgets the velocity sample and
// cooldown.
func (m *Machine) Reset() {
	*m = Machine{config: m.config, state: Tree, autoRotate: true}
}

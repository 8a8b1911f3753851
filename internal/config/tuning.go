// Package config loads tuning parameters for the gesture core and host.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/scene"
)

// DefaultConfigPath is the conventional location of the tuning file.
const DefaultConfigPath = "config/tuning.json"

// maxFileSize caps the tuning file size.
const maxFileSize = 1 * 1024 * 1024

// Tuning is the on-disk tuning file. Every field is optional; omitted
// fields keep their defaults, so partial files are safe.
type Tuning struct {
	// Feature extraction
	FingerTolerance *float64 `json:"finger_tolerance,omitempty"`
	ThumbTolerance  *float64 `json:"thumb_tolerance,omitempty"`
	MirrorX         *bool    `json:"mirror_x,omitempty"`
	SpreadFloor     *float64 `json:"spread_floor,omitempty"`
	SpreadRange     *float64 `json:"spread_range,omitempty"`

	// Formation state machine
	SampleInterval   *string  `json:"sample_interval,omitempty"` // duration string like "100ms"
	Cooldown         *string  `json:"cooldown,omitempty"`
	ExpandVelocity   *float64 `json:"expand_velocity,omitempty"`
	ContractVelocity *float64 `json:"contract_velocity,omitempty"`

	// Particles
	ParticleCount   *int     `json:"particle_count,omitempty"`
	BlendRate       *float64 `json:"blend_rate,omitempty"`
	WobbleAmplitude *float64 `json:"wobble_amplitude,omitempty"`
	GlobalScale     *float64 `json:"global_scale,omitempty"`
	Seed            *uint64  `json:"seed,omitempty"`

	// Camera
	CameraEasing    *float64 `json:"camera_easing,omitempty"`
	FarRadius       *float64 `json:"far_radius,omitempty"`
	NearRadius      *float64 `json:"near_radius,omitempty"`
	AutoRotateSpeed *float64 `json:"auto_rotate_speed,omitempty"`

	// Host
	FormationText *string `json:"formation_text,omitempty"`
	TextWidth     *float64 `json:"text_width,omitempty"`
	TickRate      *int     `json:"tick_rate,omitempty"`
}

// Settings is the resolved configuration used to build the engine and host.
type Settings struct {
	Scene         scene.Config
	FormationText string
	TextWidth     float64
	TickRate      int
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Scene:         scene.DefaultConfig(),
		FormationText: "MUDRA",
		TextWidth:     180,
		TickRate:      30,
	}
}

// TickInterval returns the host tick period.
func (s Settings) TickInterval() time.Duration {
	if s.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(s.TickRate)
}

// LoadTuning reads a Tuning from a JSON file.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var t Tuning
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &t, nil
}

// Load reads the tuning file at path and resolves it over the defaults.
// An empty path returns the defaults.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	t, err := LoadTuning(path)
	if err != nil {
		return Settings{}, err
	}
	if err := t.Apply(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Apply overlays the non-nil fields of t onto s.
func (t *Tuning) Apply(s *Settings) error {
	sc := &s.Scene

	setFloat(&sc.Tracking.Features.FingerTolerance, t.FingerTolerance)
	setFloat(&sc.Tracking.Features.ThumbTolerance, t.ThumbTolerance)
	if t.MirrorX != nil {
		sc.Tracking.Gesture.Mirror = *t.MirrorX
	}
	setFloat(&sc.Tracking.SpreadFloor, t.SpreadFloor)
	setFloat(&sc.Tracking.SpreadRange, t.SpreadRange)

	if err := setDuration(&sc.Formation.SampleInterval, t.SampleInterval, "sample_interval"); err != nil {
		return err
	}
	if err := setDuration(&sc.Formation.Cooldown, t.Cooldown, "cooldown"); err != nil {
		return err
	}
	setFloat(&sc.Formation.ExpandVelocity, t.ExpandVelocity)
	setFloat(&sc.Formation.ContractVelocity, t.ContractVelocity)

	if t.ParticleCount != nil {
		sc.Particles.Count = *t.ParticleCount
	}
	setFloat(&sc.Particles.BlendRate, t.BlendRate)
	setFloat(&sc.Particles.WobbleAmplitude, t.WobbleAmplitude)
	setFloat(&sc.Particles.GlobalScale, t.GlobalScale)
	if t.Seed != nil {
		sc.Seed = *t.Seed
	}

	setFloat(&sc.Steering.Easing, t.CameraEasing)
	setFloat(&sc.Steering.FarRadius, t.FarRadius)
	setFloat(&sc.Steering.NearRadius, t.NearRadius)
	setFloat(&sc.Steering.AutoRotateSpeed, t.AutoRotateSpeed)

	if t.FormationText != nil {
		s.FormationText = *t.FormationText
	}
	setFloat(&s.TextWidth, t.TextWidth)
	if t.TickRate != nil {
		s.TickRate = *t.TickRate
	}

	return s.Validate()
}

// Validate checks values that would break the core.
func (s Settings) Validate() error {
	sc := s.Scene
	if sc.Tracking.SpreadRange <= 0 {
		return fmt.Errorf("spread_range must be positive, got %v", sc.Tracking.SpreadRange)
	}
	if sc.Formation.ExpandVelocity <= 0 {
		return fmt.Errorf("expand_velocity must be positive, got %v", sc.Formation.ExpandVelocity)
	}
	if sc.Formation.ContractVelocity >= 0 {
		return fmt.Errorf("contract_velocity must be negative, got %v", sc.Formation.ContractVelocity)
	}
	if sc.Particles.BlendRate <= 0 || sc.Particles.BlendRate > 1 {
		return fmt.Errorf("blend_rate must be in (0,1], got %v", sc.Particles.BlendRate)
	}
	if sc.Particles.Count <= 0 {
		return fmt.Errorf("particle_count must be positive, got %d", sc.Particles.Count)
	}
	if sc.Steering.NearRadius <= 0 || sc.Steering.NearRadius > sc.Steering.FarRadius {
		return fmt.Errorf("near_radius must be in (0, far_radius], got %v", sc.Steering.NearRadius)
	}
	if s.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", s.TickRate)
	}
	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	*dst = d
	return nil
}

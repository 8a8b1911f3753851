// Package app runs the mudra host: it owns the camera, the hand detector and
// the scene engine, and feeds one frame context per tick into the engine.
package app

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/formation"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/particles"
	"github.com/ayusman/mudra/internal/scene"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Publisher receives every rendered snapshot.
type Publisher interface {
	Publish(v any) error
}

// TransitionSink receives formation transitions. Notify must not block.
type TransitionSink interface {
	Notify(t formation.Transition) bool
}

// Config holds configuration options for the application.
type Config struct {
	Settings config.Settings
	// Store persists runtime settings and caches text layouts. Optional.
	Store *store.Store
	// Source overrides the camera. When nil a camera is opened on CameraID.
	Source   capture.Source
	CameraID int
	// Detector overrides hand detection. When nil MediaPipe is tried first
	// with a MockDetector fallback.
	Detector detector.Detector
	// Publisher receives rendered snapshots. Optional.
	Publisher Publisher
	// Frames receives annotated camera frames. Optional.
	Frames *overlay.Latest
	// Hooks receives every formation transition. Optional.
	Hooks TransitionSink
	// MotionGate skips detection while the scene is still and handless.
	MotionGate bool
}

// App is the host application.
type App struct {
	config     Config
	engine     *scene.Engine
	source     capture.Source
	detector   detector.Detector
	gate       *capture.ActivityGate
	activeText string
	onSnapshot func(scene.Snapshot)
	enabled    bool
	loop       loopState
	textWG     sync.WaitGroup
	mu         sync.RWMutex
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// New creates an App. Settings persisted in the store override the
// configured defaults.
func New(cfg Config) *App {
	settings := cfg.Settings
	if cfg.Store != nil {
		restoreSettings(cfg.Store, &settings)
	}
	cfg.Settings = settings

	a := &App{
		config:     cfg,
		engine:     scene.New(settings.Scene),
		source:     cfg.Source,
		detector:   cfg.Detector,
		activeText: settings.FormationText,
		enabled:    true,
	}

	if a.source == nil {
		a.source = capture.NewCamera(cfg.CameraID)
	}

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	if cfg.MotionGate {
		a.gate = capture.NewActivityGate(capture.NewMotionDetector(0), 0)
	}

	return a
}

func restoreSettings(st *store.Store, s *config.Settings) {
	scale, err := st.Settings().GetFloat(store.KeyGlobalScale, s.Scene.Particles.GlobalScale)
	if err != nil {
		log.Printf("Ignoring stored global scale: %v", err)
	} else {
		s.Scene.Particles.GlobalScale = scale
	}

	text, err := st.Settings().Get(store.KeyFormationText)
	switch {
	case err == nil:
		s.FormationText = text
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("Ignoring stored formation text: %v", err)
	}
}

// Engine returns the scene engine.
func (a *App) Engine() *scene.Engine {
	return a.engine
}

// SetEnabled enables or disables tracking. While disabled the engine keeps
// ticking with no hands so particles keep blending.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether tracking is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// OnSnapshot registers a callback run after every tick on the loop
// goroutine. It must not block.
func (a *App) OnSnapshot(fn func(scene.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSnapshot = fn
}

// PrepareText loads or builds the text layout for the active formation text
// on a background goroutine and queues it on the engine.
func (a *App) PrepareText() {
	a.textWG.Add(1)
	go func() {
		defer a.textWG.Done()
		if err := a.prepareText(); err != nil {
			log.Printf("Text formation unavailable: %v", err)
		}
	}()
}

// WaitText blocks until background text preparation has finished.
func (a *App) WaitText() {
	a.textWG.Wait()
}

func (a *App) prepareText() error {
	a.mu.RLock()
	text := a.activeText
	a.mu.RUnlock()

	key := store.LayoutKey{
		Text:          text,
		ParticleCount: a.engine.ParticleCount(),
		Width:         a.config.Settings.TextWidth,
		Seed:          a.config.Settings.Scene.Seed,
	}

	if a.config.Store != nil {
		layout, err := a.config.Store.Layouts().Find(key)
		if err == nil {
			log.Printf("Loaded cached text layout %s for %q", layout.ID, text)
			a.engine.QueueTextTargets(layout.Points)
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Text layout cache lookup failed: %v", err)
		}
	}

	rng := rand.New(rand.NewPCG(key.Seed, uint64(len(text))))
	points, err := particles.LayoutText(text, key.ParticleCount, key.Width, rng)
	if err != nil {
		return fmt.Errorf("layout %q: %w", text, err)
	}

	if a.config.Store != nil {
		if id, err := a.config.Store.Layouts().Save(key, points); err != nil {
			log.Printf("Failed to cache text layout: %v", err)
		} else {
			log.Printf("Cached text layout %s for %q", id, text)
		}
	}

	a.engine.QueueTextTargets(points)
	return nil
}

// Settings implements api.SettingsService.
func (a *App) Settings() api.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return api.Settings{
		GlobalScale:   a.engine.GlobalScale(),
		FormationText: a.config.Settings.FormationText,
		ActiveText:    a.activeText,
	}
}

// UpdateSettings implements api.SettingsService. The global scale applies
// immediately; a new formation text is stored for the next start.
func (a *App) UpdateSettings(u api.SettingsUpdate) (api.Settings, error) {
	if u.FormationText != nil {
		if _, err := particles.LayoutText(*u.FormationText, 1, 1, rand.New(rand.NewPCG(1, 1))); err != nil {
			return api.Settings{}, fmt.Errorf("%w: %v", api.ErrInvalidSetting, err)
		}
	}

	if u.GlobalScale != nil {
		if err := a.engine.SetGlobalScale(*u.GlobalScale); err != nil {
			return api.Settings{}, fmt.Errorf("%w: %v", api.ErrInvalidSetting, err)
		}
		if a.config.Store != nil {
			if err := a.config.Store.Settings().SetFloat(store.KeyGlobalScale, *u.GlobalScale); err != nil {
				return api.Settings{}, err
			}
		}
	}

	if u.FormationText != nil {
		if a.config.Store != nil {
			if err := a.config.Store.Settings().Set(store.KeyFormationText, *u.FormationText); err != nil {
				return api.Settings{}, err
			}
		}
		a.mu.Lock()
		a.config.Settings.FormationText = *u.FormationText
		a.mu.Unlock()
	}

	return a.Settings(), nil
}

// Start opens the capture source and begins the host loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.source.Open(); err != nil {
		return err
	}
	a.source.SetFPS(a.config.Settings.TickRate)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(a.stopCh, a.doneCh)

	a.PrepareText()

	log.Println("Host loop started")
	return nil
}

// Stop halts the host loop and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
	a.textWG.Wait()

	if err := a.source.Close(); err != nil {
		log.Printf("Error closing capture source: %v", err)
	}
	if a.gate != nil {
		a.gate.Close()
	}
	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Host loop stopped")
}

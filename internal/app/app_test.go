package app

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/formation"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/particles"
	"github.com/ayusman/mudra/internal/scene"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

const testParticles = 64

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.Scene.Particles.Count = testParticles
	s.FormationText = "HI"
	return s
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestApp builds an App on a blank 5 FPS mock source, so frame
// timestamps advance 200ms per Step.
func newTestApp(t *testing.T, cfg Config) (*App, *detector.MockDetector) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := capture.NewBlankSource(64, 48)
	src.SetFPS(5)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	mock := detector.NewMockDetector()
	cfg.Source = src
	cfg.Detector = mock
	if cfg.Settings.TickRate == 0 {
		cfg.Settings = testSettings()
	}
	return New(cfg), mock
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []scene.Snapshot
}

func (p *recordingPublisher) Publish(v any) error {
	snap, ok := v.(scene.Snapshot)
	if !ok {
		return errors.New("unexpected payload")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

func TestApp_StepDrivesFormation(t *testing.T) {
	app, mock := newTestApp(t, Config{})

	fist, open := detector.FistLandmarks(), detector.OpenPalmLandmarks()
	mock.SetSequence([][]detector.HandLandmarks{{fist}, {open}, nil}, false)

	now := time.Unix(0, 0)
	snap, err := app.Step(now)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if !snap.Tracking.IsDetected || snap.Tracking.Gesture != gesture.KindGeneral {
		t.Fatalf("first tick tracking = %+v, want detected GENERAL", snap.Tracking)
	}

	snap, _ = app.Step(now.Add(200 * time.Millisecond))
	if snap.Formation != formation.Explode {
		t.Fatalf("formation after opening the hand = %s, want EXPLODE", snap.Formation)
	}
	if snap.Transition == nil {
		t.Error("expected a transition on the opening tick")
	}

	snap, _ = app.Step(now.Add(400 * time.Millisecond))
	if snap.Tracking.IsDetected {
		t.Error("hand should be gone on the third tick")
	}
	if snap.Formation != formation.Explode {
		t.Errorf("losing the hand changed formation to %s", snap.Formation)
	}
}

type recordingSink struct {
	transitions []formation.Transition
}

func (s *recordingSink) Notify(t formation.Transition) bool {
	s.transitions = append(s.transitions, t)
	return true
}

func TestApp_NotifiesHooks(t *testing.T) {
	sink := &recordingSink{}
	app, mock := newTestApp(t, Config{Hooks: sink})

	fist, open := detector.FistLandmarks(), detector.OpenPalmLandmarks()
	mock.SetSequence([][]detector.HandLandmarks{{fist}, {open}, {open}}, false)

	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		app.Step(now.Add(time.Duration(i) * 200 * time.Millisecond))
	}

	if len(sink.transitions) != 1 {
		t.Fatalf("hooks saw %d transitions, want 1", len(sink.transitions))
	}
	if tr := sink.transitions[0]; tr.From != formation.Tree || tr.To != formation.Explode {
		t.Errorf("transition = %s -> %s, want TREE -> EXPLODE", tr.From, tr.To)
	}
}

func TestApp_DisabledSkipsDetection(t *testing.T) {
	app, mock := newTestApp(t, Config{})
	mock.SetHands([]detector.HandLandmarks{detector.IndexPointLandmarks()})

	app.SetEnabled(false)
	snap, err := app.Step(time.Now())
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if snap.Tracking.IsDetected {
		t.Error("disabled app should not report a hand")
	}

	app.SetEnabled(true)
	snap, _ = app.Step(time.Now())
	if snap.Tracking.Gesture != gesture.KindPointing {
		t.Errorf("gesture = %s, want POINTING", snap.Tracking.Gesture)
	}
}

func TestApp_DetectorErrorIsNeutral(t *testing.T) {
	app, mock := newTestApp(t, Config{})
	mock.SetError(errors.New("service crashed"))

	snap, err := app.Step(time.Now())
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if snap.Tracking.IsDetected {
		t.Error("detector failure should produce a neutral result")
	}
}

func TestApp_ReadFailureStillTicks(t *testing.T) {
	app, _ := newTestApp(t, Config{})
	app.source.Close()

	now := time.Unix(0, 0)
	app.Step(now)
	snap, err := app.Step(now.Add(100 * time.Millisecond))
	if !errors.Is(err, capture.ErrSourceNotOpen) {
		t.Fatalf("Step() error = %v, want ErrSourceNotOpen", err)
	}
	if snap.Tracking.IsDetected {
		t.Error("failed read should produce a neutral result")
	}
	if snap.TimestampMs != 100 {
		t.Errorf("timestamp = %d, want 100", snap.TimestampMs)
	}
}

func TestApp_PublishesRenderedScene(t *testing.T) {
	pub := &recordingPublisher{}
	frames := &overlay.Latest{}
	app, _ := newTestApp(t, Config{Publisher: pub, Frames: frames})

	var seen []scene.Snapshot
	app.OnSnapshot(func(s scene.Snapshot) { seen = append(seen, s) })

	app.Step(time.Now())

	if pub.count() != 1 {
		t.Fatalf("published %d snapshots, want 1", pub.count())
	}
	if got := len(pub.snaps[0].Particles); got != testParticles {
		t.Errorf("published %d particles, want %d", got, testParticles)
	}
	if len(seen) != 1 || seen[0].Particles != nil {
		t.Errorf("callback snapshots = %d, particles should be omitted", len(seen))
	}
	if data, seq := frames.Load(); seq != 1 || len(data) == 0 {
		t.Errorf("overlay frame not stored (seq %d, %d bytes)", seq, len(data))
	}
}

func TestApp_PrepareTextCachesLayout(t *testing.T) {
	st := newTestStore(t)

	app, _ := newTestApp(t, Config{Store: st})
	if err := app.prepareText(); err != nil {
		t.Fatalf("prepareText() error = %v", err)
	}

	layouts, err := st.Layouts().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(layouts) != 1 || layouts[0].Key.Text != "HI" || layouts[0].Key.ParticleCount != testParticles {
		t.Fatalf("cached layouts = %+v", layouts)
	}
	cachedID := layouts[0].ID

	snap, _ := app.Step(time.Now())
	if !snap.TextReady {
		t.Error("text should be ready after the tick following preparation")
	}

	// A second app with the same settings reuses the cached layout.
	again, _ := newTestApp(t, Config{Store: st})
	again.PrepareText()
	again.WaitText()
	if layouts, _ := st.Layouts().List(); len(layouts) != 1 || layouts[0].ID != cachedID {
		t.Errorf("expected the cached layout %s to be reused, have %+v", cachedID, layouts)
	}
	if snap, _ := again.Step(time.Now()); !snap.TextReady {
		t.Error("cached text should be ready after one tick")
	}
}

func TestApp_PrepareTextWithoutGlyphs(t *testing.T) {
	settings := testSettings()
	settings.FormationText = "   "
	app, _ := newTestApp(t, Config{Settings: settings})

	if err := app.prepareText(); !errors.Is(err, particles.ErrEmptyText) {
		t.Fatalf("prepareText() error = %v, want ErrEmptyText", err)
	}
	if snap, _ := app.Step(time.Now()); snap.TextReady {
		t.Error("text should not be ready")
	}
}

func TestApp_UpdateSettings(t *testing.T) {
	st := newTestStore(t)
	app, _ := newTestApp(t, Config{Store: st})

	scale, text := 2.5, "NEW"
	got, err := app.UpdateSettings(api.SettingsUpdate{GlobalScale: &scale, FormationText: &text})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	want := api.Settings{GlobalScale: 2.5, FormationText: "NEW", ActiveText: "HI"}
	if got != want {
		t.Errorf("UpdateSettings() = %+v, want %+v", got, want)
	}
	if app.Engine().GlobalScale() != 2.5 {
		t.Errorf("engine scale = %v, want 2.5", app.Engine().GlobalScale())
	}

	// A restart picks up both persisted values.
	restarted, _ := newTestApp(t, Config{Store: st})
	got = restarted.Settings()
	want = api.Settings{GlobalScale: 2.5, FormationText: "NEW", ActiveText: "NEW"}
	if got != want {
		t.Errorf("restored settings = %+v, want %+v", got, want)
	}
}

func TestApp_UpdateSettingsRejects(t *testing.T) {
	app, _ := newTestApp(t, Config{})

	blank := "   "
	if _, err := app.UpdateSettings(api.SettingsUpdate{FormationText: &blank}); !errors.Is(err, api.ErrInvalidSetting) {
		t.Errorf("blank text error = %v, want ErrInvalidSetting", err)
	}

	negative := -1.0
	if _, err := app.UpdateSettings(api.SettingsUpdate{GlobalScale: &negative}); !errors.Is(err, api.ErrInvalidSetting) {
		t.Errorf("negative scale error = %v, want ErrInvalidSetting", err)
	}

	if got := app.Settings().GlobalScale; got != 1 {
		t.Errorf("scale changed to %v after a rejected update", got)
	}
}

func TestApp_StartStop(t *testing.T) {
	settings := testSettings()
	settings.TickRate = 100
	app, mock := newTestApp(t, Config{Settings: settings})
	mock.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	ticks := make(chan scene.Snapshot, 64)
	app.OnSnapshot(func(s scene.Snapshot) {
		select {
		case ticks <- s:
		default:
		}
	})

	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	select {
	case s := <-ticks:
		if !s.Tracking.IsDetected {
			t.Error("expected the mock hand to be tracked")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick within 2s")
	}

	app.Stop()
	if app.source.IsOpen() {
		t.Error("source should be closed after Stop")
	}

	// Stop is idempotent.
	app.Stop()
}

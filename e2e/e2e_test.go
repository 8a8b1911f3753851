package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s decode error = %v", url, err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	src := capture.NewBlankSource(64, 48)
	src.SetFPS(5)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	settings := config.DefaultSettings()
	settings.Scene.Particles.Count = 64
	settings.FormationText = "HI"

	hub := server.NewSceneHub()
	defer hub.Close()
	frames := &overlay.Latest{}
	mock := detector.NewMockDetector()

	application := app.New(app.Config{
		Settings:  settings,
		Store:     s,
		Source:    src,
		Detector:  mock,
		Publisher: hub,
		Frames:    frames,
	})
	defer application.Stop()

	ts := httptest.NewServer(server.New(server.Config{
		Store:    s,
		State:    application.Engine(),
		Settings: application,
		Hub:      hub,
		Frames:   frames,
	}))
	defer ts.Close()
	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/scene", nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("viewer did not register with the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	application.PrepareText()
	application.WaitText()

	t.Run("OpenHandExplodes", func(t *testing.T) {
		mock.SetSequence([][]detector.HandLandmarks{
			{detector.FistLandmarks()},
			{detector.OpenPalmLandmarks()},
		}, false)

		start := time.Unix(0, 0)
		application.Step(start)
		application.Step(start.Add(200 * time.Millisecond))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var last map[string]any
		for i := 0; i < 2; i++ {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("ReadMessage() error = %v", err)
			}
			if err := json.Unmarshal(data, &last); err != nil {
				t.Fatalf("invalid scene message: %v", err)
			}
		}

		if last["formation"] != "EXPLODE" {
			t.Errorf("streamed formation = %v, want EXPLODE", last["formation"])
		}
		if ps, _ := last["particles"].([]any); len(ps) != 64 {
			t.Errorf("streamed %d particles, want 64", len(ps))
		}
	})

	t.Run("State", func(t *testing.T) {
		var state map[string]any
		getJSON(t, client, ts.URL+"/api/state", &state)
		if state["formation"] != "EXPLODE" || state["textReady"] != true {
			t.Errorf("state = %v", state)
		}
		if _, ok := state["particles"]; ok {
			t.Error("state should not include particles")
		}
	})

	t.Run("Settings", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", strings.NewReader(`{"global_scale": 1.5}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/settings error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("PUT /api/settings status = %d", resp.StatusCode)
		}

		if got := application.Engine().GlobalScale(); got != 1.5 {
			t.Errorf("engine scale = %v, want 1.5", got)
		}
		if got, err := s.Settings().GetFloat(store.KeyGlobalScale, 0); err != nil || got != 1.5 {
			t.Errorf("stored scale = %v (err %v), want 1.5", got, err)
		}
	})

	t.Run("Layouts", func(t *testing.T) {
		var body struct {
			Layouts []struct {
				Text          string `json:"text"`
				ParticleCount int    `json:"particle_count"`
			} `json:"layouts"`
		}
		getJSON(t, client, ts.URL+"/api/layouts", &body)
		if len(body.Layouts) != 1 || body.Layouts[0].Text != "HI" || body.Layouts[0].ParticleCount != 64 {
			t.Errorf("layouts = %+v", body.Layouts)
		}
	})

	t.Run("Health", func(t *testing.T) {
		var health map[string]any
		getJSON(t, client, ts.URL+"/api/health", &health)
		if health["status"] != "ok" || health["clients"] != float64(1) {
			t.Errorf("health = %v", health)
		}
	})

	t.Run("Stream", func(t *testing.T) {
		if data, seq := frames.Load(); seq != 2 || len(data) == 0 {
			t.Errorf("overlay frames = seq %d, %d bytes; want two stored frames", seq, len(data))
		}
	})
}

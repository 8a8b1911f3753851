// Command mudra-term renders the particle field in a terminal. The hand is
// simulated from the keyboard or a looping script, so no camera is needed.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/particles"
	"github.com/ayusman/mudra/internal/scene"
)

const (
	frameWidth  = 640
	frameHeight = 480
	handStep    = 0.05
)

// scriptStep is one pose of the demo script.
type scriptStep struct {
	name string
	pose func() detector.HandLandmarks
	hold time.Duration
}

// demoScript cycles the formation machine through all three states.
var demoScript = []scriptStep{
	{"fist", detector.FistLandmarks, 1500 * time.Millisecond},
	{"open", detector.OpenPalmLandmarks, 2500 * time.Millisecond},
	{"point", detector.IndexPointLandmarks, 1500 * time.Millisecond},
	{"fist", detector.FistLandmarks, 2500 * time.Millisecond},
	{"thumb", detector.ThumbPointLandmarks, 1500 * time.Millisecond},
	{"open", detector.OpenPalmLandmarks, 2500 * time.Millisecond},
}

type viewer struct {
	screen tcell.Screen
	engine *scene.Engine

	pose     string
	hand     *detector.HandLandmarks
	dx, dy   float64
	scripted bool
	step     int
	stepAt   time.Time

	start  time.Time
	lastAt time.Time
	lastMs int64
	depth  []float64
}

func main() {
	configPath := flag.String("config", "", "path to a JSON tuning file")
	text := flag.String("text", "", "formation text (overrides config)")
	count := flag.Int("particles", 600, "particle count")
	script := flag.Bool("script", true, "start in scripted mode")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *text != "" {
		settings.FormationText = *text
	}
	if *count > 0 {
		settings.Scene.Particles.Count = *count
	}

	engine := scene.New(settings.Scene)
	rng := rand.New(rand.NewPCG(settings.Scene.Seed, uint64(len(settings.FormationText))))
	points, err := particles.LayoutText(settings.FormationText, engine.ParticleCount(), settings.TextWidth, rng)
	if err != nil {
		log.Printf("Text formation unavailable: %v", err)
	} else {
		engine.QueueTextTargets(points)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := &viewer{
		screen:   screen,
		engine:   engine,
		pose:     "none",
		scripted: *script,
	}
	v.run(settings.TickInterval())
}

func (v *viewer) run(interval time.Duration) {
	eventChan := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v.start = time.Now()
	v.stepAt = v.start
	if v.scripted {
		v.applyStep(0)
	}

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
		case now := <-ticker.C:
			v.advanceScript(now)
			v.tick(now)
			v.draw()
		}
	}
}

// handleKey returns false when the viewer should exit.
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		v.dx -= handStep
	case tcell.KeyRight:
		v.dx += handStep
	case tcell.KeyUp:
		v.dy -= handStep
	case tcell.KeyDown:
		v.dy += handStep
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 's':
			v.scripted = !v.scripted
			if v.scripted {
				v.stepAt = time.Now()
				v.applyStep(v.step)
			}
		case 'o':
			v.setPose("open", detector.OpenPalmLandmarks)
		case 'f':
			v.setPose("fist", detector.FistLandmarks)
		case 'i':
			v.setPose("point", detector.IndexPointLandmarks)
		case 't':
			v.setPose("thumb", detector.ThumbPointLandmarks)
		case 'n':
			v.scripted = false
			v.pose, v.hand = "none", nil
		case 'r':
			v.engine.Reset()
			v.dx, v.dy = 0, 0
		}
	}
	return true
}

func (v *viewer) setPose(name string, pose func() detector.HandLandmarks) {
	v.scripted = false
	h := pose()
	v.pose, v.hand = name, &h
}

func (v *viewer) applyStep(i int) {
	v.step = i % len(demoScript)
	s := demoScript[v.step]
	h := s.pose()
	v.pose, v.hand = s.name, &h
}

func (v *viewer) advanceScript(now time.Time) {
	if !v.scripted {
		return
	}
	if now.Sub(v.stepAt) >= demoScript[v.step].hold {
		v.stepAt = now
		v.applyStep(v.step + 1)
	}
}

func (v *viewer) tick(now time.Time) {
	var elapsed time.Duration
	if !v.lastAt.IsZero() {
		elapsed = now.Sub(v.lastAt)
	}
	v.lastAt = now

	ms := now.Sub(v.start).Milliseconds()
	if ms < v.lastMs {
		ms = v.lastMs
	}
	v.lastMs = ms

	fc := scene.FrameContext{
		Width:       frameWidth,
		Height:      frameHeight,
		TimestampMs: ms,
		Elapsed:     elapsed,
	}
	if v.hand != nil {
		fc.Hands = []detector.HandLandmarks{shiftHand(*v.hand, v.dx, v.dy)}
	}
	v.engine.Tick(fc)
}

// shiftHand translates every landmark by (dx, dy) in normalized image space.
func shiftHand(h detector.HandLandmarks, dx, dy float64) detector.HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

func (v *viewer) draw() {
	v.screen.Clear()
	width, height := v.screen.Size()
	if height < 2 {
		v.screen.Show()
		return
	}

	snap := v.engine.Render()

	// The bottom row holds the status line.
	pr, ok := newProjector(snap.Camera.Position, width, height-1)
	if ok {
		cells := width * (height - 1)
		if cap(v.depth) < cells {
			v.depth = make([]float64, cells)
		}
		v.depth = v.depth[:cells]
		for i := range v.depth {
			v.depth[i] = math.Inf(1)
		}

		for _, p := range snap.Particles {
			x, y, d, ok := pr.project(p.Position)
			if !ok || d >= v.depth[y*width+x] {
				continue
			}
			v.depth[y*width+x] = d
			v.screen.SetContent(x, y, particleRune(p), nil, particleStyle(p))
		}
	}

	hand := "no hand"
	if snap.Tracking.IsDetected {
		hand = fmt.Sprintf("%s spread %.2f", snap.Tracking.Gesture, snap.Tracking.HandSpread)
	}
	status := fmt.Sprintf(" %s | pose %s | %s | %s | [o]pen [f]ist [i]ndex [t]humb [n]one [s]cript [r]eset arrows q",
		snap.Formation, v.pose, hand, modeLabel(v.scripted))
	drawText(v.screen, 0, height-1, status, tcell.StyleDefault.Reverse(true))

	v.screen.Show()
}

func modeLabel(scripted bool) string {
	if scripted {
		return "script"
	}
	return "manual"
}

func particleRune(p particles.Instance) rune {
	if p.Shape == particles.ShapeCube {
		return '■'
	}
	return '●'
}

func particleStyle(p particles.Instance) tcell.Style {
	style := tcell.StyleDefault
	switch p.Color {
	case particles.ColorCrimson:
		return style.Foreground(tcell.ColorCrimson)
	case particles.ColorIvory:
		return style.Foreground(tcell.ColorIvory)
	default:
		return style.Foreground(tcell.ColorGold)
	}
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	width, _ := s.Size()
	for _, r := range text {
		if x >= width {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

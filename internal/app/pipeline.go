package app

import (
	"log"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/scene"
)

// loopState is owned by the loop goroutine (or the caller of Step).
type loopState struct {
	lastTick    time.Time
	lastMs      int64
	handTracked bool
	readFailing bool
	detFailing  bool
}

// elapsed returns the time since the previous tick, zero on the first.
func (l *loopState) elapsed(now time.Time) time.Duration {
	var d time.Duration
	if !l.lastTick.IsZero() {
		d = now.Sub(l.lastTick)
	}
	l.lastTick = now
	return d
}

// run is the host loop. Each tick:
// 1. Read a frame (a failed read still ticks the engine with no hands)
// 2. Gate on motion when enabled
// 3. Detect hands
// 4. Tick the engine
// 5. Annotate the frame, publish the rendered scene
func (a *App) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.Settings.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			a.Step(now)
		}
	}
}

// Step runs one tick at wall time now and returns the engine snapshot. A
// read error is returned after the engine has ticked with no frame.
func (a *App) Step(now time.Time) (scene.Snapshot, error) {
	elapsed := a.loop.elapsed(now)

	frame, err := a.source.Read()
	if err != nil {
		if !a.loop.readFailing {
			log.Printf("Error reading frame: %v", err)
			a.loop.readFailing = true
		}
		fc := scene.FrameContext{TimestampMs: a.loop.lastMs + elapsed.Milliseconds(), Elapsed: elapsed}
		return a.tick(fc, nil), err
	}
	defer frame.Close()

	if a.loop.readFailing {
		log.Println("Frame capture recovered")
		a.loop.readFailing = false
	}

	fc := scene.FrameContext{
		Hands:       a.detect(&frame, now),
		Width:       frame.Width,
		Height:      frame.Height,
		TimestampMs: frame.TimestampMs,
		Elapsed:     elapsed,
	}
	return a.tick(fc, &frame), nil
}

func (a *App) detect(frame *capture.Frame, now time.Time) []detector.HandLandmarks {
	if !a.IsEnabled() {
		return nil
	}

	if a.gate != nil {
		active, changed := a.gate.Observe(frame.Mat, a.loop.handTracked, now)
		if changed {
			if active {
				log.Println("Switched to active mode")
			} else {
				log.Println("Switched to idle mode")
			}
		}
		if !active {
			return nil
		}
	}

	d := a.Detector()
	if d == nil {
		return nil
	}

	hands, err := d.Detect(frame.Mat)
	if err != nil {
		if !a.loop.detFailing {
			log.Printf("Error detecting hands: %v", err)
			a.loop.detFailing = true
		}
		return nil
	}
	if a.loop.detFailing {
		log.Println("Hand detection recovered")
		a.loop.detFailing = false
	}
	return hands
}

func (a *App) tick(fc scene.FrameContext, frame *capture.Frame) scene.Snapshot {
	// The engine requires non-decreasing timestamps.
	if fc.TimestampMs < a.loop.lastMs {
		fc.TimestampMs = a.loop.lastMs
	}
	a.loop.lastMs = fc.TimestampMs

	snap := a.engine.Tick(fc)
	a.loop.handTracked = snap.Tracking.IsDetected

	if snap.Transition != nil && a.config.Hooks != nil {
		a.config.Hooks.Notify(*snap.Transition)
	}

	if a.config.Frames != nil && frame != nil && frame.Mat != nil {
		var hand *detector.HandLandmarks
		if len(fc.Hands) > 0 {
			hand = &fc.Hands[0]
		}
		overlay.Draw(frame.Mat, hand, snap.Tracking, snap.Formation,
			overlay.Options{Mirror: a.config.Settings.Scene.Tracking.Gesture.Mirror})
		if err := a.config.Frames.Store(frame.Mat); err != nil {
			log.Printf("Error encoding overlay frame: %v", err)
		}
	}

	if a.config.Publisher != nil {
		if err := a.config.Publisher.Publish(a.engine.Render()); err != nil {
			log.Printf("Error publishing scene: %v", err)
		}
	}

	a.mu.RLock()
	fn := a.onSnapshot
	a.mu.RUnlock()
	if fn != nil {
		fn(snap)
	}

	return snap
}

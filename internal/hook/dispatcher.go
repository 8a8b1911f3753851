package hook

import (
	"context"
	"log"
	"sync"

	"github.com/ayusman/mudra/internal/formation"
)

// DefaultQueueSize is the number of transitions buffered for hooks.
const DefaultQueueSize = 16

// Dispatcher runs matching hooks for each formation transition on a single
// worker goroutine, so the caller never waits on a hook.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// ran is called after each hook run. Used by tests.
	ran func(h *Hook, ev Event, resp *Response, err error)
}

// NewDispatcher starts a Dispatcher. A non-positive queueSize uses
// DefaultQueueSize.
func NewDispatcher(m *Manager, e *Executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  m,
		executor: e,
		queue:    make(chan Event, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify queues t for delivery. It returns false when the queue is full and
// the transition was dropped.
func (d *Dispatcher) Notify(t formation.Transition) bool {
	ev := Event{
		From:        t.From.String(),
		To:          t.To.String(),
		TimestampMs: t.AtMs,
		Velocity:    t.Velocity,
		AutoRotate:  t.AutoRotate,
	}
	select {
	case <-d.ctx.Done():
		return false
	default:
	}
	select {
	case d.queue <- ev:
		return true
	default:
		log.Printf("Hook queue full, dropping %s -> %s", ev.From, ev.To)
		return false
	}
}

// Close cancels running hooks and waits for the worker to exit. Queued
// transitions are discarded.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.queue:
			d.dispatch(ev)
		}
	}
}

func (d *Dispatcher) dispatch(ev Event) {
	for _, h := range d.manager.Matching(ev.To) {
		if d.ctx.Err() != nil {
			return
		}
		resp, err := d.executor.Execute(d.ctx, h, ev)
		switch {
		case err != nil:
			log.Printf("Hook %s failed on %s: %v", h.Manifest.Name, ev.To, err)
		case !resp.Success:
			log.Printf("Hook %s reported an error on %s: %s", h.Manifest.Name, ev.To, resp.Error)
		}
		if d.ran != nil {
			d.ran(h, ev, resp, err)
		}
	}
}

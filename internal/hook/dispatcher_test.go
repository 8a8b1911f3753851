package hook

import (
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/formation"
)

type hookRun struct {
	hook string
	ev   Event
	err  error
}

func TestDispatcher_RunsMatchingHooks(t *testing.T) {
	skipOnWindows(t)

	root := t.TempDir()
	ok := `cat > /dev/null
echo '{"success":true}'
`
	writeHook(t, root, Manifest{Name: "on-text", Executable: "run.sh", States: []string{"TEXT"}}, ok)
	writeHook(t, root, Manifest{Name: "on-all", Executable: "run.sh", States: []string{AnyState}}, ok)

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	runs := make(chan hookRun, 8)
	d := NewDispatcher(m, NewExecutor(5*time.Second), 4)
	defer d.Close()
	d.ran = func(h *Hook, ev Event, _ *Response, err error) {
		runs <- hookRun{hook: h.Manifest.Name, ev: ev, err: err}
	}

	if !d.Notify(formation.Transition{From: formation.Explode, To: formation.Text, AtMs: 900, Velocity: -2}) {
		t.Fatal("Notify() dropped the transition")
	}

	var got []hookRun
	for len(got) < 2 {
		select {
		case r := <-runs:
			got = append(got, r)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d hooks ran", len(got))
		}
	}

	if got[0].hook != "on-all" || got[1].hook != "on-text" {
		t.Errorf("hooks ran in order %s, %s", got[0].hook, got[1].hook)
	}
	for _, r := range got {
		if r.err != nil {
			t.Errorf("hook %s error = %v", r.hook, r.err)
		}
		if r.ev.From != "EXPLODE" || r.ev.To != "TEXT" || r.ev.TimestampMs != 900 {
			t.Errorf("hook %s event = %+v", r.hook, r.ev)
		}
	}

	// A transition into TREE only reaches the wildcard hook.
	d.Notify(formation.Transition{From: formation.Text, To: formation.Tree, AtMs: 2000})
	select {
	case r := <-runs:
		if r.hook != "on-all" {
			t.Errorf("TREE transition ran %s", r.hook)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("wildcard hook did not run")
	}
	select {
	case r := <-runs:
		t.Errorf("unexpected run of %s", r.hook)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	skipOnWindows(t)

	root := t.TempDir()
	writeHook(t, root, Manifest{Name: "slow", Executable: "run.sh", States: []string{AnyState}}, `sleep 10
`)
	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(m, NewExecutor(10*time.Second), 1)

	tr := formation.Transition{From: formation.Tree, To: formation.Explode}
	dropped := false
	for i := 0; i < 10; i++ {
		if !d.Notify(tr) {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Error("Notify() should drop once the worker is busy and the queue is full")
	}

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not cancel the running hook")
	}

	if d.Notify(tr) {
		t.Error("Notify() after Close should report a drop")
	}
	d.Close()
}

func TestDispatcher_NoHooks(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir()), NewExecutor(0), 0)
	defer d.Close()

	if !d.Notify(formation.Transition{From: formation.Tree, To: formation.Explode}) {
		t.Error("Notify() with an empty queue should accept")
	}
}

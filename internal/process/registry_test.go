package process

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/techspeque/specstudio/internal/errors"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestRegistry() (*Registry, *[]int) {
	r := NewRegistry(nil)
	var mu sync.Mutex
	killed := &[]int{}
	r.kill = func(pid int) error {
		mu.Lock()
		defer mu.Unlock()
		*killed = append(*killed, pid)
		return nil
	}
	return r, killed
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r, _ := newTestRegistry()
	w := NewStdinChannel(nopWriteCloser{&bytes.Buffer{}})

	if !r.Register(&Record{ID: "proc_1", Writer: w, PID: 10, Action: "run_tests"}) {
		t.Fatal("Register() = false")
	}
	if r.Register(&Record{ID: "proc_1", PID: 11}) {
		t.Error("duplicate Register() should be rejected")
	}

	got, ok := r.Writer("proc_1")
	if !ok || got != w {
		t.Errorf("Writer() = %v, %v", got, ok)
	}
	rec, ok := r.Get("proc_1")
	if !ok || rec.PID != 10 || rec.StartedAt.IsZero() {
		t.Errorf("Get() = %+v, %v", rec, ok)
	}
	if _, ok := r.Writer("proc_missing"); ok {
		t.Error("Writer() found an unknown id")
	}
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&Record{ID: "proc_1", PID: 1})

	if !r.Remove("proc_1") {
		t.Error("first Remove() = false")
	}
	if r.Remove("proc_1") {
		t.Error("second Remove() = true")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRegistry_KillAll(t *testing.T) {
	r, killed := newTestRegistry()
	r.Register(&Record{ID: "a", PID: 100})
	r.Register(&Record{ID: "b", PID: 200})
	r.Register(&Record{ID: "c"})

	if n := r.KillAll(); n != 2 {
		t.Errorf("KillAll() = %d, want 2", n)
	}
	if r.Len() != 0 || len(r.IDs()) != 0 {
		t.Error("KillAll() should empty the registry")
	}
	if len(*killed) != 2 {
		t.Errorf("killed pids = %v", *killed)
	}

	if n := r.KillAll(); n != 0 {
		t.Errorf("KillAll() on empty registry = %d", n)
	}
}

func TestRegistry_KillAllFailure(t *testing.T) {
	r := NewRegistry(nil)
	r.kill = func(int) error { return errors.ErrUnsupportedPlatform }
	r.Register(&Record{ID: "a", PID: 100})

	if n := r.KillAll(); n != 0 {
		t.Errorf("KillAll() = %d, want 0 when signalling fails", n)
	}
	if r.Len() != 0 {
		t.Error("records should be drained even when the kill fails")
	}
}

func TestRegistry_ActiveID(t *testing.T) {
	r, _ := newTestRegistry()
	if _, ok := r.ActiveID(); ok {
		t.Error("ActiveID() on empty registry should report false")
	}

	r.Register(&Record{ID: "first"})
	r.Register(&Record{ID: "second"})
	if id, _ := r.ActiveID(); id != "second" {
		t.Errorf("ActiveID() = %q, want second", id)
	}

	r.Remove("second")
	if id, _ := r.ActiveID(); id != "first" {
		t.Errorf("ActiveID() = %q, want first", id)
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "first" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r, _ := newTestRegistry()
	gen := NewIDGenerator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next()
			r.Register(&Record{ID: id, PID: 1})
			r.ActiveID()
			r.Remove(id)
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after concurrent register/remove", r.Len())
	}
}

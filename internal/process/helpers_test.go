package process

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/errors"
	"github.com/techspeque/specstudio/internal/event"
	"github.com/techspeque/specstudio/internal/testutil"
)

// recorder is an event.Sink that keeps everything it sees
type recorder struct {
	mu     sync.Mutex
	events []event.StreamEvent
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) Emit(ev event.StreamEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) forRun(id string) []event.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.StreamEvent
	for _, ev := range r.events {
		if ev.ProcessID == id {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) all() []event.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.StreamEvent(nil), r.events...)
}

func (r *recorder) waitComplete(t *testing.T, id string) event.StreamEvent {
	t.Helper()
	var done event.StreamEvent
	testutil.WaitFor(t, 10*time.Second, func() bool {
		for _, ev := range r.forRun(id) {
			if ev.Kind == event.KindComplete {
				done = ev
				return true
			}
		}
		return false
	})
	return done
}

func outputOf(events []event.StreamEvent, kind event.Kind) string {
	var sb strings.Builder
	for _, ev := range events[1:] {
		if ev.Kind == kind {
			sb.WriteString(ev.Data)
		}
	}
	return sb.String()
}

// shellBuilder runs each action as a /bin/sh script
type shellBuilder struct {
	scripts map[string]string
	mode    command.Mode
	ghost   bool
	tempDir string

	// executable replaces /bin/sh when set
	executable string
}

func (b *shellBuilder) Build(id, action, cwd string, params map[string]string) (*command.Command, error) {
	script, ok := b.scripts[action]
	if !ok {
		return nil, errors.NewUnsupportedActionError(action)
	}
	if v, needs := params["require"]; needs && v == "" {
		return nil, errors.NewConfigError("specContent is required for this action", errors.ErrMissingParam)
	}

	exe := "/bin/sh"
	if b.executable != "" {
		exe = b.executable
	}
	cmd := &command.Command{
		Action:     action,
		Executable: exe,
		Args:       []string{"-c", script},
		Dir:        cwd,
		Env:        map[string]string{"FORCE_COLOR": "0"},
		Mode:       b.mode,
		Ghost:      b.ghost,
	}
	if b.tempDir != "" {
		cmd.TempFile = command.TempFilePath(b.tempDir, id)
		if err := os.WriteFile(cmd.TempFile, []byte("prompt"), 0o600); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func newTestSupervisor(t *testing.T, b Builder, opts Options) (*Supervisor, *recorder) {
	t.Helper()
	rec := newRecorder()
	s := NewSupervisor(b, NewRegistry(nil), rec, nil, opts)
	t.Cleanup(func() {
		s.CancelAll()
		s.Wait()
	})
	return s, rec
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, command.TempFilePrefix+"*"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

package process

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/techspeque/specstudio/internal/logging"
)

// GhostAutomation types a fixed key sequence into a run to dismiss the AI
// CLI's first-run permission dialog. Timing against the real prompt is
// best effort: a slow machine may see the keys early, a fast one late.
type GhostAutomation struct {
	registry *Registry
	logger   *logging.Logger
	keys     [][]byte
	interval time.Duration
}

// NewGhostAutomation creates automation that sends keys with interval
// between them to runs found in registry.
func NewGhostAutomation(registry *Registry, logger *logging.Logger, keys [][]byte, interval time.Duration) *GhostAutomation {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &GhostAutomation{
		registry: registry,
		logger:   logger.WithComponent("ghost"),
		keys:     keys,
		interval: interval,
	}
}

// ScheduleBypass waits after, then injects the key sequence into id. It
// returns early, sending nothing, if ctx ends or id is no longer tracked.
// The returned channel closes when the task is done.
func (g *GhostAutomation) ScheduleBypass(ctx context.Context, id string, after time.Duration) <-chan struct{} {
	return g.run(ctx, id, func() bool { return sleep(ctx, after) })
}

// ScheduleOnPrompt injects the key sequence once trigger closes. If
// timeout elapses first the task gives up without sending anything.
func (g *GhostAutomation) ScheduleOnPrompt(ctx context.Context, id string, trigger <-chan struct{}, timeout time.Duration) <-chan struct{} {
	return g.run(ctx, id, func() bool {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-trigger:
			return true
		case <-timer.C:
			g.logger.Info("prompt not seen before timeout", "process_id", id, "timeout", timeout.String())
			return false
		case <-ctx.Done():
			return false
		}
	})
}

func (g *GhostAutomation) run(ctx context.Context, id string, ready func() bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !ready() {
			return
		}
		g.inject(ctx, id)
	}()
	return done
}

// inject sends each key, re-checking the registry before every write so
// a run that exits mid-sequence only ever sees a prefix of it.
func (g *GhostAutomation) inject(ctx context.Context, id string) {
	for i, key := range g.keys {
		if i > 0 && !sleep(ctx, g.interval) {
			return
		}
		w, ok := g.registry.Writer(id)
		if !ok {
			g.logger.Debug("process gone, skipping ghost input", "process_id", id, "sent", i)
			return
		}
		if _, err := w.Write(key); err != nil {
			g.logger.Warn("ghost input failed", "process_id", id, "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			g.logger.Warn("ghost input flush failed", "process_id", id, "error", err)
			return
		}
	}
	g.logger.Info("ghost input sent", "process_id", id, "keys", len(g.keys))
}

// sleep waits d or until ctx ends, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// PromptWatcher scans output for a prompt text, ignoring ANSI styling.
// Matched closes once the text has been seen.
type PromptWatcher struct {
	pattern string
	mu      sync.Mutex
	tail    string
	once    sync.Once
	matched chan struct{}
}

// NewPromptWatcher watches for pattern.
func NewPromptWatcher(pattern string) *PromptWatcher {
	return &PromptWatcher{pattern: pattern, matched: make(chan struct{})}
}

// Observe feeds one output chunk. Text spanning chunk boundaries matches.
func (w *PromptWatcher) Observe(chunk string) {
	select {
	case <-w.matched:
		return
	default:
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.tail += ansi.Strip(chunk)
	if strings.Contains(w.tail, w.pattern) {
		w.once.Do(func() { close(w.matched) })
		w.tail = ""
		return
	}
	// Keep just enough to match a pattern split across chunks.
	if keep := len(w.pattern) - 1; len(w.tail) > keep {
		w.tail = w.tail[len(w.tail)-keep:]
	}
}

// Matched is closed once the pattern has appeared.
func (w *PromptWatcher) Matched() <-chan struct{} {
	return w.matched
}

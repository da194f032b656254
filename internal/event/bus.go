package event

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/techspeque/specstudio/internal/logging"
)

// Handler receives stream events from a Bus.
type Handler func(StreamEvent)

// Filter narrows the events a subscription receives. The zero Filter
// matches everything.
type Filter struct {
	// Kinds limits delivery to these kinds; empty means all kinds.
	Kinds []Kind
	// ProcessID limits delivery to one run; empty means all runs.
	ProcessID string
}

// Matches reports whether ev passes the filter.
func (f Filter) Matches(ev StreamEvent) bool {
	if f.ProcessID != "" && ev.ProcessID != f.ProcessID {
		return false
	}
	return len(f.Kinds) == 0 || slices.Contains(f.Kinds, ev.Kind)
}

type subscription struct {
	id      string
	filter  Filter
	handler Handler
}

// Bus fans stream events out to subscribers synchronously, in subscription
// order. It implements Sink, so the supervisor publishes to it while the CLI
// printer and the websocket bridge subscribe independently.
//
// Emit is called concurrently by the pumps of every live run; handlers must
// be safe for that.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64
	logger *logging.Logger
}

// NewBus creates an empty bus. A nil logger discards handler panics
// reports.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{logger: logger.WithComponent("event-bus")}
}

// Subscribe registers handler for events matching f and returns an id for
// Unsubscribe.
func (b *Bus) Subscribe(f Filter, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subs = append(b.subs, subscription{id: id, filter: f, handler: handler})
	return id
}

// SubscribeStream registers handler for every event of every run.
func (b *Bus) SubscribeStream(handler Handler) string {
	return b.Subscribe(Filter{}, handler)
}

// SubscribeRun registers handler for the events of one run.
func (b *Bus) SubscribeRun(processID string, handler Handler) string {
	return b.Subscribe(Filter{ProcessID: processID}, handler)
}

// Unsubscribe removes a subscription. It reports whether id was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.subs, func(s subscription) bool { return s.id == id })
	if i < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return true
}

// Emit implements Sink. Handlers run on the caller's goroutine, outside the
// bus lock, so a handler may subscribe or unsubscribe.
func (b *Bus) Emit(ev StreamEvent) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.filter.Matches(ev) {
			b.safeCall(sub, ev)
		}
	}
}

// safeCall keeps one broken subscriber from stopping delivery to the rest.
func (b *Bus) safeCall(sub subscription, ev StreamEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscription", sub.id,
				"process_id", ev.ProcessID,
				"kind", string(ev.Kind),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	sub.handler(ev)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

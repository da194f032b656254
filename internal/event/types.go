// Package event defines the stream events a supervised run produces and the
// sinks that carry them to the frontend.
package event

import "time"

// Channel is the frontend event name stream events are delivered on.
const Channel = "rpc:stream:data"

// Kind classifies a stream event.
type Kind string

const (
	KindOutput   Kind = "output"
	KindError    Kind = "error"
	KindInput    Kind = "input"
	KindComplete Kind = "complete"
)

// Valid reports whether k is one of the four stream kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindOutput, KindError, KindInput, KindComplete:
		return true
	}
	return false
}

// StreamEvent is one chunk of run activity. Values are immutable once emitted.
type StreamEvent struct {
	Kind      Kind   `json:"type"`
	Data      string `json:"data"`
	Millis    uint64 `json:"timestamp"`
	ProcessID string `json:"processId,omitempty"`
	// ExitCode is set only on KindComplete.
	ExitCode *int `json:"exitCode,omitempty"`
}

// NewStreamEvent stamps a new event with the current wall-clock millis.
func NewStreamEvent(processID string, kind Kind, data string) StreamEvent {
	return StreamEvent{
		Kind:      kind,
		Data:      data,
		Millis:    nowMillis(),
		ProcessID: processID,
	}
}

// NewCompleteEvent builds the terminal event for a run.
func NewCompleteEvent(processID string, exitCode int, data string) StreamEvent {
	ev := NewStreamEvent(processID, KindComplete, data)
	ev.ExitCode = &exitCode
	return ev
}

// Timestamp returns the event time.
func (e StreamEvent) Timestamp() time.Time { return time.UnixMilli(int64(e.Millis)) }

// IsTerminal reports whether no further events follow this one for its run.
func (e StreamEvent) IsTerminal() bool { return e.Kind == KindComplete }

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Sink accepts stream events. Implementations must be safe for concurrent
// use; pumps for several runs emit at the same time.
type Sink interface {
	Emit(StreamEvent)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(StreamEvent)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev StreamEvent) { f(ev) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(StreamEvent) {})

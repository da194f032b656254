package process

import (
	"io"
	"sync"

	"github.com/techspeque/specstudio/internal/errors"
)

// ChannelKind distinguishes the two ways input reaches a child
type ChannelKind int

const (
	// KindStdin writes to the write end of the child's stdin pipe
	KindStdin ChannelKind = iota
	// KindPTY writes to the pseudo-terminal master
	KindPTY
)

func (k ChannelKind) String() string {
	if k == KindPTY {
		return "pty"
	}
	return "stdin"
}

// LineEnding is what the child expects at the end of a submitted line.
// Terminals send carriage return for Enter; pipes want a newline.
func (k ChannelKind) LineEnding() string {
	if k == KindPTY {
		return "\r"
	}
	return "\n"
}

// WriteChannel is the single input path into one run. Writes and Close are
// serialized by a mutex so input injection can race process exit safely.
type WriteChannel struct {
	mu     sync.Mutex
	kind   ChannelKind
	w      io.WriteCloser
	closed bool
	// onWrite observes every successful write while mu is held.
	onWrite func([]byte)
}

// NewStdinChannel wraps the write end of a stdin pipe.
func NewStdinChannel(w io.WriteCloser) *WriteChannel {
	return &WriteChannel{kind: KindStdin, w: w}
}

// NewPTYChannel wraps a pseudo-terminal master.
func NewPTYChannel(master io.WriteCloser) *WriteChannel {
	return &WriteChannel{kind: KindPTY, w: master}
}

// Kind returns the channel variant.
func (c *WriteChannel) Kind() ChannelKind {
	return c.kind
}

// OnWrite installs a hook called with each successfully written chunk.
// The hook runs under the channel lock, so no call can follow Close.
func (c *WriteChannel) OnWrite(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite = fn
}

// Write sends p to the child. It fails with ErrWriterUnavailable once the
// channel is closed.
func (c *WriteChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, errors.ErrWriterUnavailable
	}
	n, err := c.w.Write(p)
	if n > 0 && c.onWrite != nil {
		c.onWrite(p[:n])
	}
	if err != nil {
		return n, errors.Join(errors.ErrWriterUnavailable, err)
	}
	return n, nil
}

// WriteString is a convenience for Write([]byte(s)).
func (c *WriteChannel) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// flusher is implemented by handles that buffer writes.
type flusher interface {
	Flush() error
}

// Flush pushes buffered input to the child. Pipes and PTY masters are
// unbuffered, so for them it only checks the channel is still open.
func (c *WriteChannel) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrWriterUnavailable
	}
	if f, ok := c.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return errors.Join(errors.ErrWriterUnavailable, err)
		}
	}
	return nil
}

// Close closes the underlying handle. It is idempotent.
func (c *WriteChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.w.Close()
}

// Closed reports whether Close has been called.
func (c *WriteChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

package process

import (
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/techspeque/specstudio/internal/errors"
	"github.com/techspeque/specstudio/internal/event"
)

// DefaultReadBufferSize is used when a Pump has no explicit size.
const DefaultReadBufferSize = 1024

// Pump republishes a byte stream as events, one event per read. Nothing is
// line-buffered: in-place progress updates and partial lines are forwarded
// as they arrive.
type Pump struct {
	ProcessID string
	Kind      event.Kind
	Sink      event.Sink
	// BufferSize bounds each read; DefaultReadBufferSize when zero
	BufferSize int
	// Observe, if set, sees every decoded chunk before it is emitted
	Observe func(string)
}

// Run reads r until end of stream. Invalid UTF-8 is replaced with U+FFFD;
// a rune split across two reads is carried over rather than replaced.
// A nil return means the stream ended normally.
func (p *Pump) Run(r io.Reader) error {
	size := p.BufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}

	// The decoder flushes a trailing partial rune only on io.EOF, so every
	// end-of-stream error has to reach it as io.EOF.
	dec := transform.NewReader(endOfStreamReader{r}, unicode.UTF8.NewDecoder())
	buf := make([]byte, size)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if p.Observe != nil {
				p.Observe(chunk)
			}
			p.Sink.Emit(event.NewStreamEvent(p.ProcessID, p.Kind, chunk))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// endOfStreamReader reports the ways a pipe or PTY master signals that the
// writer is gone as io.EOF.
type endOfStreamReader struct {
	r io.Reader
}

func (e endOfStreamReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && streamEnded(err) {
		err = io.EOF
	}
	return n, err
}

func streamEnded(err error) bool {
	return err == io.EOF || isEndOfStream(err) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}

package process

import (
	"fmt"
	"sync/atomic"
	"time"
)

// IDGenerator issues run ids of the form proc_<unixmillis>_<seq>.
// The sequence makes ids unique even within one millisecond.
type IDGenerator struct {
	seq atomic.Uint64
	now func() time.Time
}

// NewIDGenerator returns a generator using the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns a fresh id. It is safe for concurrent use.
func (g *IDGenerator) Next() string {
	n := g.seq.Add(1)
	return fmt.Sprintf("proc_%d_%d", g.now().UnixMilli(), n)
}

package process

import (
	"sort"
	"sync"
	"time"

	"github.com/techspeque/specstudio/internal/logging"
)

// Record is one tracked child process
type Record struct {
	ID     string
	Action string
	Writer *WriteChannel
	// PID is the OS process id, 0 when unknown
	PID       int
	StartedAt time.Time

	seq uint64
}

// Registry maps run ids to their live records. All methods take a single
// lock and never call back into the registry while holding it.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	seq     uint64
	logger  *logging.Logger
	// kill terminates a process group; replaced in tests
	kill func(pid int) error
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Registry{
		records: make(map[string]*Record),
		logger:  logger.WithComponent("registry"),
		kill:    killProcessGroup,
	}
}

// Register stores rec. A duplicate id is logged and ignored; the return
// value reports whether rec was stored.
func (r *Registry) Register(rec *Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.ID]; exists {
		r.logger.Error("duplicate process id", "process_id", rec.ID)
		return false
	}
	r.seq++
	rec.seq = r.seq
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	r.records[rec.ID] = rec
	r.logger.Debug("process registered", "process_id", rec.ID, "pid", rec.PID, "action", rec.Action)
	return true
}

// Writer returns the write channel of a tracked run.
func (r *Registry) Writer(id string) (*WriteChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.Writer, true
}

// Get returns a copy of a tracked record.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Contains reports whether id is tracked.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[id]
	return ok
}

// Remove drops id. Removing an absent id is a no-op; the return value
// reports whether a record was removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	r.logger.Debug("process removed", "process_id", id)
	return true
}

// KillAll force-terminates the process group of every tracked run, empties
// the registry, and returns how many groups were signalled.
func (r *Registry) KillAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	killed := 0
	for id, rec := range r.records {
		delete(r.records, id)
		if rec.PID <= 0 {
			continue
		}
		if err := r.kill(rec.PID); err != nil {
			r.logger.Warn("failed to kill process group", "process_id", id, "pid", rec.PID, "error", err)
			continue
		}
		killed++
	}
	return killed
}

// ActiveID returns the most recently registered tracked id.
func (r *Registry) ActiveID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Record
	for _, rec := range r.records {
		if best == nil || rec.seq > best.seq {
			best = rec
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

// IDs returns the tracked ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	recs := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

// Len returns the number of tracked runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

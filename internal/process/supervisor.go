package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/errors"
	"github.com/techspeque/specstudio/internal/event"
	"github.com/techspeque/specstudio/internal/logging"
)

// Builder resolves an action request into a command. *command.Builder
// satisfies it.
type Builder interface {
	Build(id, action, cwd string, params map[string]string) (*command.Command, error)
}

// Options tune how runs are spawned and streamed
type Options struct {
	// ReadBufferSize bounds each output read
	ReadBufferSize int
	// Terminal is the initial PTY size
	Terminal TerminalSize
	// Ghost configures automatic dismissal of the permission dialog
	Ghost config.GhostConfig
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReadBufferSize: cfg.Shell.ReadBufferSize,
		Terminal: TerminalSize{
			Cols: uint16(cfg.Shell.PTYCols),
			Rows: uint16(cfg.Shell.PTYRows),
		},
		Ghost: cfg.Ghost,
	}
}

// WaitFailedExitCode is reported when the child's exit status is unknown.
const WaitFailedExitCode = -1

// Supervisor runs the spawn, stream, wait, cleanup sequence for each run.
// It is safe for concurrent use.
type Supervisor struct {
	builder  Builder
	registry *Registry
	sink     event.Sink
	logger   *logging.Logger
	opts     Options
	ids      *IDGenerator
	ghost    *GhostAutomation

	runs    conc.WaitGroup
	closing atomic.Bool
	closeMu sync.RWMutex
}

// NewSupervisor creates a Supervisor. registry is shared with any other
// component that injects input or cancels runs.
func NewSupervisor(builder Builder, registry *Registry, sink event.Sink, logger *logging.Logger, opts Options) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if sink == nil {
		sink = event.Discard
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}
	if opts.Terminal.Cols == 0 || opts.Terminal.Rows == 0 {
		opts.Terminal = TerminalSize{Cols: 120, Rows: 40}
	}
	return &Supervisor{
		builder:  builder,
		registry: registry,
		sink:     sink,
		logger:   logger.WithComponent("supervisor"),
		opts:     opts,
		ids:      NewIDGenerator(),
		ghost:    NewGhostAutomation(registry, logger, opts.Ghost.KeySequence(), opts.Ghost.KeyInterval()),
	}
}

// Registry returns the registry runs are tracked in.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// run carries one supervised child through its lifecycle
type run struct {
	id      string
	cmd     *command.Command
	child   *child
	logger  *logging.Logger
	watcher *PromptWatcher
	// stopGhost cancels pending ghost input at cleanup
	stopGhost context.CancelFunc
	ghostDone <-chan struct{}
}

// Spawn starts action and returns its process id once the child is
// running. Errors before that point (bad parameters, unknown action, a
// binary that cannot be started) are returned here and no events are
// emitted; everything after is reported only through the event stream.
func (s *Supervisor) Spawn(ctx context.Context, action, cwd string, params map[string]string) (string, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closing.Load() {
		return "", errors.NewUnavailableError("supervisor is shutting down", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := s.ids.Next()
	logger := s.logger.WithProcess(id).WithAction(action)

	cmd, err := s.builder.Build(id, action, cwd, params)
	if err != nil {
		logger.Warn("command build failed", "error", err)
		return "", err
	}

	var ch *child
	if cmd.Mode == command.ModePTY {
		ch, err = startPTY(cmd, s.opts.Terminal)
	} else {
		ch, err = startPipe(cmd)
	}
	if err != nil {
		if rmErr := cmd.RemoveTempFile(); rmErr != nil {
			logger.Warn("failed to remove prompt file", "path", cmd.TempFile, "error", rmErr)
		}
		logger.Error("spawn failed", "executable", cmd.Executable, "error", err)
		return "", errors.NewResolutionError(fmt.Sprintf("failed to spawn %s", cmd.Executable), err).
			WithBinary(cmd.Executable)
	}

	pid := ch.cmd.Process.Pid
	ch.writer.OnWrite(func(p []byte) {
		s.sink.Emit(event.NewStreamEvent(id, event.KindInput, string(p)))
	})

	r := &run{id: id, cmd: cmd, child: ch, logger: logger.With("pid", pid)}
	s.registry.Register(&Record{ID: id, Action: action, Writer: ch.writer, PID: pid})

	r.logger.Info("process started", "mode", cmd.Mode.String(), "executable", cmd.Executable)
	s.sink.Emit(event.NewStreamEvent(id, event.KindOutput, fmt.Sprintf("Started %s (pid %d)\r\n", action, pid)))

	if cmd.Ghost && s.opts.Ghost.Enabled {
		s.scheduleGhost(r)
	}

	s.runs.Go(func() { s.supervise(r) })
	return id, nil
}

func (s *Supervisor) scheduleGhost(r *run) {
	ctx, cancel := context.WithCancel(context.Background())
	r.stopGhost = cancel

	if s.opts.Ghost.Mode == config.GhostModePattern {
		r.watcher = NewPromptWatcher(s.opts.Ghost.PromptPattern)
		r.ghostDone = s.ghost.ScheduleOnPrompt(ctx, r.id, r.watcher.Matched(), s.opts.Ghost.PatternTimeout())
		return
	}
	r.ghostDone = s.ghost.ScheduleBypass(ctx, r.id, s.opts.Ghost.Delay())
}

// supervise pumps output until every stream ends, reaps the child, cleans
// up, and emits the complete event last.
func (s *Supervisor) supervise(r *run) {
	var pumps conc.WaitGroup
	for _, st := range r.child.streams {
		p := &Pump{ProcessID: r.id, Kind: st.kind, Sink: s.sink, BufferSize: s.opts.ReadBufferSize}
		if r.watcher != nil {
			p.Observe = r.watcher.Observe
		}
		src := st.r
		pumps.Go(func() {
			if err := p.Run(src); err != nil {
				r.logger.Error("output read failed", "error", errors.NewRuntimeError("read", err).WithProcessID(r.id))
			}
		})
	}
	if recovered := pumps.WaitAndRecover(); recovered != nil {
		r.logger.Error("output pump panicked", "panic", recovered.String())
	}

	// Once the child is a zombie, drop it from the registry before reaping
	// it, so KillAll can never signal a process group id the OS has since
	// handed to someone else.
	if err := waitUntilExited(r.child.cmd.Process.Pid); err == nil {
		s.registry.Remove(r.id)
	}

	code := waitExitCode(r.child.cmd)
	if code == WaitFailedExitCode {
		r.logger.Warn("exit status unavailable")
	}

	s.cleanup(r)

	r.logger.Info("process exited", "exit_code", code)
	s.sink.Emit(event.NewCompleteEvent(r.id, code, fmt.Sprintf("Process exited with code %d", code)))
}

// cleanup releases everything the run owns. Each step is guarded so a
// failure, or a panic from shared state being torn down, cannot skip the
// steps after it or the complete event.
func (s *Supervisor) cleanup(r *run) {
	guard(r.logger, "stop ghost input", func() {
		if r.stopGhost != nil {
			r.stopGhost()
			<-r.ghostDone
		}
	})
	guard(r.logger, "registry removal", func() {
		s.registry.Remove(r.id)
	})
	guard(r.logger, "close input", func() {
		if err := r.child.writer.Close(); err != nil && !isAlreadyClosed(err) {
			r.logger.Debug("input close failed", "error", err)
		}
	})
	guard(r.logger, "prompt file removal", func() {
		if err := r.cmd.RemoveTempFile(); err != nil {
			r.logger.Warn("failed to remove prompt file", "path", r.cmd.TempFile, "error", err)
		}
	})
}

func guard(logger *logging.Logger, step string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("cleanup step panicked", "step", step, "panic", fmt.Sprint(rec))
		}
	}()
	fn()
}

func isAlreadyClosed(err error) bool {
	return errors.Is(err, os.ErrClosed)
}

// waitExitCode reaps cmd and converts its status to an exit code.
func waitExitCode(cmd *exec.Cmd) int {
	err := cmd.Wait()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCodeFromState(exitErr)
	}
	return WaitFailedExitCode
}

// SendInput writes input to a run. An empty processID targets the most
// recently started run. A line ending is appended when input lacks one.
func (s *Supervisor) SendInput(processID, input string) error {
	id := processID
	if id == "" {
		active, ok := s.registry.ActiveID()
		if !ok {
			return errors.NewUnavailableError("no active process", errors.ErrNoActiveProcess)
		}
		id = active
	}

	w, ok := s.registry.Writer(id)
	if !ok {
		return errors.NewUnavailableError("process not found", errors.ErrProcessNotFound).WithProcessID(id)
	}

	if !strings.HasSuffix(input, "\n") && !strings.HasSuffix(input, "\r") {
		input += w.Kind().LineEnding()
	}
	if _, err := w.WriteString(input); err != nil {
		return errors.NewUnavailableError("failed to write input", err).WithProcessID(id)
	}
	if err := w.Flush(); err != nil {
		return errors.NewUnavailableError("failed to flush input", err).WithProcessID(id)
	}
	s.logger.Debug("input sent", "process_id", id, "bytes", len(input))
	return nil
}

// CancelAll force-kills every tracked run and returns how many were
// signalled. Each run still finishes with its own complete event.
func (s *Supervisor) CancelAll() int {
	n := s.registry.KillAll()
	s.logger.Info(fmt.Sprintf("Cancelled %d streaming processes", n), "count", n)
	return n
}

// Shutdown refuses new runs, cancels the tracked ones, and waits for
// their supervision to finish or ctx to end.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.closeMu.Lock()
	s.closing.Store(true)
	s.closeMu.Unlock()

	s.CancelAll()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every run spawned so far has emitted its complete event.
func (s *Supervisor) Wait() {
	s.runs.Wait()
}

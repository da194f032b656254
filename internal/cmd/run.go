package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/errors"
	"github.com/techspeque/specstudio/internal/event"
	"github.com/techspeque/specstudio/internal/process"
	"github.com/techspeque/specstudio/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run <action>",
	Short: "Run one streaming action in this terminal",
	Long: `Run one streaming action and stream its output here.

Actions:
  create_code  generate code from a spec with Claude (PTY)
  gen_tests    generate tests from a spec with Claude (PTY)
  run_tool     run Claude with the spec content as the prompt (PTY)
  run_tests    npm test
  run_app      npm run dev

Lines typed on stdin are sent to the running process. With --raw the
terminal is put in raw mode and every keystroke is forwarded as is.
Ctrl-C cancels the run unless --raw is set, in which case it is
delivered to the child.

Examples:
  specstudio run create_code --spec docs/login.md --adr docs/adr/0003.md
  specstudio run run_tests --dir ./web
  cat spec.md | specstudio run gen_tests --spec -`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: command.Actions(),
	RunE:      runRun,
}

var (
	runSpecFile string
	runADRFile  string
	runDir      string
	runRaw      bool
	runQuiet    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runSpecFile, "spec", "s", "", "Spec file to pass as spec content ('-' for stdin)")
	runCmd.Flags().StringVar(&runADRFile, "adr", "", "ADR file to pass as architecture context")
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "Working directory for the run (default: current directory)")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "Put the terminal in raw mode and forward keystrokes")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress status lines")
}

func runRun(cmd *cobra.Command, args []string) error {
	action := args[0]
	stdin := cmd.InOrStdin()

	params, err := readRunParams(stdin)
	if err != nil {
		return err
	}
	stdinConsumed := runSpecFile == "-"

	stdout := cmd.OutOrStdout()
	a, err := newApp(func(opts *process.Options) {
		if f, ok := stdout.(*os.File); ok {
			if w, h, err := term.GetSize(int(f.Fd())); err == nil && w > 0 && h > 0 {
				opts.Terminal = process.TerminalSize{Cols: uint16(w), Rows: uint16(h)}
			}
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	p := newPrinter(stdout, cmd.ErrOrStderr(), !runQuiet)
	a.bus.SubscribeStream(p.handle)

	if spec, ok := params[command.ParamSpecContent]; ok {
		p.status(labelStyle.Render(symbolRun+" "+action) + " " + mutedStyle.Render(util.Preview(spec, previewWidth)))
	} else {
		p.status(labelStyle.Render(symbolRun + " " + action))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	id, err := a.supervisor.Spawn(ctx, action, runDir, params)
	if err != nil {
		return err
	}
	a.logger.Info("run started from cli", "process_id", id, "action", action)

	if runRaw {
		restore, err := makeRaw(stdin)
		if err != nil {
			a.logger.Warn("raw mode unavailable", "error", err)
		} else {
			defer restore()
			p.setRaw()
			// Ctrl-C now reaches the child as a byte; only SIGTERM cancels.
			stop()
			ctx, stop = signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
		}
	}

	if !stdinConsumed {
		go forwardInput(a.supervisor, id, stdin, runRaw)
	}

	select {
	case code := <-p.done:
		return finishRun(p, code, time.Since(start))
	case <-ctx.Done():
		a.supervisor.CancelAll()
		code := <-p.done
		return finishRun(p, code, time.Since(start))
	}
}

func finishRun(p *printer, code int, elapsed time.Duration) error {
	elapsed = elapsed.Round(time.Millisecond)
	if code == 0 {
		p.status(successStyle.Render(fmt.Sprintf("%s exited with code 0", symbolOK)) + " " + mutedStyle.Render(elapsed.String()))
		return nil
	}
	p.status(failureStyle.Render(fmt.Sprintf("%s exited with code %d", symbolFail, code)) + " " + mutedStyle.Render(elapsed.String()))
	return &exitError{code: code}
}

// readRunParams loads the spec and ADR flags into builder parameters.
func readRunParams(stdin io.Reader) (map[string]string, error) {
	params := make(map[string]string)
	if runSpecFile != "" {
		spec, err := readSource(runSpecFile, stdin)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read spec %s", runSpecFile)
		}
		params[command.ParamSpecContent] = spec
	}
	if runADRFile != "" {
		adr, err := readSource(runADRFile, stdin)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read ADR %s", runADRFile)
		}
		params[command.ParamADRContext] = adr
	}
	return params, nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// makeRaw switches stdin to raw mode when it is a terminal.
func makeRaw(stdin io.Reader) (func(), error) {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	return func() { _ = term.Restore(int(f.Fd()), state) }, nil
}

// forwardInput copies stdin to the run until stdin ends or the run is gone.
// Raw mode forwards bytes untouched; otherwise each line is sent whole and
// the run's line ending is applied.
func forwardInput(sup *process.Supervisor, id string, stdin io.Reader, raw bool) {
	if raw {
		w, ok := sup.Registry().Writer(id)
		if !ok {
			return
		}
		_, _ = io.Copy(w, stdin)
		return
	}

	sc := bufio.NewScanner(stdin)
	for sc.Scan() {
		if err := sup.SendInput(id, sc.Text()); err != nil {
			return
		}
	}
}

// printer renders stream events for one terminal. Pumps for stdout and
// stderr emit concurrently, so writes are serialized.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	showMeta bool
	done     chan int
	atBOL    bool
	eol      string
}

func newPrinter(out, errOut io.Writer, showMeta bool) *printer {
	return &printer{out: out, errOut: errOut, showMeta: showMeta, done: make(chan int, 1), atBOL: true, eol: "\n"}
}

func (p *printer) handle(ev event.StreamEvent) {
	switch ev.Kind {
	case event.KindOutput:
		p.write(p.out, ev.Data)
	case event.KindError:
		p.write(p.errOut, ev.Data)
	case event.KindComplete:
		code := process.WaitFailedExitCode
		if ev.ExitCode != nil {
			code = *ev.ExitCode
		}
		select {
		case p.done <- code:
		default:
		}
	}
}

func (p *printer) write(w io.Writer, data string) {
	if data == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(w, data)
	p.atBOL = strings.HasSuffix(data, "\n")
}

// status prints a line of metadata, starting it on a fresh line.
func (p *printer) status(line string) {
	if !p.showMeta {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.atBOL {
		_, _ = io.WriteString(p.out, p.eol)
	}
	_, _ = io.WriteString(p.out, line+p.eol)
	p.atBOL = true
}

// setRaw switches status lines to CRLF for a terminal in raw mode.
func (p *printer) setRaw() {
	p.mu.Lock()
	p.eol = "\r\n"
	p.mu.Unlock()
}

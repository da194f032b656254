package process

import (
	"io"
	"os/exec"

	"github.com/creack/pty"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/event"
)

// stream is one readable output handle and the event kind it feeds
type stream struct {
	r    io.Reader
	kind event.Kind
}

// child is a started process and the handles the supervisor owns
type child struct {
	cmd     *exec.Cmd
	writer  *WriteChannel
	streams []stream
}

// TerminalSize is the initial PTY window size
type TerminalSize struct {
	Cols uint16
	Rows uint16
}

func newExecCmd(c *command.Command) *exec.Cmd {
	cmd := exec.Command(c.Executable, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Environ()
	return cmd
}

// startPipe starts c with anonymous pipes and its own process group.
// stdout and stderr are pumped separately.
func startPipe(c *command.Command) (*child, error) {
	cmd := newExecCmd(c)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &child{
		cmd:    cmd,
		writer: NewStdinChannel(stdin),
		streams: []stream{
			{r: stdout, kind: event.KindOutput},
			{r: stderr, kind: event.KindError},
		},
	}, nil
}

// startPTY starts c as a session leader with a pseudo-terminal as its
// controlling terminal. The master carries both output streams.
func startPTY(c *command.Command, size TerminalSize) (*child, error) {
	cmd := newExecCmd(c)

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: size.Cols, Rows: size.Rows})
	if err != nil {
		return nil, err
	}

	return &child{
		cmd:     cmd,
		writer:  NewPTYChannel(master),
		streams: []stream{{r: master, kind: event.KindOutput}},
	}, nil
}

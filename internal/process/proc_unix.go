//go:build unix

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcessGroup puts a pipe-mode child in its own process group so the
// whole tree can be signalled at once.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the group led by pid. PTY children are
// session leaders (Setsid), so their group id equals their pid as well.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// exitCodeFromState maps a wait status to a shell-style exit code:
// 128+signal for signalled children.
func exitCodeFromState(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ws.ExitStatus()
	}
	return err.ExitCode()
}

// isEndOfStream reports read errors that mean the stream is finished.
// Linux returns EIO from a PTY master once the slave side is closed.
func isEndOfStream(err error) bool {
	return errors.Is(err, syscall.EIO)
}

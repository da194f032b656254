//go:build !unix

package process

import (
	"os/exec"

	"github.com/techspeque/specstudio/internal/errors"
)

func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup is not implemented off unix; the caller logs a warning
// and the run keeps going.
func killProcessGroup(pid int) error {
	return errors.ErrUnsupportedPlatform
}

func exitCodeFromState(err *exec.ExitError) int {
	return err.ExitCode()
}

func isEndOfStream(err error) bool {
	return false
}

//go:build !linux

package process

import "github.com/techspeque/specstudio/internal/errors"

// waitUntilExited has no non-reaping wait to build on here. The caller
// falls back to removing the run after cmd.Wait.
func waitUntilExited(pid int) error {
	return errors.ErrUnsupportedPlatform
}

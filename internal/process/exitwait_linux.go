//go:build linux

package process

import "golang.org/x/sys/unix"

// waitUntilExited blocks until pid has exited but leaves it unreaped, so
// its pid and process group id cannot be reused until cmd.Wait runs.
func waitUntilExited(pid int) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err != unix.EINTR {
			return err
		}
	}
}

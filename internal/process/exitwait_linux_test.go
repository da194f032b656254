//go:build linux

package process

import (
	"context"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/techspeque/specstudio/internal/testutil"
)

func TestWaitUntilExited_LeavesChildUnreaped(t *testing.T) {
	testutil.RequireShell(t)
	cmd := exec.Command("/bin/sh", "-c", "exit 3")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	pid := cmd.Process.Pid

	if err := waitUntilExited(pid); err != nil {
		t.Fatalf("waitUntilExited() error = %v", err)
	}
	// A zombie still owns its pid, so signal 0 succeeds.
	if err := syscall.Kill(pid, 0); err != nil {
		t.Errorf("child was reaped early: kill(pid, 0) = %v", err)
	}
	if code := waitExitCode(cmd); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestSupervisor_TrackedUntilExit(t *testing.T) {
	testutil.RequireShell(t)
	// Closing both streams ends the pumps while the child keeps running.
	b := &shellBuilder{scripts: map[string]string{"detach": "exec >&- 2>&-; sleep 30"}}
	s, rec := newTestSupervisor(t, b, Options{})

	id, err := s.Spawn(context.Background(), "detach", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if !s.Registry().Contains(id) {
		t.Fatal("a running child must stay tracked after its streams close")
	}
	if n := s.CancelAll(); n != 1 {
		t.Errorf("CancelAll() = %d, want 1", n)
	}
	done := rec.waitComplete(t, id)
	if *done.ExitCode != 137 {
		t.Errorf("exit code = %d, want 137", *done.ExitCode)
	}
	if s.Registry().Contains(id) {
		t.Error("registry still tracks an exited run")
	}
}

package testutil

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestWriteScript(t *testing.T) {
	RequireShell(t)

	path := WriteScript(t, t.TempDir(), "npm", `echo "args: $*"`)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Error("script should be executable")
	}

	out, err := exec.Command(path, "run", "dev").Output()
	if err != nil {
		t.Fatalf("running script failed: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != "args: run dev" {
		t.Errorf("output = %q", got)
	}
}

func TestWaitFor(t *testing.T) {
	calls := 0
	WaitFor(t, time.Second, func() bool {
		calls++
		return calls == 3
	})
	if calls != 3 {
		t.Errorf("cond called %d times, want 3", calls)
	}
}

package process

import (
	"regexp"
	"testing"
	"time"
)

func TestIDGenerator_Next(t *testing.T) {
	g := NewIDGenerator()
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }

	first := g.Next()
	second := g.Next()

	if first != "proc_1700000000000_1" {
		t.Errorf("first = %q", first)
	}
	if first == second {
		t.Error("ids within one millisecond must differ")
	}
	if !regexp.MustCompile(`^proc_\d+_\d+$`).MatchString(NewIDGenerator().Next()) {
		t.Error("id format mismatch")
	}
}

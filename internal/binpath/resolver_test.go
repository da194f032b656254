package binpath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolver_Resolve(t *testing.T) {
	home := t.TempDir()
	localBin := filepath.Join(home, ".local", "bin")
	npmBin := filepath.Join(home, ".npm-global", "bin")

	writeExecutable(t, npmBin, "claude")
	want := writeExecutable(t, localBin, "claude")
	writeExecutable(t, npmBin, "only-npm")

	r := NewResolver(home)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"first match wins", "claude", want},
		{"later dir", "only-npm", filepath.Join(npmBin, "only-npm")},
		{"not found", "specstudio-missing-tool", "specstudio-missing-tool"},
		{"absolute path untouched", "/bin/sh", "/bin/sh"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolver_SkipsDirectories(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, ".local", "bin", "npm"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(home)
	if got := r.Resolve("npm"); got == filepath.Join(home, ".local", "bin", "npm") {
		t.Error("Resolve() returned a directory")
	}
}

func TestResolver_ExtraDirsFirst(t *testing.T) {
	home := t.TempDir()
	extra := filepath.Join(t.TempDir(), "tools")
	writeExecutable(t, filepath.Join(home, ".local", "bin"), "npm")
	want := writeExecutable(t, extra, "npm")

	r := NewResolver(home, "  ", extra)
	if got := r.Resolve("npm"); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
	if dirs := r.Dirs(); dirs[0] != extra {
		t.Errorf("Dirs()[0] = %q, want %q", dirs[0], extra)
	}
}

func TestResolver_NoHome(t *testing.T) {
	r := NewResolver("")
	for _, d := range r.Dirs() {
		if !filepath.IsAbs(d) {
			t.Errorf("relative dir %q with empty home", d)
		}
	}
	if dirs := r.Dirs(); dirs[len(dirs)-1] != "/usr/bin" {
		t.Errorf("last dir = %q, want /usr/bin", dirs[len(dirs)-1])
	}
}

func TestResolver_AugmentedPath(t *testing.T) {
	home := "/home/dev"
	r := NewResolver(home)
	sep := string(os.PathListSeparator)

	got := r.augment("/sbin" + sep + "/bin")
	if !strings.HasPrefix(got, filepath.Join(home, ".local", "bin")+sep) {
		t.Errorf("augmented PATH should start with ~/.local/bin: %q", got)
	}
	if !strings.HasSuffix(got, sep+"/sbin"+sep+"/bin") {
		t.Errorf("augmented PATH should end with the inherited PATH: %q", got)
	}

	if got := r.augment(""); strings.HasSuffix(got, sep) {
		t.Errorf("empty PATH should not leave a trailing separator: %q", got)
	}

	t.Setenv("PATH", "/inherited")
	if !strings.HasSuffix(r.AugmentedPath(), sep+"/inherited") {
		t.Errorf("AugmentedPath() = %q", r.AugmentedPath())
	}
}

func TestNewResolverWithDirs(t *testing.T) {
	dir := t.TempDir()
	want := writeExecutable(t, dir, "tool")

	r := NewResolverWithDirs("", dir)

	if dirs := r.Dirs(); len(dirs) != 1 || dirs[0] != dir {
		t.Errorf("Dirs() = %v, want only %q", dirs, dir)
	}
	if got := r.Resolve("tool"); got != want {
		t.Errorf("Resolve(tool) = %q, want %q", got, want)
	}
	// sh lives in a system dir on every unix host; it must not be found.
	if got := r.Resolve("sh"); got != "sh" {
		t.Errorf("Resolve(sh) = %q, want the name unchanged", got)
	}
}

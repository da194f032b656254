// Package binpath locates user-installed CLI tools that a GUI-launched
// process cannot find through its inherited PATH.
package binpath

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver probes an ordered list of install directories for executables.
// The zero value is not usable; create one with NewResolver.
type Resolver struct {
	dirs []string
}

// NewResolver returns a Resolver rooted at home. extra directories are
// probed first, in the order given, ahead of the built-in locations.
func NewResolver(home string, extra ...string) *Resolver {
	r := NewResolverWithDirs(extra...)
	r.dirs = append(r.dirs, searchDirs(home)...)
	return r
}

// NewResolverWithDirs probes only dirs, skipping the built-in locations.
// Blank entries are ignored.
func NewResolverWithDirs(dirs ...string) *Resolver {
	r := &Resolver{dirs: make([]string, 0, len(dirs)+10)}
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			r.dirs = append(r.dirs, d)
		}
	}
	return r
}

// NewDefaultResolver uses the current user's home directory.
func NewDefaultResolver(extra ...string) *Resolver {
	home, _ := os.UserHomeDir()
	return NewResolver(home, extra...)
}

// searchDirs is the fixed priority order of install locations.
// User-local entries are skipped when home is unknown.
func searchDirs(home string) []string {
	var dirs []string
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, ".npm-global", "bin"),
			filepath.Join(home, ".claude", "local"),
			filepath.Join(home, ".bun", "bin"),
			filepath.Join(home, ".volta", "bin"),
			filepath.Join(home, ".cargo", "bin"),
			filepath.Join(home, "go", "bin"),
		)
	}
	return append(dirs,
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
	)
}

// Dirs returns a copy of the directories probed, in priority order.
func (r *Resolver) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Resolve returns the first regular file called name found in the search
// directories. If nothing matches, or name already contains a path
// separator, name is returned unchanged so the OS search applies.
func (r *Resolver) Resolve(name string) string {
	if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return name
	}
	for _, dir := range r.dirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return name
}

// AugmentedPath returns the search directories prepended to the
// inherited PATH, separated by the OS list separator.
func (r *Resolver) AugmentedPath() string {
	return r.augment(os.Getenv("PATH"))
}

func (r *Resolver) augment(current string) string {
	parts := append([]string(nil), r.dirs...)
	if current != "" {
		parts = append(parts, current)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

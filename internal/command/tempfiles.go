package command

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StaleFile is a prompt file left behind by a run that never cleaned up
type StaleFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// FindStaleTempFiles lists prompt files in dir last modified before cutoff.
// Files of runs still in flight are newer than any sensible cutoff.
func FindStaleTempFiles(dir string, cutoff time.Time) ([]StaleFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stale []StaleFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempFilePrefix) || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, StaleFile{
				Path:    filepath.Join(dir, e.Name()),
				ModTime: info.ModTime(),
				Size:    info.Size(),
			})
		}
	}
	return stale, nil
}

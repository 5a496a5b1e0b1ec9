package feature

import (
	"io/fs"
	"path"
	"sync"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
)

// SharedDir is the architecture-independent feature root
const SharedDir = "shared"

// Locator finds feature directories inside a template filesystem.
// Lookups are cached per architecture and safe for concurrent use.
type Locator struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[string]string
}

// NewLocator creates a locator over fsys
func NewLocator(fsys fs.FS) *Locator {
	return &Locator{fsys: fsys, cache: make(map[string]string)}
}

// Locate returns the directory for id. shared/<path> takes precedence over
// <arch>/modules/<path>; if neither exists the error is FeatureNotFound.
func (l *Locator) Locate(id ID, arch Architecture) (string, error) {
	key := string(arch) + "|" + string(id)

	l.mu.RLock()
	dir, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return dir, nil
	}

	if err := id.Validate(); err != nil {
		return "", err
	}

	for _, candidate := range []string{
		path.Join(SharedDir, id.Path()),
		path.Join(arch.ModulesDir(), id.Path()),
	} {
		if isDir(l.fsys, candidate) {
			l.mu.Lock()
			l.cache[key] = candidate
			l.mu.Unlock()
			return candidate, nil
		}
	}

	return "", apperr.FeatureNotFound(string(id), string(arch))
}

func isDir(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.IsDir()
}

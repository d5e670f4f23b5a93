package cheats

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/user-none/emzx/logger"
)

// Library opens cheat files and keeps recently used ones parsed, so that
// switching between games keeps each file's enabled cheats.
type Library struct {
	fs    afero.Fs
	cache *lru.Cache[string, *File]
}

// NewLibrary creates a library reading from fs and remembering up to size
// files.
func NewLibrary(fs afero.Fs, size int) (*Library, error) {
	cache, err := lru.New[string, *File](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cheat cache: %w", err)
	}
	return &Library{fs: fs, cache: cache}, nil
}

// Open returns the parsed cheat file at path.
func (l *Library) Open(path string) (*File, error) {
	if f, ok := l.cache.Get(path); ok {
		return f, nil
	}
	f, err := Load(l.fs, path)
	if err != nil {
		return nil, err
	}
	l.cache.Add(path, f)
	return f, nil
}

// Forget drops path from the cache so the next Open re-reads it.
func (l *Library) Forget(path string) {
	l.cache.Remove(path)
}

// Load parses the cheat file at path.
func Load(fs afero.Fs, path string) (*File, error) {
	r, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cheats: %w", err)
	}
	defer r.Close()

	f, err := Parse(r)
	if err != nil {
		logger.Logf(logger.Allow, "cheats", "%s: %v", path, err)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	logger.Logf(logger.Allow, "cheats", "%s: %d cheats", path, f.Count())
	return f, nil
}

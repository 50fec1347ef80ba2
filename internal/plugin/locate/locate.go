// Package locate discovers compiler-plugin shared libraries under a
// directory tree.
//
// A file is a candidate when its base name matches
//
//	<Prefix>CompilerPlugin*<ext>
//
// where ext is the platform shared-library extension and Prefix is a glob
// fragment naming the vendor (default "*", any vendor). Matching is
// case-sensitive. Directories, including symlinked ones, are searched at any
// depth; a symlink cycle or a tree deeper than MaxDepth fails with
// status.TraversalLimit instead of recursing forever.
package locate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"accelrt/internal/common/fsutil"
	"accelrt/internal/metrics"
	"accelrt/internal/status"
)

const (
	// PluginMarker follows the vendor prefix in every plugin file name.
	PluginMarker = "CompilerPlugin"
	// DefaultPrefix accepts any vendor.
	DefaultPrefix = "*"
	// DefaultMaxDepth bounds recursion below the search root.
	DefaultMaxDepth = 64
)

// SharedLibExt returns the shared-library extension for the running platform.
func SharedLibExt() string {
	return sharedLibExt(runtime.GOOS)
}

func sharedLibExt(goos string) string {
	switch goos {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// Locator searches directory trees for plugin binaries. The zero value is
// ready to use with defaults.
type Locator struct {
	// Prefix is the glob fragment before PluginMarker. Empty means DefaultPrefix.
	Prefix string
	// MaxDepth limits how many directory levels below the root are searched.
	// Zero or negative means DefaultMaxDepth.
	MaxDepth int
	// Ext overrides the shared-library extension. Empty means SharedLibExt().
	Ext string

	Logger  zerolog.Logger
	Metrics *metrics.Plugins
}

// Pattern returns the glob a base name must match.
func (l *Locator) Pattern() string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ext := l.Ext
	if ext == "" {
		ext = SharedLibExt()
	}
	return prefix + PluginMarker + "*" + ext
}

// Match reports whether name is a plugin file name.
func (l *Locator) Match(name string) bool {
	ok, err := doublestar.Match(l.Pattern(), name)
	return err == nil && ok
}

// FindPlugins searches root with a default Locator.
func FindPlugins(root string) ([]string, error) {
	var l Locator
	return l.Find(root)
}

// Find returns the paths of every plugin binary under root, in no
// particular order. It fails with status.NotFound when root does not exist
// and status.InvalidArgument when it exists but is not a readable directory.
func (l *Locator) Find(root string) ([]string, error) {
	const op = "locate.Find"
	pattern := l.Pattern()
	if !doublestar.ValidatePattern(pattern) {
		return nil, status.New(status.InvalidArgument, op, "bad plugin name pattern %q", pattern)
	}
	abs, err := fsutil.Resolve(root)
	if err != nil {
		return nil, status.Wrap(status.NotFound, op, err, "search root %q", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, status.Wrap(status.NotFound, op, err, "search root %s", abs)
		}
		return nil, status.Wrap(status.InvalidArgument, op, err, "stat search root %s", abs)
	}
	if !info.IsDir() {
		return nil, status.New(status.InvalidArgument, op, "search root %s is not a directory", abs)
	}

	maxDepth := l.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	w := &walker{
		pattern:  pattern,
		maxDepth: maxDepth,
		onPath:   make(map[string]bool),
		done:     make(map[string]bool),
		log:      l.Logger,
	}
	if err := w.walk(abs, 0); err != nil {
		return nil, err
	}
	l.Metrics.Discovered(len(w.found))
	return w.found, nil
}

type walker struct {
	pattern  string
	maxDepth int
	// onPath holds canonical directories on the current descent chain.
	onPath map[string]bool
	// done holds canonical directories already searched via another path.
	done  map[string]bool
	found []string
	log   zerolog.Logger
}

func (w *walker) walk(dir string, depth int) error {
	const op = "locate.Find"
	canon, err := fsutil.Canonical(dir)
	if err != nil {
		if depth == 0 {
			return status.Wrap(status.InvalidArgument, op, err, "resolve search root %s", dir)
		}
		w.log.Debug().Err(err).Str("dir", dir).Msg("skipping unresolvable directory")
		return nil
	}
	if w.onPath[canon] {
		return status.New(status.TraversalLimit, op, "directory cycle: %s re-enters %s", dir, canon)
	}
	if w.done[canon] {
		return nil
	}
	if depth > w.maxDepth {
		return status.New(status.TraversalLimit, op, "%s is deeper than %d levels", dir, w.maxDepth)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if depth == 0 {
			return status.Wrap(status.InvalidArgument, op, err, "read search root %s", dir)
		}
		w.log.Warn().Err(err).Str("dir", dir).Msg("skipping unreadable directory")
		return nil
	}

	w.onPath[canon] = true
	defer delete(w.onPath, canon)

	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		typ := e.Type()
		if typ&fs.ModeSymlink != 0 {
			fi, err := os.Stat(p)
			if err != nil {
				w.log.Debug().Err(err).Str("path", p).Msg("skipping dangling symlink")
				continue
			}
			typ = fi.Mode().Type()
		}
		switch {
		case typ.IsDir():
			if err := w.walk(p, depth+1); err != nil {
				return err
			}
		case typ.IsRegular():
			if ok, _ := doublestar.Match(w.pattern, e.Name()); ok {
				w.log.Debug().Str("path", p).Msg("found shared library")
				w.found = append(w.found, p)
			}
		}
	}
	w.done[canon] = true
	return nil
}

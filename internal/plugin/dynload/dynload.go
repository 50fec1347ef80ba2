// Package dynload opens and closes accelerator plugin shared libraries.
//
// Libraries are loaded with immediate symbol binding and library-local
// visibility. On Linux the library also gets its own symbol lookup scope
// (RTLD_DEEPBIND), so one plugin's symbols cannot shadow another's.
// Failures are returned as status.DynamicLoadError; logging them is an
// optional side channel.
//
// Nothing here is safe for concurrent use or meant for a hot path: loading
// happens once at runtime initialization and may block on linker I/O.
package dynload

import (
	"errors"

	"github.com/rs/zerolog"

	"accelrt/internal/metrics"
	"accelrt/internal/status"
)

// Platform is the OS dynamic linker.
type Platform interface {
	// Open loads the library at path and returns an OS handle.
	Open(path string) (uintptr, error)
	// Close unloads a handle returned by Open.
	Close(handle uintptr) error
}

// Handle is a loaded library. It must be closed exactly once and must not
// be used after Close.
type Handle struct {
	path   string
	h      uintptr
	closed bool
}

// Path returns the path the library was loaded from.
func (h *Handle) Path() string { return h.path }

// Sys returns the OS handle, for resolving delegate entry points.
func (h *Handle) Sys() uintptr { return h.h }

// Closed reports whether Close has been called on h.
func (h *Handle) Closed() bool { return h.closed }

// Library loads plugins through a Platform.
type Library struct {
	platform Platform
	log      zerolog.Logger
	metrics  *metrics.Plugins
}

// Option configures a Library.
type Option func(*Library)

// WithPlatform replaces the OS linker, mainly for tests.
func WithPlatform(p Platform) Option {
	return func(l *Library) { l.platform = p }
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(lg zerolog.Logger) Option {
	return func(l *Library) { l.log = lg }
}

// WithMetrics records load and close results on m.
func WithMetrics(m *metrics.Plugins) Option {
	return func(l *Library) { l.metrics = m }
}

// New returns a Library backed by the native linker unless overridden.
func New(opts ...Option) *Library {
	l := &Library{platform: nativePlatform{}, log: zerolog.Nop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Open loads the library at path. If logFailure is set, a failure is logged
// together with the linker's error text.
func (l *Library) Open(path string, logFailure bool) (*Handle, error) {
	const op = "dynload.Open"
	l.log.Debug().Str("path", path).Msg("loading shared library")
	if path == "" {
		err := status.New(status.DynamicLoadError, op, "empty library path")
		l.metrics.Load(err)
		return nil, err
	}
	h, err := l.platform.Open(path)
	if err != nil {
		if logFailure {
			l.log.Warn().Str("path", path).Str("dlerror", err.Error()).Msg("failed to load shared library")
		}
		err = status.Wrap(status.DynamicLoadError, op, err, "load %s", path)
		l.metrics.Load(err)
		return nil, err
	}
	l.metrics.Load(nil)
	l.log.Info().Str("path", path).Msg("loaded shared library")
	return &Handle{path: path, h: h}, nil
}

// OpenAny tries each path in order and returns the first library that
// loads. It fails only when every candidate fails, or when paths is empty.
func (l *Library) OpenAny(paths []string, logFailure bool) (*Handle, error) {
	const op = "dynload.OpenAny"
	if len(paths) == 0 {
		return nil, status.New(status.DynamicLoadError, op, "no candidate paths")
	}
	errs := make([]error, 0, len(paths))
	for _, p := range paths {
		h, err := l.Open(p, logFailure)
		if err == nil {
			return h, nil
		}
		errs = append(errs, err)
	}
	return nil, status.Wrap(status.DynamicLoadError, op, errors.Join(errs...), "none of %d candidates loaded", len(paths))
}

// Close unloads h. A linker failure or a second Close on the same handle
// fails with DynamicLoadError.
func (l *Library) Close(h *Handle) error {
	const op = "dynload.Close"
	if h == nil {
		return status.New(status.DynamicLoadError, op, "nil handle")
	}
	if h.closed {
		return status.New(status.DynamicLoadError, op, "%s already closed", h.path)
	}
	h.closed = true
	if err := l.platform.Close(h.h); err != nil {
		l.log.Error().Str("path", h.path).Str("dlerror", err.Error()).Msg("failed to close shared library")
		err = status.Wrap(status.DynamicLoadError, op, err, "close %s", h.path)
		l.metrics.Close(err)
		return err
	}
	l.metrics.Close(nil)
	l.log.Debug().Str("path", h.path).Msg("closed shared library")
	return nil
}

var defaultLibrary = New()

// Open loads path with the default Library.
func Open(path string, logFailure bool) (*Handle, error) {
	return defaultLibrary.Open(path, logFailure)
}

// OpenAny loads the first loadable path with the default Library.
func OpenAny(paths []string, logFailure bool) (*Handle, error) {
	return defaultLibrary.OpenAny(paths, logFailure)
}

// Close unloads h with the default Library.
func Close(h *Handle) error {
	return defaultLibrary.Close(h)
}

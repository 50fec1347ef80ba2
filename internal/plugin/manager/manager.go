package manager

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"accelrt/internal/plugin/dynload"
	"accelrt/internal/registry"
	"accelrt/internal/status"
	"accelrt/pkg/types"
)

// Loader opens and closes plugin libraries. *dynload.Library implements it.
type Loader interface {
	Open(path string, logFailure bool) (*dynload.Handle, error)
	Close(h *dynload.Handle) error
}

// Config configures a Manager. Only Roots is required.
type Config struct {
	// Roots are the directory trees searched by Discover, in order.
	Roots []string
	// Scanner finds plugin binaries. Nil means registry.NewScanner(nil).
	Scanner *registry.Scanner
	// Loader opens libraries. Nil means dynload.New with Logger.
	Loader Loader
	// LogFailures is passed to Loader.Open.
	LogFailures bool
	// Publisher receives lifecycle events. Nil drops them.
	Publisher EventPublisher
	Logger    zerolog.Logger
}

type Manager struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	order     []string
	closed    bool
	roots     []string
	scanner   *registry.Scanner
	loader    Loader
	logFail   bool
	publisher EventPublisher
	log       zerolog.Logger
}

func New(cfg Config) *Manager {
	m := &Manager{
		entries:   make(map[string]*entry),
		roots:     append([]string(nil), cfg.Roots...),
		scanner:   cfg.Scanner,
		loader:    cfg.Loader,
		logFail:   cfg.LogFailures,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
	}
	if m.scanner == nil {
		m.scanner = registry.NewScanner(nil)
	}
	if m.loader == nil {
		m.loader = dynload.New(dynload.WithLogger(cfg.Logger))
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}

// Discover searches every root and records new plugins. A root that does
// not exist is skipped; any other search error is returned. IDs are file
// names, so a binary whose name was already seen is ignored with a warning.
// That covers same-name binaries in different subdirectories of one root,
// where the lexically first path wins, as well as later roots. The
// returned slice holds only plugins discovered by this call.
func (m *Manager) Discover() ([]types.Plugin, error) {
	const op = "manager.Discover"
	var found []types.Plugin
	for _, root := range m.roots {
		plugins, err := m.scanner.Scan(root)
		if status.IsNotFound(err) {
			m.log.Warn().Str("root", root).Msg("plugin root not found; skipping")
			continue
		}
		if err != nil {
			return found, status.Wrap(status.KindOf(err), op, err, "search %s", root)
		}
		found = append(found, m.record(plugins)...)
	}
	return found, nil
}

func (m *Manager) record(plugins []types.Plugin) []types.Plugin {
	m.mu.Lock()
	var added []types.Plugin
	for _, p := range plugins {
		if prev, dup := m.entries[p.ID]; dup {
			m.log.Warn().Str("plugin", p.ID).Str("path", p.Path).Str("kept", prev.plugin.Path).Msg("duplicate plugin id; ignoring")
			continue
		}
		e := &entry{plugin: p}
		e.set(StateDiscovered, nil)
		m.entries[p.ID] = e
		m.order = append(m.order, p.ID)
		added = append(added, p)
	}
	m.mu.Unlock()
	for _, p := range added {
		m.publisher.Publish(Event{Name: EventDiscovered, PluginID: p.ID, Fields: map[string]any{"path": p.Path, "vendor": p.Vendor}})
	}
	return added
}

// LoadAll loads every plugin not already loaded. Per-plugin failures are
// recorded, not returned; the call fails only if there were plugins to load
// and none of them loaded.
func (m *Manager) LoadAll() (int, error) {
	const op = "manager.LoadAll"
	m.mu.RLock()
	ids := make([]string, 0, len(m.order))
	for _, id := range m.order {
		if m.entries[id].state != StateLoaded {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	loaded := 0
	var errs []error
	for _, id := range ids {
		if err := m.Load(id); err != nil {
			if status.IsClosed(err) {
				return loaded, err
			}
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	if len(ids) > 0 && loaded == 0 {
		return 0, status.Wrap(status.DynamicLoadError, op, errors.Join(errs...), "none of %d plugins loaded", len(ids))
	}
	return loaded, nil
}

// Load opens the plugin with the given ID. Loading an already loaded plugin
// is a no-op.
func (m *Manager) Load(id string) error {
	const op = "manager.Load"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return status.New(status.Closed, op, "manager closed")
	}
	e := m.entries[id]
	if e == nil {
		return status.New(status.NotFound, op, "plugin %q", id)
	}
	if e.state == StateLoaded {
		return nil
	}
	h, err := m.loader.Open(e.plugin.Path, m.logFail)
	if err != nil {
		e.set(StateFailed, err)
		m.publisher.Publish(Event{Name: EventLoadFailed, PluginID: id, Fields: map[string]any{"path": e.plugin.Path, "error": err.Error()}})
		return err
	}
	e.handle = h
	e.set(StateLoaded, nil)
	m.publisher.Publish(Event{Name: EventLoaded, PluginID: id, Fields: map[string]any{"path": e.plugin.Path}})
	return nil
}

// Unload closes the plugin's library. The plugin stays known and can be
// loaded again.
func (m *Manager) Unload(id string) error {
	const op = "manager.Unload"
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	if e == nil {
		return status.New(status.NotFound, op, "plugin %q", id)
	}
	if e.state != StateLoaded {
		return status.New(status.InvalidArgument, op, "plugin %q is %s", id, e.state)
	}
	return m.unloadLocked(e)
}

func (m *Manager) unloadLocked(e *entry) error {
	h := e.handle
	e.handle = nil
	if err := m.loader.Close(h); err != nil {
		e.set(StateFailed, err)
		m.publisher.Publish(Event{Name: EventUnloadFailed, PluginID: e.plugin.ID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	e.set(StateUnloaded, nil)
	m.publisher.Publish(Event{Name: EventUnloaded, PluginID: e.plugin.ID, Fields: map[string]any{}})
	return nil
}

// Get returns the status of one plugin.
func (m *Manager) Get(id string) (types.PluginStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.entries[id]
	if e == nil {
		return types.PluginStatus{}, false
	}
	return e.status(), true
}

// Handle returns the library handle of a loaded plugin.
func (m *Manager) Handle(id string) (*dynload.Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.entries[id]
	if e == nil || e.state != StateLoaded {
		return nil, false
	}
	return e.handle, true
}

// Snapshot returns every known plugin in discovery order.
func (m *Manager) Snapshot() types.PluginsResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.PluginsResponse{Plugins: make([]types.PluginStatus, 0, len(m.order))}
	for _, id := range m.order {
		e := m.entries[id]
		if e.state == StateLoaded {
			resp.Loaded++
		}
		resp.Plugins = append(resp.Plugins, e.status())
	}
	return resp
}

// Close unloads every loaded plugin. Later Load calls fail with
// status.Closed; calling Close again is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	for _, id := range m.order {
		e := m.entries[id]
		if e.state != StateLoaded {
			continue
		}
		if err := m.unloadLocked(e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		m.log.Error().Int("failures", len(errs)).Msg("errors while closing plugins")
	}
	return errors.Join(errs...)
}

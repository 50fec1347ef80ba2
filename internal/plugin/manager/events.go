package manager

// Event names published by the Manager.
const (
	EventDiscovered   = "plugin_discovered"
	EventLoaded       = "plugin_loaded"
	EventLoadFailed   = "plugin_load_failed"
	EventUnloaded     = "plugin_unloaded"
	EventUnloadFailed = "plugin_unload_failed"
)

// Event represents a plugin lifecycle event.
// Minimal and stable: name + plugin ID and optional fields via key/values.
type Event struct {
	Name     string
	PluginID string
	Fields   map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

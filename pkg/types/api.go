package types

// PluginsResponse is returned by GET /plugins.
type PluginsResponse struct {
	// Discovered plugins and their load state.
	Plugins []PluginStatus `json:"plugins"`
	// Number of plugins currently loaded.
	Loaded int `json:"loaded"`
}

// PluginStatus is one entry of PluginsResponse.
type PluginStatus struct {
	Plugin
	// Lifecycle state: discovered, loaded, failed or unloaded.
	// example: loaded
	State string `json:"state"`
	// Last load or unload error, if any.
	Error string `json:"error,omitempty"`
	// Time of the last state change (unix seconds).
	// example: 1700000000
	ChangedUnix int64 `json:"changed_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	// example: 404
	Code int `json:"code"`
}

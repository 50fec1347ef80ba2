package manager

import (
	"time"

	"accelrt/internal/plugin/dynload"
	"accelrt/pkg/types"
)

type State string

const (
	StateDiscovered State = "discovered"
	StateLoaded     State = "loaded"
	StateFailed     State = "failed"
	StateUnloaded   State = "unloaded"
)

// entry is the manager's record of one plugin binary.
type entry struct {
	plugin  types.Plugin
	state   State
	handle  *dynload.Handle
	err     string
	changed time.Time
}

func (e *entry) set(s State, err error) {
	e.state = s
	e.err = ""
	if err != nil {
		e.err = err.Error()
	}
	e.changed = time.Now()
}

func (e *entry) status() types.PluginStatus {
	return types.PluginStatus{
		Plugin:      e.plugin,
		State:       string(e.state),
		Error:       e.err,
		ChangedUnix: e.changed.Unix(),
	}
}

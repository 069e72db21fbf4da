package manager

import (
	"time"

	"modelhost/internal/backend"
	"modelhost/internal/registry"
)

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State State
	// Loaded lists the ids of ready instances, sorted.
	Loaded []string
	Err    string
}

// Instance is one loaded model: a plugin instance plus its admission state.
type Instance struct {
	ID       string
	Version  string
	Backend  string
	State    State
	LastUsed time.Time
	Err      string

	entry registry.Entry
	model backend.Model
	// loaded is closed once Initialize has returned.
	loaded chan struct{}
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight Execute
	queueCh chan struct{} // buffered: queue slots
}

func newInstance(entry registry.Entry, queueDepth int) *Instance {
	return &Instance{
		ID:       entry.Name,
		Version:  entry.Version,
		Backend:  entry.Config.Backend,
		State:    StateLoading,
		LastUsed: time.Now(),
		entry:    entry,
		loaded:   make(chan struct{}),
		genCh:    make(chan struct{}, 1),
		queueCh:  make(chan struct{}, queueDepth),
	}
}

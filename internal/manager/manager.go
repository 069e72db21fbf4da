package manager

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"modelhost/internal/backend"
	"modelhost/internal/registry"
	"modelhost/internal/tensor"
	"modelhost/pkg/types"
)

type Manager struct {
	mu        sync.RWMutex
	state     State
	err       string
	repo      Repository
	backends  Backends
	instances map[string]*Instance
	closed    bool

	loadsTotal   uint64
	unloadsTotal uint64
	startTime    time.Time

	log       zerolog.Logger
	publisher EventPublisher
	tracer    trace.Tracer

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration
}

func New(repo Repository, backends Backends) *Manager {
	// Delegate to NewWithConfig to centralize defaults and option parsing
	return NewWithConfig(ManagerConfig{Repository: repo, Backends: backends})
}

// SetEventPublisher replaces the event sink. Nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

// Ready reports whether the server can take inference traffic: at least one
// model is ready and the last load did not fail.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed || m.state == StateError {
		return false
	}
	for _, inst := range m.instances {
		if inst.State == StateReady {
			return true
		}
	}
	return false
}

// ModelReady reports whether modelID is loaded and ready.
func (m *Manager) ModelReady(modelID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst := m.instances[modelID]
	return inst != nil && inst.State == StateReady
}

// ListModels returns every model in the repository.
func (m *Manager) ListModels() ([]types.Model, error) {
	entries, err := m.repo.Index()
	if err != nil {
		return nil, err
	}
	out := make([]types.Model, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Model())
	}
	return out, nil
}

// RepositoryIndex lists repository models with their load state, in the form
// of the repository index extension. readyOnly keeps only READY models.
func (m *Manager) RepositoryIndex(readyOnly bool) ([]types.RepositoryIndexEntry, error) {
	entries, err := m.repo.Index()
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.RepositoryIndexEntry, 0, len(entries))
	for _, e := range entries {
		row := types.RepositoryIndexEntry{Name: e.Name, Version: e.Version}
		if e.Err != nil {
			row.State, row.Reason = "UNAVAILABLE", e.Err.Error()
		}
		if inst := m.instances[e.Name]; inst != nil {
			row.Version = inst.Version
			row.State, row.Reason = indexState(inst), inst.Err
		}
		if readyOnly && row.State != "READY" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func indexState(inst *Instance) string {
	switch inst.State {
	case StateReady:
		return "READY"
	case StateLoading:
		return "LOADING"
	case StateDraining:
		return "UNLOADING"
	default:
		return "UNAVAILABLE"
	}
}

// Metadata describes the declared inputs and outputs of modelID. The model
// does not need to be loaded.
func (m *Manager) Metadata(modelID string) (types.ModelMetadata, error) {
	m.mu.RLock()
	inst := m.instances[modelID]
	m.mu.RUnlock()
	var entry registry.Entry
	if inst != nil {
		entry = inst.entry
	} else {
		e, err := m.resolve(modelID)
		if err != nil {
			return types.ModelMetadata{}, err
		}
		entry = e
	}
	cfg := entry.Config
	md := types.ModelMetadata{
		Name:     entry.Name,
		Versions: append([]string(nil), entry.Versions...),
		Platform: cfg.Backend,
		Inputs:   tensorMetadata(cfg.Input, cfg.MaxBatchSize > 0),
		Outputs:  tensorMetadata(cfg.Output, cfg.MaxBatchSize > 0),
	}
	return md, nil
}

// resolve maps repository lookups onto manager errors.
func (m *Manager) resolve(modelID string) (registry.Entry, error) {
	entry, err := m.repo.Resolve(modelID)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return entry, ErrModelNotFound(modelID)
	case err != nil:
		return entry, modelNotReadyError{id: modelID, reason: err.Error()}
	}
	return entry, nil
}

// loadedIDs returns the ids of all instances, sorted. Callers hold m.mu.
func (m *Manager) loadedIDs() []string {
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// tensorMetadata converts config declarations to their KServe form. Batched
// models get a leading variable batch dimension.
func tensorMetadata(list []backend.TensorConfig, batched bool) []types.TensorMetadata {
	out := make([]types.TensorMetadata, 0, len(list))
	for _, tc := range list {
		datatype := tc.DataType
		if dt, err := tensor.ParseDataType(tc.DataType); err == nil {
			datatype = string(dt)
		}
		shape := append([]int64(nil), tc.Dims...)
		if batched {
			shape = append([]int64{-1}, shape...)
		}
		out = append(out, types.TensorMetadata{Name: tc.Name, Datatype: datatype, Shape: shape})
	}
	return out
}

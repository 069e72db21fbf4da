package manager

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"modelhost/internal/backend"
	"modelhost/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 30 * time.Second
)

// Repository resolves model names to repository entries.
// *registry.Repository implements it.
type Repository interface {
	Index() ([]registry.Entry, error)
	Resolve(name string) (registry.Entry, error)
}

// Backends creates plugin instances by backend name.
// *backend.Registry implements it.
type Backends interface {
	New(name string) (backend.Model, error)
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Repository    Repository
	Backends      Backends
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	// Logger defaults to a disabled logger.
	Logger zerolog.Logger
	// Publisher defaults to dropping events.
	Publisher EventPublisher
	// Tracer defaults to the global otel provider.
	Tracer trace.Tracer
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:     StateLoading,
		repo:      cfg.Repository,
		backends:  cfg.Backends,
		instances: make(map[string]*Instance),
		log:       cfg.Logger,
		publisher: cfg.Publisher,
		tracer:    cfg.Tracer,
		startTime: time.Now(),
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("modelhost/internal/manager")
	}
	return m
}

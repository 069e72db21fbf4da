package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelhost/internal/backend"
	"modelhost/internal/engine"
)

// Load makes modelID ready: it resolves the model in the repository, creates
// its backend plugin and calls Initialize. Loading a ready model is a no-op;
// concurrent loads of the same model wait for the first one. A model whose
// previous load failed is loaded again.
func (m *Manager) Load(ctx context.Context, modelID string) error {
	startTs := time.Now()
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}

	m.mu.RLock()
	inst, ok := m.instances[modelID]
	ready := ok && inst.State == StateReady
	m.mu.RUnlock()
	if ready {
		// Upgrade to write lock to safely mutate LastUsed and re-check state
		m.mu.Lock()
		if inst2, ok2 := m.instances[modelID]; ok2 && inst2.State == StateReady {
			inst2.LastUsed = time.Now()
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()
		// If state changed in between, continue with ensure path
	}

	entry, err := m.resolve(modelID)
	if err != nil {
		name := "ensure_error"
		if IsModelNotFound(err) {
			name = "ensure_model_not_found"
		}
		m.publish(Event{Name: name, ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return modelNotReadyError{id: modelID, reason: "server shutting down"}
	}
	if cur := m.instances[modelID]; cur != nil && cur.State != StateError {
		m.mu.Unlock()
		return m.awaitLoaded(ctx, cur)
	}
	inst = newInstance(entry, m.maxQueueDepth)
	m.instances[modelID] = inst
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	m.log.Info().Str("model", modelID).Str("version", entry.Version).Str("backend", entry.Config.Backend).Msg("loading model")
	m.publish(Event{Name: "ensure_start", ModelID: modelID, Fields: map[string]any{"version": entry.Version, "backend": entry.Config.Backend}})

	model, err := m.initialize(ctx, inst)

	m.mu.Lock()
	if err != nil {
		inst.State = StateError
		inst.Err = err.Error()
		m.state = StateError
		m.err = err.Error()
	} else {
		inst.model = model
		inst.State = StateReady
		inst.LastUsed = time.Now()
		m.state = StateReady
		m.err = ""
		m.loadsTotal++
	}
	close(inst.loaded)
	m.mu.Unlock()

	dur := time.Since(startTs)
	if err != nil {
		loadsTotal.WithLabelValues(modelID, "error").Inc()
		m.log.Error().Err(err).Str("model", modelID).Dur("dur", dur).Msg("model load failed")
		m.publish(Event{Name: "ensure_error", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	loadsTotal.WithLabelValues(modelID, "success").Inc()
	loadDuration.WithLabelValues(modelID).Observe(dur.Seconds())
	m.log.Info().Str("model", modelID).Dur("dur", dur).Msg("model ready")
	m.publish(Event{Name: "ensure_ready", ModelID: modelID, Fields: map[string]any{"dur_ms": int(dur / time.Millisecond)}})
	return nil
}

// awaitLoaded waits for a load started by another caller.
func (m *Manager) awaitLoaded(ctx context.Context, inst *Instance) error {
	select {
	case <-inst.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.RLock()
	state, reason := inst.State, inst.Err
	m.mu.RUnlock()
	switch state {
	case StateReady:
		return nil
	case StateDraining:
		return modelNotReadyError{id: inst.ID, reason: "unloading"}
	default:
		return modelNotReadyError{id: inst.ID, reason: reason}
	}
}

// initialize creates the plugin for inst and runs its Initialize callback.
func (m *Manager) initialize(ctx context.Context, inst *Instance) (backend.Model, error) {
	ctx, span := m.tracer.Start(ctx, "backend.Initialize", trace.WithAttributes(
		attribute.String("model.name", inst.ID),
		attribute.String("model.version", inst.Version),
		attribute.String("model.backend", inst.Backend),
	))
	defer span.End()

	model, err := m.backends.New(inst.Backend)
	if err != nil {
		err = modelNotReadyError{id: inst.ID, reason: err.Error(), err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	args := backend.InitArgs{
		ModelName:       inst.ID,
		ModelVersion:    inst.Version,
		ModelRepository: filepath.Dir(inst.entry.Dir),
		Dir:             inst.entry.VersionDir,
		Config:          inst.entry.Config,
	}
	if err := safeCall(func() error { return model.Initialize(ctx, args) }); err != nil {
		if errors.Is(err, engine.ErrRuntimeUnavailable) {
			err = dependencyUnavailableError{msg: fmt.Sprintf("initialize %s: %v", inst.ID, err), err: err}
		} else {
			err = modelNotReadyError{id: inst.ID, reason: "initialize: " + err.Error(), err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return model, nil
}

// safeCall runs a plugin callback, turning a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}

package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Unload gracefully drains a model instance, calls Finalize and removes it.
//   - Sets instance state to draining to reject new enqueues.
//   - Waits up to drainTimeout for in-flight and queued requests to finish.
//   - Takes the execution slot so Finalize never overlaps Execute.
//
// Unloading a model that is in the repository but not loaded is a no-op.
func (m *Manager) Unload(ctx context.Context, modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil {
		m.mu.Unlock()
		if _, err := m.resolve(modelID); IsModelNotFound(err) {
			return err
		}
		return nil
	}
	state := inst.State
	m.mu.Unlock()

	if state == StateLoading {
		select {
		case <-inst.loaded:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	if m.instances[modelID] != inst {
		// someone else unloaded or replaced it meanwhile
		m.mu.Unlock()
		return nil
	}
	switch inst.State {
	case StateDraining:
		m.mu.Unlock()
		return modelNotReadyError{id: modelID, reason: "already unloading"}
	case StateError:
		// Initialize failed, so there is nothing to finalize.
		delete(m.instances, modelID)
		m.mu.Unlock()
		m.publish(Event{Name: "unload_done", ModelID: modelID, Fields: map[string]any{}})
		return nil
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.publish(Event{Name: "unload_start", ModelID: modelID, Fields: map[string]any{}})

	m.drain(ctx, inst)
	select {
	case inst.genCh <- struct{}{}:
	case <-ctx.Done():
		m.mu.Lock()
		inst.State = StateReady
		m.mu.Unlock()
		return ctx.Err()
	}

	err := m.finalize(ctx, inst)

	m.mu.Lock()
	delete(m.instances, modelID)
	inst.model = nil
	m.unloadsTotal++
	m.mu.Unlock()
	unloadsTotal.WithLabelValues(modelID).Inc()

	if err != nil {
		m.log.Error().Err(err).Str("model", modelID).Msg("finalize failed")
		m.publish(Event{Name: "unload_done", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	m.log.Info().Str("model", modelID).Msg("model unloaded")
	m.publish(Event{Name: "unload_done", ModelID: modelID, Fields: map[string]any{}})
	return nil
}

// drain waits until nothing is queued or executing on inst, the drain timeout
// passes, or ctx ends.
func (m *Manager) drain(ctx context.Context, inst *Instance) {
	deadline := time.Now().Add(m.drainTimeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		if inflight == 0 && qlen == 0 {
			return
		}
		if time.Now().After(deadline) {
			m.publish(Event{Name: "unload_timeout", ModelID: inst.ID, Fields: map[string]any{"inflight": inflight, "queue": qlen}})
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) finalize(ctx context.Context, inst *Instance) error {
	ctx, span := m.tracer.Start(ctx, "backend.Finalize", trace.WithAttributes(
		attribute.String("model.name", inst.ID),
		attribute.String("model.version", inst.Version),
	))
	defer span.End()
	m.mu.RLock()
	model := inst.model
	m.mu.RUnlock()
	if model == nil {
		return nil
	}
	if err := safeCall(func() error { return model.Finalize(ctx) }); err != nil {
		err = fmt.Errorf("finalize %s: %w", inst.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Close unloads every model and refuses further loads. It is the process
// shutdown path: each loaded plugin gets its Finalize call.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ids := m.loadedIDs()
	m.mu.Unlock()
	var errs []error
	for _, id := range ids {
		if err := m.Unload(ctx, id); err != nil && !IsModelNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

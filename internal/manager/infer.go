package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelhost/internal/backend"
)

// Infer runs req against modelID, loading the model on first use. The plugin
// sees an Execute call carrying exactly this one request; admission keeps
// at most one Execute in flight per model and queues the rest (FIFO, bounded
// by MaxQueueDepth, waiting at most MaxWait).
func (m *Manager) Infer(ctx context.Context, modelID string, req *backend.Request) (*backend.Response, error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "manager.Infer", trace.WithAttributes(
		attribute.String("model.name", modelID),
	))
	defer span.End()

	resp, err := m.infer(ctx, modelID, req)
	outcome := inferOutcome(err)
	label := modelID
	if IsModelNotFound(err) {
		// keep unknown names out of metric labels
		label = "unknown"
	}
	inferenceTotal.WithLabelValues(label, outcome).Inc()
	if err == nil {
		inferenceDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	} else {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	return resp, err
}

func (m *Manager) infer(ctx context.Context, modelID string, req *backend.Request) (*backend.Response, error) {
	if req == nil {
		return nil, backend.NewInputError("", "empty request")
	}
	if err := m.Load(ctx, modelID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	inst := m.instances[modelID]
	m.mu.RUnlock()
	if inst == nil {
		return nil, modelNotReadyError{id: modelID, reason: "unloaded"}
	}

	// Admission: per-instance FIFO queue, single in-flight
	release, err := m.beginGeneration(ctx, inst)
	if err != nil {
		return nil, err
	}
	defer release()

	m.mu.RLock()
	model := inst.model
	m.mu.RUnlock()
	if model == nil {
		return nil, modelNotReadyError{id: modelID}
	}

	var resps []*backend.Response
	err = safeCall(func() error {
		var e error
		resps, e = model.Execute(ctx, []*backend.Request{req})
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", modelID, err)
	}
	if len(resps) != 1 || resps[0] == nil {
		return nil, fmt.Errorf("execute %s: backend returned %d responses for 1 request", modelID, len(resps))
	}
	resp := resps[0]
	if resp.Err != nil {
		return nil, fmt.Errorf("model %s: %w", modelID, resp.Err)
	}
	for _, name := range req.RequestedOutputs {
		if resp.OutputByName(name) == nil {
			return nil, backend.NewInputError(name, "model %s has no such output", modelID)
		}
	}
	m.log.Debug().Str("model", modelID).Str("request_id", req.ID).Int("outputs", len(resp.Outputs)).Msg("executed")
	return resp.Filter(req), nil
}

func inferOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case backend.IsInputError(err):
		return "input_error"
	case IsTooBusy(err):
		return "too_busy"
	case IsModelNotFound(err):
		return "not_found"
	case IsModelNotReady(err):
		return "not_ready"
	case IsDependencyUnavailable(err):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Package sentiment serves an exported sequence classifier. Input "text"
// (BYTES, one string per row) yields "label" (BYTES) and "score" with the top
// class of each row.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"modelhost/internal/backend"
	"modelhost/internal/engine"
	"modelhost/internal/tensor"
)

const (
	BackendName = "sentiment"
	InputName   = "text"
	LabelOutput = "label"
	ScoreOutput = "score"
)

// Model implements backend.Model.
type Model struct {
	opener engine.Opener
	log    zerolog.Logger

	name      string
	scoreType tensor.DataType
	clf       engine.Classifier
}

func New(opener engine.Opener, log zerolog.Logger) *Model {
	return &Model{opener: opener, log: log}
}

// Register adds the sentiment backend to reg.
func Register(reg *backend.Registry, opener engine.Opener, log zerolog.Logger) error {
	return reg.Register(BackendName, func() backend.Model { return New(opener, log) })
}

func (m *Model) Initialize(ctx context.Context, args backend.InitArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := args.Config
	if oc, ok := cfg.OutputByName(LabelOutput); ok {
		dt, err := oc.Type()
		if err != nil {
			return err
		}
		if dt != tensor.Bytes {
			return fmt.Errorf("output %s must be TYPE_STRING, got %s", LabelOutput, oc.DataType)
		}
	}
	m.scoreType = tensor.FP32
	if oc, ok := cfg.OutputByName(ScoreOutput); ok {
		dt, err := oc.Type()
		if err != nil {
			return err
		}
		if !dt.IsNumeric() || !dt.Supported() {
			return fmt.Errorf("output %s must be numeric, got %s", ScoreOutput, oc.DataType)
		}
		m.scoreType = dt
	}
	deviceID, err := cfg.IntParameter("device_id", 0)
	if err != nil {
		return err
	}
	opts := engine.Options{
		Runtime:         strings.ToUpper(cfg.Parameter("runtime", "GO")),
		Device:          strings.ToLower(cfg.Parameter("device", "cpu")),
		DeviceID:        deviceID,
		OnnxLibraryPath: cfg.Parameter("onnx_library_path", ""),
		OnnxFilename:    cfg.Parameter("onnx_filename", ""),
	}
	clf, err := m.opener.OpenClassifier(args.Dir, opts)
	if err != nil {
		return fmt.Errorf("load classifier from %s: %w", args.Dir, err)
	}
	m.name = args.ModelName
	m.clf = clf
	m.log.Info().Str("model", args.ModelName).Str("version", args.ModelVersion).Str("score_type", string(m.scoreType)).Msg("sentiment initialized")
	return nil
}

func (m *Model) Execute(ctx context.Context, requests []*backend.Request) ([]*backend.Response, error) {
	if m.clf == nil {
		return nil, errors.New("sentiment: execute before initialize")
	}
	out := make([]*backend.Response, 0, len(requests))
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, m.executeOne(ctx, req))
	}
	return out, nil
}

func (m *Model) executeOne(ctx context.Context, req *backend.Request) *backend.Response {
	in := req.InputByName(InputName)
	if in == nil {
		return backend.ErrorResponse(backend.NewInputError(InputName, "missing"))
	}
	if in.DataType != tensor.Bytes {
		return backend.ErrorResponse(backend.NewInputError(InputName, "expected BYTES, got %s", in.DataType))
	}
	texts, err := in.Strings()
	if err != nil {
		return backend.ErrorResponse(backend.NewInputError(InputName, "%v", err))
	}
	results, err := m.clf.Classify(ctx, texts)
	if err != nil {
		return backend.ErrorResponse(fmt.Errorf("classify: %w", err))
	}
	if len(results) != len(texts) {
		return backend.ErrorResponse(fmt.Errorf("classify: %d results for %d inputs", len(results), len(texts)))
	}
	labels := make([]string, len(results))
	scores := make([]float64, len(results))
	for i, r := range results {
		top, ok := engine.Top(r)
		if !ok {
			return backend.ErrorResponse(fmt.Errorf("classify: no labels for row %d", i))
		}
		labels[i] = top.Label
		scores[i] = float64(top.Score)
	}
	shape := []int64{int64(len(texts))}
	labelT, err := tensor.FromStrings(LabelOutput, shape, labels)
	if err != nil {
		return backend.ErrorResponse(err)
	}
	scoreT, err := tensor.FromFloat64(ScoreOutput, tensor.FP32, shape, scores)
	if err != nil {
		return backend.ErrorResponse(err)
	}
	if scoreT, err = scoreT.Cast(m.scoreType); err != nil {
		return backend.ErrorResponse(err)
	}
	return &backend.Response{Outputs: []*tensor.Tensor{labelT, scoreT}}
}

func (m *Model) Finalize(context.Context) error {
	var err error
	if m.clf != nil {
		err = m.clf.Close()
		m.clf = nil
	}
	m.log.Info().Str("model", m.name).Msg("sentiment finalized")
	return err
}

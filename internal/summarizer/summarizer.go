// Package summarizer is a backend plugin that serves a pretrained
// encoder-decoder model (t5-small by default) for summarization.
//
// Each request carries an "input" tensor of token ids, shape [batch, seq]
// (or raw text as BYTES). The plugin generates greedily and answers with an
// "output" tensor of generated token ids, padded to the longest row and cast
// to the data type the model config declares for "output". Declaring
// "output" as TYPE_STRING returns the decoded text instead.
package summarizer

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
	// BackendName is the value of `backend:` in a model config.
	BackendName = "summarizer"
	InputName   = "input"
	OutputName  = "output"

	defaultMaxNewTokens = 20
)

// Model implements backend.Model.
type Model struct {
	opener engine.Opener
	log    zerolog.Logger

	name       string
	outputType tensor.DataType
	gen        engine.Seq2Seq
}

// New returns an uninitialized summarizer that opens models with opener.
func New(opener engine.Opener, log zerolog.Logger) *Model {
	return &Model{opener: opener, log: log}
}

// Register adds the summarizer backend to reg.
func Register(reg *backend.Registry, opener engine.Opener, log zerolog.Logger) error {
	return reg.Register(BackendName, func() backend.Model { return New(opener, log) })
}

func (m *Model) Initialize(ctx context.Context, args backend.InitArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := args.Config
	dt, err := cfg.OutputType(OutputName)
	if err != nil {
		return err
	}
	if !dt.Supported() {
		return fmt.Errorf("output %s: %w: %s", OutputName, tensor.ErrUnsupportedType, dt)
	}
	maxNew, err := cfg.IntParameter("max_new_tokens", defaultMaxNewTokens)
	if err != nil {
		return err
	}
	if maxNew <= 0 {
		return fmt.Errorf("max_new_tokens must be positive, got %d", maxNew)
	}
	beams, err := cfg.IntParameter("num_beams", 1)
	if err != nil {
		return err
	}
	if beams != 1 {
		return fmt.Errorf("num_beams=%d: only greedy decoding (num_beams=1) is supported", beams)
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
		MaxNewTokens:    maxNew,
	}
	gen, err := m.opener.OpenSeq2Seq(args.Dir, opts)
	if err != nil {
		return fmt.Errorf("load model from %s: %w", args.Dir, err)
	}
	m.name = args.ModelName
	m.outputType = dt
	m.gen = gen
	m.log.Info().
		Str("model", args.ModelName).
		Str("version", args.ModelVersion).
		Str("output_type", string(dt)).
		Str("device", opts.Device).
		Int("max_new_tokens", maxNew).
		Msg("summarizer initialized")
	return nil
}

func (m *Model) Execute(ctx context.Context, requests []*backend.Request) ([]*backend.Response, error) {
	if m.gen == nil {
		return nil, errors.New("summarizer: execute before initialize")
	}
	responses := make([]*backend.Response, 0, len(requests))
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		responses = append(responses, m.executeOne(ctx, req))
	}
	return responses, nil
}

func (m *Model) executeOne(ctx context.Context, req *backend.Request) *backend.Response {
	in := req.InputByName(InputName)
	if in == nil {
		return backend.ErrorResponse(backend.NewInputError(InputName, "missing"))
	}
	texts, err := m.texts(in)
	if err != nil {
		return backend.ErrorResponse(err)
	}
	ids, err := m.gen.Generate(ctx, texts)
	if err != nil {
		return backend.ErrorResponse(fmt.Errorf("generate: %w", err))
	}
	out, err := m.encode(ids)
	if err != nil {
		return backend.ErrorResponse(err)
	}
	m.log.Debug().Str("model", m.name).Str("request_id", req.ID).Int("rows", len(ids)).Msg("generated")
	return &backend.Response{Outputs: []*tensor.Tensor{out}}
}

// texts turns the input tensor into one string per row.
func (m *Model) texts(in *tensor.Tensor) ([]string, error) {
	if in.DataType == tensor.Bytes {
		s, err := in.Strings()
		if err != nil {
			return nil, backend.NewInputError(InputName, "%v", err)
		}
		return s, nil
	}
	rows, err := in.IntRows()
	if err != nil {
		return nil, backend.NewInputError(InputName, "%v", err)
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		text, err := m.gen.Decode(row)
		if err != nil {
			return nil, backend.NewInputError(InputName, "row %d: %v", i, err)
		}
		out[i] = text
	}
	return out, nil
}

func (m *Model) encode(ids [][]int64) (*tensor.Tensor, error) {
	if m.outputType == tensor.Bytes {
		texts := make([]string, len(ids))
		for i, row := range ids {
			text, err := m.gen.Decode(row)
			if err != nil {
				return nil, fmt.Errorf("decode row %d: %w", i, err)
			}
			texts[i] = text
		}
		return tensor.FromStrings(OutputName, []int64{int64(len(texts))}, texts)
	}
	padded, err := tensor.PaddedInt64(OutputName, tensor.Int64, ids, m.gen.PadTokenID())
	if err != nil {
		return nil, err
	}
	return padded.Cast(m.outputType)
}

func (m *Model) Finalize(ctx context.Context) error {
	var err error
	if m.gen != nil {
		err = m.gen.Close()
		m.gen = nil
	}
	m.log.Info().Str("model", m.name).Msg("summarizer finalized")
	return err
}

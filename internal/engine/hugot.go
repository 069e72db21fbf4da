//go:build hugot

package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/daulet/tokenizers"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/backends"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

const defaultMaxNewTokens = 20

func newSession(opts Options) (*hugot.Session, error) {
	cuda := strings.EqualFold(opts.Device, "cuda")
	if !cuda && !strings.EqualFold(opts.Runtime, "ORT") {
		return hugot.NewGoSession()
	}
	var hopts []options.WithOption
	if opts.OnnxLibraryPath != "" {
		hopts = append(hopts, options.WithOnnxLibraryPath(opts.OnnxLibraryPath))
	}
	if cuda {
		hopts = append(hopts, options.WithCuda(map[string]string{
			"device_id": strconv.Itoa(opts.DeviceID),
		}))
	}
	return hugot.NewORTSession(hopts...)
}

type hugotSeq2Seq struct {
	session   *hugot.Session
	pipeline  *pipelines.Seq2SeqPipeline
	tokenizer *tokenizers.Tokenizer
}

// OpenSeq2Seq loads an encoder-decoder model exported as encoder.onnx,
// decoder-init.onnx and decoder.onnx next to tokenizer.json and config.json.
func OpenSeq2Seq(dir string, opts Options) (Seq2Seq, error) {
	maxNew := opts.MaxNewTokens
	if maxNew <= 0 {
		maxNew = defaultMaxNewTokens
	}
	session, err := newSession(opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	cfg := hugot.Seq2SeqConfig{
		ModelPath: dir,
		Name:      filepath.Base(dir) + "-seq2seq",
		Options: []backends.PipelineOption[*pipelines.Seq2SeqPipeline]{
			pipelines.WithSeq2SeqMaxTokens(maxNew),
		},
	}
	p, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load seq2seq pipeline: %w", err), session.Destroy())
	}
	tk, err := tokenizers.FromFile(filepath.Join(dir, "tokenizer.json"))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load tokenizer: %w", err), session.Destroy())
	}
	return &hugotSeq2Seq{session: session, pipeline: p, tokenizer: tk}, nil
}

func (s *hugotSeq2Seq) Generate(ctx context.Context, inputs []string) ([][]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.pipeline.RunPipeline(inputs)
	if err != nil {
		return nil, err
	}
	rows := make([][]int64, len(inputs))
	for i := range rows {
		if i >= len(out.GeneratedTokens) || len(out.GeneratedTokens[i]) == 0 {
			rows[i] = []int64{}
			continue
		}
		seq := out.GeneratedTokens[i][0]
		row := make([]int64, len(seq))
		for j, id := range seq {
			row[j] = int64(id)
		}
		rows[i] = row
	}
	return rows, nil
}

func (s *hugotSeq2Seq) Decode(ids []int64) (string, error) {
	u := make([]uint32, len(ids))
	for i, id := range ids {
		if id < 0 {
			return "", fmt.Errorf("negative token id %d at position %d", id, i)
		}
		u[i] = uint32(id)
	}
	return s.tokenizer.Decode(u, true), nil
}

func (s *hugotSeq2Seq) PadTokenID() int64 { return s.pipeline.PadTokenID }

func (s *hugotSeq2Seq) Close() error {
	return errors.Join(s.tokenizer.Close(), s.session.Destroy())
}

type hugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

// OpenClassifier loads a sequence classification model with softmax scores.
func OpenClassifier(dir string, opts Options) (Classifier, error) {
	session, err := newSession(opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	cfg := hugot.TextClassificationConfig{
		ModelPath:    dir,
		Name:         filepath.Base(dir) + "-classifier",
		OnnxFilename: opts.OnnxFilename,
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
		},
	}
	p, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load classification pipeline: %w", err), session.Destroy())
	}
	return &hugotClassifier{session: session, pipeline: p}, nil
}

func (c *hugotClassifier) Classify(ctx context.Context, inputs []string) ([][]Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := c.pipeline.RunPipeline(inputs)
	if err != nil {
		return nil, err
	}
	res := make([][]Label, len(out.ClassificationOutputs))
	for i, row := range out.ClassificationOutputs {
		labels := make([]Label, len(row))
		for j, co := range row {
			labels[j] = Label{Label: co.Label, Score: co.Score}
		}
		sort.SliceStable(labels, func(a, b int) bool { return labels[a].Score > labels[b].Score })
		res[i] = labels
	}
	return res, nil
}

func (c *hugotClassifier) Close() error { return c.session.Destroy() }

// Download fetches modelID from the Hugging Face hub into dest.
func Download(ctx context.Context, modelID, dest string, opts DownloadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d := hugot.NewDownloadOptions()
	d.AuthToken = opts.AuthToken
	d.OnnxFilePath = opts.OnnxFilePath
	d.Verbose = opts.Verbose
	if opts.Revision != "" {
		d.Branch = opts.Revision
	}
	if opts.MaxRetries > 0 {
		d.MaxRetries = opts.MaxRetries
	}
	return hugot.DownloadModel(modelID, dest, d)
}

// Package engine wraps the model library used to run pretrained transformer
// models: encoder-decoder generation, text classification and downloads from
// the Hugging Face hub.
//
// The real implementation needs native libraries (onnxruntime, tokenizers)
// and is compiled with `-tags "hugot ALL"`. Default builds get a stub whose
// constructors fail with ErrRuntimeUnavailable.
package engine

import (
	"context"
	"errors"
)

// ErrRuntimeUnavailable is returned by the stub build.
var ErrRuntimeUnavailable = errors.New("model runtime not built (missing 'hugot' build tag)")

// Options selects where and how a model runs.
type Options struct {
	// Runtime is GO (pure Go) or ORT (onnxruntime). CUDA implies ORT.
	Runtime         string
	Device          string
	DeviceID        int
	OnnxLibraryPath string
	// OnnxFilename picks one .onnx file when a directory holds several.
	OnnxFilename string
	// MaxNewTokens bounds generation length for Seq2Seq models.
	MaxNewTokens int
}

// Seq2Seq is a loaded encoder-decoder model decoding greedily.
type Seq2Seq interface {
	// Generate returns the generated token ids for each input text.
	Generate(ctx context.Context, inputs []string) ([][]int64, error)
	// Decode turns token ids back into text, skipping special tokens.
	Decode(ids []int64) (string, error)
	PadTokenID() int64
	Close() error
}

// Label is one class with its probability.
type Label struct {
	Label string
	Score float32
}

// Classifier is a loaded sequence classification model.
type Classifier interface {
	// Classify returns the labels for each input, highest score first.
	Classify(ctx context.Context, inputs []string) ([][]Label, error)
	Close() error
}

// DownloadOptions configures Download.
type DownloadOptions struct {
	AuthToken    string
	Revision     string
	OnnxFilePath string
	MaxRetries   int
	Verbose      bool
}

// Opener creates models. The package-level functions satisfy it; tests
// substitute fakes.
type Opener interface {
	OpenSeq2Seq(dir string, opts Options) (Seq2Seq, error)
	OpenClassifier(dir string, opts Options) (Classifier, error)
}

// Downloader fetches a model repository into dest and returns the directory
// holding the files.
type Downloader interface {
	Download(ctx context.Context, modelID, dest string, opts DownloadOptions) (string, error)
}

type defaultEngine struct{}

func (defaultEngine) OpenSeq2Seq(dir string, opts Options) (Seq2Seq, error) {
	return OpenSeq2Seq(dir, opts)
}

func (defaultEngine) OpenClassifier(dir string, opts Options) (Classifier, error) {
	return OpenClassifier(dir, opts)
}

func (defaultEngine) Download(ctx context.Context, modelID, dest string, opts DownloadOptions) (string, error) {
	return Download(ctx, modelID, dest, opts)
}

// Default opens and downloads models with the compiled-in runtime.
var Default interface {
	Opener
	Downloader
} = defaultEngine{}

// Top returns the highest scoring label, or false for an empty list.
func Top(labels []Label) (Label, bool) {
	if len(labels) == 0 {
		return Label{}, false
	}
	best := labels[0]
	for _, l := range labels[1:] {
		if l.Score > best.Score {
			best = l
		}
	}
	return best, true
}

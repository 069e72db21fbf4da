// Package exporter downloads a pretrained sequence classifier and lays it out
// as a servable model directory:
//
//	<repo>/<name>/config.yaml
//	<repo>/<name>/<version>/...model files...
//	<repo>/<name>/<version>/MANIFEST.json
//
// The manifest records size and SHA-256 of every file so a re-export of the
// same revision can be checked for byte identity.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"modelhost/internal/backend"
	"modelhost/internal/common/fsutil"
	"modelhost/internal/engine"
	"modelhost/internal/sentiment"
)

// DefaultModelID is the classifier exported when Options.ModelID is empty.
const DefaultModelID = "distilbert/distilbert-base-uncased-finetuned-sst-2-english"

// ErrExists is returned when the target version directory already exists and
// Force is not set.
var ErrExists = errors.New("model version already exists")

// Options configures Export.
type Options struct {
	ModelID    string
	Repository string
	// Name of the model directory; defaults to the last segment of ModelID.
	Name     string
	Version  string
	Revision string
	// AuthToken for gated hub repositories.
	AuthToken    string
	OnnxFilePath string
	MaxBatchSize int
	// Force replaces an existing version and config.
	Force bool
}

func (o *Options) defaults() error {
	if o.ModelID == "" {
		o.ModelID = DefaultModelID
	}
	if o.Repository == "" {
		return errors.New("repository directory is required")
	}
	repo, err := fsutil.ExpandHome(o.Repository)
	if err != nil {
		return err
	}
	o.Repository = repo
	if o.Name == "" {
		o.Name = o.ModelID[strings.LastIndex(o.ModelID, "/")+1:]
	}
	if strings.ContainsAny(o.Name, `/\`) || o.Name == "." || o.Name == ".." {
		return fmt.Errorf("invalid model name %q", o.Name)
	}
	if o.Version == "" {
		o.Version = "1"
	}
	if n, err := strconv.Atoi(o.Version); err != nil || n < 1 {
		return fmt.Errorf("version must be a positive integer, got %q", o.Version)
	}
	return nil
}

// Result describes a finished export.
type Result struct {
	ModelDir   string
	VersionDir string
	Manifest   Manifest
}

// Exporter runs exports with a Downloader.
type Exporter struct {
	dl  engine.Downloader
	log zerolog.Logger
}

func New(dl engine.Downloader, log zerolog.Logger) *Exporter {
	return &Exporter{dl: dl, log: log}
}

// Export downloads opts.ModelID and writes the model directory.
func (e *Exporter) Export(ctx context.Context, opts Options) (Result, error) {
	if err := opts.defaults(); err != nil {
		return Result{}, err
	}
	modelDir := filepath.Join(opts.Repository, opts.Name)
	versionDir := filepath.Join(modelDir, opts.Version)
	if fsutil.Exists(versionDir) {
		if !opts.Force {
			return Result{}, fmt.Errorf("%w: %s", ErrExists, versionDir)
		}
		if err := os.RemoveAll(versionDir); err != nil {
			return Result{}, err
		}
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return Result{}, err
	}

	e.log.Info().Str("model_id", opts.ModelID).Str("dest", versionDir).Msg("downloading pretrained classifier")
	tmp, err := os.MkdirTemp(modelDir, ".download-")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(tmp)
	got, err := e.dl.Download(ctx, opts.ModelID, tmp, engine.DownloadOptions{
		AuthToken:    opts.AuthToken,
		Revision:     opts.Revision,
		OnnxFilePath: opts.OnnxFilePath,
		MaxRetries:   3,
	})
	if err != nil {
		return Result{}, fmt.Errorf("download %s: %w", opts.ModelID, err)
	}
	if err := os.Rename(got, versionDir); err != nil {
		return Result{}, fmt.Errorf("move %s into place: %w", got, err)
	}

	e.log.Info().Str("dir", versionDir).Msg("writing manifest")
	m, err := BuildManifest(ctx, versionDir)
	if err != nil {
		return Result{}, err
	}
	m.ModelID = opts.ModelID
	m.Revision = opts.Revision
	if err := WriteManifest(versionDir, m); err != nil {
		return Result{}, err
	}
	if err := writeConfig(modelDir, opts); err != nil {
		return Result{}, err
	}
	e.log.Info().Str("model", opts.Name).Str("version", opts.Version).Int("files", len(m.Files)).Msg("export complete")
	return Result{ModelDir: modelDir, VersionDir: versionDir, Manifest: m}, nil
}

// ClassifierConfig is the model config written for an exported classifier.
func ClassifierConfig(name string, maxBatchSize int, onnxFile string) backend.ModelConfig {
	cfg := backend.ModelConfig{
		Name:         name,
		Backend:      sentiment.BackendName,
		MaxBatchSize: maxBatchSize,
		Input:        []backend.TensorConfig{{Name: sentiment.InputName, DataType: "TYPE_STRING", Dims: []int64{-1}}},
		Output: []backend.TensorConfig{
			{Name: sentiment.LabelOutput, DataType: "TYPE_STRING", Dims: []int64{-1}},
			{Name: sentiment.ScoreOutput, DataType: "TYPE_FP32", Dims: []int64{-1}},
		},
	}
	if onnxFile != "" {
		cfg.Parameters = map[string]string{"onnx_filename": filepath.Base(onnxFile)}
	}
	return cfg
}

// writeConfig leaves a config the operator already has in place unless Force.
func writeConfig(modelDir string, opts Options) error {
	if p, ok := backend.FindConfigFile(modelDir); ok && !opts.Force {
		return nil
	} else if ok {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	b, err := yaml.Marshal(ClassifierConfig(opts.Name, opts.MaxBatchSize, opts.OnnxFilePath))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(modelDir, backend.ConfigBaseName+".yaml"), b, 0o644)
}

// Package enginetest provides in-memory engine implementations for tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"modelhost/internal/engine"
)

// Seq2Seq fakes generation: every input produces the byte values of its
// upper-cased text, truncated to MaxNewTokens. Decode maps ids back to bytes.
type Seq2Seq struct {
	Pad          int64
	MaxNewTokens int
	GenerateErr  error
	// Started, when non-nil, receives a value as each Generate call begins.
	Started chan struct{}
	// Gate, when non-nil, holds Generate until it is closed or ctx ends.
	Gate chan struct{}

	mu     sync.Mutex
	calls  [][]string
	closed bool
}

func (s *Seq2Seq) Generate(ctx context.Context, inputs []string) ([][]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), inputs...))
	s.mu.Unlock()
	if s.Started != nil {
		s.Started <- struct{}{}
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.GenerateErr != nil {
		return nil, s.GenerateErr
	}
	out := make([][]int64, len(inputs))
	for i, in := range inputs {
		up := strings.ToUpper(in)
		if s.MaxNewTokens > 0 && len(up) > s.MaxNewTokens {
			up = up[:s.MaxNewTokens]
		}
		row := make([]int64, len(up))
		for j := 0; j < len(up); j++ {
			row[j] = int64(up[j])
		}
		out[i] = row
	}
	return out, nil
}

func (s *Seq2Seq) Decode(ids []int64) (string, error) {
	b := make([]byte, len(ids))
	for i, id := range ids {
		if id < 0 || id > 255 {
			return "", fmt.Errorf("token id %d out of range", id)
		}
		b[i] = byte(id)
	}
	return string(b), nil
}

func (s *Seq2Seq) PadTokenID() int64 { return s.Pad }

func (s *Seq2Seq) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("closed twice")
	}
	s.closed = true
	return nil
}

// Calls returns the inputs of every Generate call.
func (s *Seq2Seq) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

// Closed reports whether Close was called.
func (s *Seq2Seq) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Classifier labels text containing "good" POSITIVE and everything else
// NEGATIVE.
type Classifier struct {
	mu     sync.Mutex
	closed bool
}

func (c *Classifier) Classify(ctx context.Context, inputs []string) ([][]engine.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]engine.Label, len(inputs))
	for i, in := range inputs {
		if strings.Contains(strings.ToLower(in), "good") {
			out[i] = []engine.Label{{Label: "POSITIVE", Score: 0.75}, {Label: "NEGATIVE", Score: 0.25}}
		} else {
			out[i] = []engine.Label{{Label: "NEGATIVE", Score: 0.875}, {Label: "POSITIVE", Score: 0.125}}
		}
	}
	return out, nil
}

func (c *Classifier) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (c *Classifier) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Engine hands out the configured fakes and records what was opened.
type Engine struct {
	Seq2Seq    *Seq2Seq
	Classifier *Classifier
	OpenErr    error
	// Files is written into the destination by Download.
	Files map[string]string

	mu      sync.Mutex
	opened  []string
	options []engine.Options
}

func (e *Engine) OpenSeq2Seq(dir string, opts engine.Options) (engine.Seq2Seq, error) {
	e.record(dir, opts)
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	if e.Seq2Seq == nil {
		e.Seq2Seq = &Seq2Seq{}
	}
	if opts.MaxNewTokens > 0 {
		e.Seq2Seq.MaxNewTokens = opts.MaxNewTokens
	}
	return e.Seq2Seq, nil
}

func (e *Engine) OpenClassifier(dir string, opts engine.Options) (engine.Classifier, error) {
	e.record(dir, opts)
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	if e.Classifier == nil {
		e.Classifier = &Classifier{}
	}
	return e.Classifier, nil
}

// Download writes Files under dest/<modelID with / replaced by _>.
func (e *Engine) Download(ctx context.Context, modelID, dest string, opts engine.DownloadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.OpenErr != nil {
		return "", e.OpenErr
	}
	dir := filepath.Join(dest, strings.ReplaceAll(modelID, "/", "_"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	for name, body := range e.Files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (e *Engine) record(dir string, opts engine.Options) {
	e.mu.Lock()
	e.opened = append(e.opened, dir)
	e.options = append(e.options, opts)
	e.mu.Unlock()
}

// Opened lists directories passed to Open*.
func (e *Engine) Opened() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

// LastOptions returns the options of the most recent Open* call.
func (e *Engine) LastOptions() engine.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.options) == 0 {
		return engine.Options{}
	}
	return e.options[len(e.options)-1]
}

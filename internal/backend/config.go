package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"modelhost/internal/config"
	"modelhost/internal/tensor"
)

// ConfigBaseName is the file stem a model directory's config must use.
const ConfigBaseName = "config"

// TensorConfig declares one input or output of a model.
type TensorConfig struct {
	Name     string  `json:"name" yaml:"name" toml:"name"`
	DataType string  `json:"data_type" yaml:"data_type" toml:"data_type"`
	Dims     []int64 `json:"dims" yaml:"dims" toml:"dims"`
	Optional bool    `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
}

// Type parses DataType.
func (c TensorConfig) Type() (tensor.DataType, error) {
	return tensor.ParseDataType(c.DataType)
}

// ModelConfig is the per-model configuration read from the repository.
type ModelConfig struct {
	Name         string            `json:"name" yaml:"name" toml:"name"`
	Backend      string            `json:"backend" yaml:"backend" toml:"backend"`
	MaxBatchSize int               `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size"`
	Version      string            `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Input        []TensorConfig    `json:"input" yaml:"input" toml:"input"`
	Output       []TensorConfig    `json:"output" yaml:"output" toml:"output"`
	Parameters   map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty" toml:"parameters,omitempty"`
}

// OutputByName returns the named output declaration.
func (c ModelConfig) OutputByName(name string) (TensorConfig, bool) {
	for _, o := range c.Output {
		if o.Name == name {
			return o, true
		}
	}
	return TensorConfig{}, false
}

// InputByName returns the named input declaration.
func (c ModelConfig) InputByName(name string) (TensorConfig, bool) {
	for _, in := range c.Input {
		if in.Name == name {
			return in, true
		}
	}
	return TensorConfig{}, false
}

// OutputType resolves the declared data type of the named output.
func (c ModelConfig) OutputType(name string) (tensor.DataType, error) {
	o, ok := c.OutputByName(name)
	if !ok {
		return "", fmt.Errorf("model %s: no output named %q in config", c.Name, name)
	}
	dt, err := o.Type()
	if err != nil {
		return "", fmt.Errorf("model %s: output %s: %w", c.Name, name, err)
	}
	return dt, nil
}

// Parameter returns parameters[key] or def when unset.
func (c ModelConfig) Parameter(key, def string) string {
	if v, ok := c.Parameters[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// IntParameter parses parameters[key] as an integer.
func (c ModelConfig) IntParameter(key string, def int) (int, error) {
	v := c.Parameter(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", key, err)
	}
	return n, nil
}

// Validate checks required fields and that every declared type parses.
func (c ModelConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend) == "" {
		errs = append(errs, errors.New("backend is required"))
	}
	seen := map[string]bool{}
	for _, list := range [][]TensorConfig{c.Input, c.Output} {
		for _, tc := range list {
			if tc.Name == "" {
				errs = append(errs, errors.New("tensor with empty name"))
				continue
			}
			if seen[tc.Name] {
				errs = append(errs, fmt.Errorf("tensor %s declared twice", tc.Name))
			}
			seen[tc.Name] = true
			if _, err := tc.Type(); err != nil {
				errs = append(errs, fmt.Errorf("tensor %s: %w", tc.Name, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("model config %s: %w", c.Name, err)
	}
	return nil
}

// FindConfigFile returns the config file inside dir, trying each supported
// extension in order.
func FindConfigFile(dir string) (string, bool) {
	for _, ext := range config.Extensions {
		p := filepath.Join(dir, ConfigBaseName+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// LoadModelConfig reads and validates the config in dir. The model name
// defaults to the directory name.
func LoadModelConfig(dir string) (ModelConfig, error) {
	var cfg ModelConfig
	p, ok := FindConfigFile(dir)
	if !ok {
		return cfg, fmt.Errorf("no %s.{yaml,yml,json,toml} in %s", ConfigBaseName, dir)
	}
	if err := config.Decode(p, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(dir)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Package registry scans a model repository.
//
// Layout:
//
//	<root>/<model>/config.yaml     (or .yml, .json, .toml)
//	<root>/<model>/<version>/...   numeric version directories
//
// Every subdirectory of root that holds a config file is a model. The highest
// numeric version is served unless the config pins one with `version`.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"modelhost/internal/backend"
	"modelhost/internal/common/fsutil"
	"modelhost/pkg/types"
)

// ErrNotFound is returned by Resolve for unknown model names.
var ErrNotFound = errors.New("model not found in repository")

// Entry is one model found in the repository.
type Entry struct {
	Name string
	// Dir is the model directory; VersionDir holds the artifacts of Version.
	Dir        string
	Version    string
	VersionDir string
	Versions   []string
	Config     backend.ModelConfig
	// Err is set when the model is present but cannot be served.
	Err error
}

// Model converts e to its API form.
func (e Entry) Model() types.Model {
	m := types.Model{Name: e.Name, Version: e.Version, Versions: e.Versions, Backend: e.Config.Backend, Path: e.Dir}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return m
}

// Repository is a model repository rooted at a local directory.
type Repository struct {
	root string
}

// Open resolves root (expanding a leading ~) and checks it is a directory.
func Open(root string) (*Repository, error) {
	base, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if !fsutil.Exists(abs) {
		return nil, fmt.Errorf("model repository %s does not exist", abs)
	}
	if !fsutil.IsDir(abs) {
		return nil, fmt.Errorf("model repository %s is not a directory", abs)
	}
	return &Repository{root: abs}, nil
}

// Root returns the absolute repository path.
func (r *Repository) Root() string { return r.root }

// Index lists every model in the repository, sorted by name. Broken models are
// listed with Err set; only an unreadable root is an error.
func (r *Repository) Index() ([]Entry, error) {
	dirents, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(r.root, d.Name())
		if _, ok := backend.FindConfigFile(dir); !ok {
			continue
		}
		out = append(out, loadEntry(dir))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve returns the entry for name. Unknown names wrap ErrNotFound; a model
// that exists but cannot be served returns its Entry.Err.
func (r *Repository) Resolve(name string) (Entry, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	dir := filepath.Join(r.root, name)
	if _, ok := backend.FindConfigFile(dir); !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	e := loadEntry(dir)
	return e, e.Err
}

func loadEntry(dir string) Entry {
	e := Entry{Name: filepath.Base(dir), Dir: dir}
	cfg, err := backend.LoadModelConfig(dir)
	e.Config = cfg
	if err != nil {
		e.Err = err
		return e
	}
	if cfg.Name != e.Name {
		e.Err = fmt.Errorf("config name %q does not match directory %q", cfg.Name, e.Name)
		return e
	}
	versions, err := fsutil.VersionDirs(dir)
	if err != nil {
		e.Err = err
		return e
	}
	e.Versions = versions
	switch {
	case cfg.Version != "":
		for _, v := range versions {
			if v == cfg.Version {
				e.Version = v
			}
		}
		if e.Version == "" {
			e.Err = fmt.Errorf("pinned version %s not found in %s", cfg.Version, dir)
			return e
		}
	case len(versions) > 0:
		e.Version = versions[len(versions)-1]
	default:
		e.Err = fmt.Errorf("no version directories in %s", dir)
		return e
	}
	e.VersionDir = filepath.Join(dir, e.Version)
	return e
}

// LoadDir scans a repository and returns its models in API form.
func LoadDir(dir string) ([]types.Model, error) {
	repo, err := Open(dir)
	if err != nil {
		return nil, err
	}
	entries, err := repo.Index()
	if err != nil {
		return nil, err
	}
	models := make([]types.Model, 0, len(entries))
	for _, e := range entries {
		models = append(models, e.Model())
	}
	return models, nil
}

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const summarizerConfig = `backend: summarizer
output:
  - name: output
    data_type: TYPE_INT32
    dims: [-1, -1]
`

func writeModel(t *testing.T, root, name, cfg string, versions ...string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if cfg != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	for _, v := range versions {
		if err := os.MkdirAll(filepath.Join(dir, v), 0o755); err != nil {
			t.Fatalf("mkdir version: %v", err)
		}
	}
}

func TestIndexPicksHighestNumericVersion(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "t5-small", summarizerConfig, "1", "2", "10", "latest")
	writeModel(t, root, "no-config", "", "1")
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entries, err := repo.Index()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 model, got %+v", entries)
	}
	e := entries[0]
	if e.Err != nil {
		t.Fatalf("unexpected entry error: %v", e.Err)
	}
	if e.Version != "10" || e.VersionDir != filepath.Join(root, "t5-small", "10") {
		t.Fatalf("wrong version: %s %s", e.Version, e.VersionDir)
	}
	if got := e.Versions; len(got) != 3 || got[0] != "1" || got[2] != "10" {
		t.Fatalf("versions: %v", got)
	}
	if e.Config.Backend != "summarizer" {
		t.Fatalf("backend: %q", e.Config.Backend)
	}
}

func TestPinnedVersion(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "m", summarizerConfig+"version: \"1\"\n", "1", "2")
	writeModel(t, root, "gone", summarizerConfig+"version: \"7\"\n", "1")
	repo, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, err := repo.Resolve("m")
	if err != nil || e.Version != "1" {
		t.Fatalf("resolve m: %+v %v", e, err)
	}
	if _, err := repo.Resolve("gone"); err == nil {
		t.Fatalf("expected pinned version error")
	}
}

func TestBrokenModelsAreListed(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "noversions", summarizerConfig)
	writeModel(t, root, "nobackend", "output: []\n", "1")
	writeModel(t, root, "renamed", "name: other\n"+summarizerConfig, "1")
	repo, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entries, err := repo.Index()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Err == nil {
			t.Fatalf("%s: expected an error", e.Name)
		}
		if e.Model().Error == "" {
			t.Fatalf("%s: api form lost the error", e.Name)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	repo, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, name := range []string{"missing", "", "..", "a/b"} {
		if _, err := repo.Resolve(name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%q: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestOpenRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(f); err == nil {
		t.Fatalf("expected error for file root")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestOpenExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	writeModel(t, filepath.Join(home, "models"), "t5-small", summarizerConfig, "1")
	models, err := LoadDir("~/models")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(models) != 1 || models[0].Name != "t5-small" || models[0].Version != "1" {
		t.Fatalf("unexpected: %+v", models)
	}
	if models[0].Path != filepath.Join(home, "models", "t5-small") {
		t.Fatalf("path: %s", models[0].Path)
	}
}

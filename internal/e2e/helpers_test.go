package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"modelhost/internal/backend"
	"modelhost/internal/engine/enginetest"
	"modelhost/internal/httpapi"
	"modelhost/internal/manager"
	"modelhost/internal/registry"
	"modelhost/internal/sentiment"
	"modelhost/internal/summarizer"
)

const t5Config = `name: t5-small
backend: summarizer
max_batch_size: 0
input:
  - {name: input, data_type: TYPE_INT64, dims: [-1, -1]}
output:
  - {name: output, data_type: TYPE_INT32, dims: [-1, -1]}
parameters:
  max_new_tokens: "20"
`

// createRepo writes a model repository with one version per model.
func createRepo(t *testing.T, configs map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, cfg := range configs {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Join(dir, "1"), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644); err != nil {
			t.Fatalf("write config %s: %v", name, err)
		}
	}
	return root
}

func newServer(t *testing.T, root string, eng *enginetest.Engine, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	repo, err := registry.Open(root)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	reg := backend.NewRegistry()
	if err := summarizer.Register(reg, eng, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if err := sentiment.Register(reg, eng, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	cfg.Repository = repo
	cfg.Backends = reg
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close(context.Background())
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

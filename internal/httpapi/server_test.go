package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"modelhost/internal/backend"
	"modelhost/internal/manager"
	"modelhost/internal/tensor"
	"modelhost/pkg/types"
)

type mockSvc struct {
	mu       sync.Mutex
	ready    bool
	inferErr error
	lastReq  *backend.Request
	lastCtx  context.Context
	loaded   []string
	unloaded []string
	loadErr  error
	// entered, when set, makes Infer block until its context is done.
	entered chan struct{}
}

func (m *mockSvc) ListModels() ([]types.Model, error) {
	return []types.Model{{Name: "t5-small", Version: "1", Versions: []string{"1"}, Backend: "summarizer"}}, nil
}

func (m *mockSvc) RepositoryIndex(readyOnly bool) ([]types.RepositoryIndexEntry, error) {
	out := []types.RepositoryIndexEntry{{Name: "t5-small", Version: "1", State: "READY"}}
	if !readyOnly {
		out = append(out, types.RepositoryIndexEntry{Name: "sst2", Version: "1", State: "UNAVAILABLE"})
	}
	return out, nil
}

func (m *mockSvc) Metadata(id string) (types.ModelMetadata, error) {
	if id != "t5-small" {
		return types.ModelMetadata{}, manager.ErrModelNotFound(id)
	}
	return types.ModelMetadata{Name: id, Versions: []string{"1"}, Platform: "summarizer"}, nil
}

func (m *mockSvc) Status() types.StatusResponse { return types.StatusResponse{State: "ready"} }
func (m *mockSvc) Ready() bool                   { return m.ready }
func (m *mockSvc) ModelReady(id string) bool     { return m.ready && id == "t5-small" }

func (m *mockSvc) Load(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, id)
	return m.loadErr
}

func (m *mockSvc) Unload(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloaded = append(m.unloaded, id)
	return nil
}

func (m *mockSvc) Infer(ctx context.Context, id string, req *backend.Request) (*backend.Response, error) {
	m.mu.Lock()
	m.lastReq = req
	m.lastCtx = ctx
	m.mu.Unlock()
	if m.entered != nil {
		close(m.entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if id != "t5-small" {
		return nil, manager.ErrModelNotFound(id)
	}
	if m.inferErr != nil {
		return nil, m.inferErr
	}
	out, _ := tensor.FromInt64("output", tensor.Int32, []int64{1, 2}, []int64{7, 8})
	return &backend.Response{Outputs: []*tensor.Tensor{out}}, nil
}

const inferBody = `{"inputs":[{"name":"input","datatype":"INT64","shape":[1,3],"data":[[1,2,3]]}]}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	svc := &mockSvc{}
	h := NewMux(svc)
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	if rr := do(t, h, http.MethodGet, "/v2/health/live", ""); rr.Code != http.StatusOK {
		t.Fatalf("live: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v2/health/ready", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready before load: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load: %d", rr.Code)
	}
	svc.ready = true
	if rr := do(t, h, http.MethodGet, "/v2/health/ready", ""); rr.Code != http.StatusOK {
		t.Fatalf("ready: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v2/models/t5-small/ready", ""); rr.Code != http.StatusOK {
		t.Fatalf("model ready: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v2/models/other/ready", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("other model ready: %d", rr.Code)
	}
}

func TestServerMetadata(t *testing.T) {
	SetServerVersion("1.2.3")
	defer SetServerVersion("dev")
	rr := do(t, NewMux(&mockSvc{}), http.MethodGet, "/v2", "")
	var md types.ServerMetadata
	if err := json.Unmarshal(rr.Body.Bytes(), &md); err != nil {
		t.Fatal(err)
	}
	if md.Name != "modelhost" || md.Version != "1.2.3" {
		t.Fatalf("unexpected metadata %+v", md)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestModelMetadataNotFound(t *testing.T) {
	h := NewMux(&mockSvc{})
	if rr := do(t, h, http.MethodGet, "/v2/models/t5-small", ""); rr.Code != http.StatusOK {
		t.Fatalf("metadata: %d", rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/v2/models/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rr.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Code != http.StatusNotFound {
		t.Fatalf("bad error body %q", rr.Body.String())
	}
}

func TestInferSuccess(t *testing.T) {
	svc := &mockSvc{}
	rr := do(t, NewMux(svc), http.MethodPost, "/v2/models/t5-small/infer", `{"id":"abc","inputs":[{"name":"input","datatype":"INT64","shape":[1,3],"data":[1,2,3]}],"outputs":[{"name":"output"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var resp types.InferResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "abc" || resp.ModelName != "t5-small" || len(resp.Outputs) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	got, _ := resp.Outputs[0].Int64s()
	if resp.Outputs[0].DataType != tensor.Int32 || len(got) != 2 || got[0] != 7 {
		t.Fatalf("unexpected output %+v", resp.Outputs[0])
	}
	if len(svc.lastReq.RequestedOutputs) != 1 || svc.lastReq.RequestedOutputs[0] != "output" {
		t.Fatalf("requested outputs not forwarded: %v", svc.lastReq.RequestedOutputs)
	}
	ids, _ := svc.lastReq.Inputs[0].Int64s()
	if len(ids) != 3 || ids[2] != 3 {
		t.Fatalf("input not decoded: %v", ids)
	}
}

func TestInferGeneratesID(t *testing.T) {
	svc := &mockSvc{}
	rr := do(t, NewMux(svc), http.MethodPost, "/v2/models/t5-small/infer", inferBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if svc.lastReq.ID == "" {
		t.Fatalf("expected generated id")
	}
	var resp types.InferResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.ID != svc.lastReq.ID {
		t.Fatalf("response id %q != request id %q", resp.ID, svc.lastReq.ID)
	}
}

func TestInferRejectsBadRequests(t *testing.T) {
	h := NewMux(&mockSvc{})
	cases := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{"content type", "text/plain", inferBody, http.StatusUnsupportedMediaType},
		{"bad json", "application/json", "{", http.StatusBadRequest},
		{"no inputs", "application/json", `{"inputs":[]}`, http.StatusBadRequest},
		{"null input", "application/json", `{"inputs":[null]}`, http.StatusBadRequest},
		{"shape mismatch", "application/json", `{"inputs":[{"name":"input","datatype":"INT64","shape":[2],"data":[1]}]}`, http.StatusBadRequest},
		{"unknown type", "application/json", `{"inputs":[{"name":"input","datatype":"INT128","shape":[1],"data":[1]}]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v2/models/t5-small/infer", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.ct)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("want %d, got %d (%s)", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestInferBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	rr := do(t, NewMux(&mockSvc{}), http.MethodPost, "/v2/models/t5-small/infer", inferBody)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rr.Code)
	}
}

type teapot struct{}

func (teapot) Error() string   { return "teapot" }
func (teapot) StatusCode() int { return http.StatusTeapot }

func TestInferErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"input", backend.NewInputError("input", "bad"), http.StatusBadRequest},
		{"dependency", manager.ErrDependencyUnavailable("runtime missing"), http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"http error", teapot{}, http.StatusTeapot},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, NewMux(&mockSvc{inferErr: tc.err}), http.MethodPost, "/v2/models/t5-small/infer", inferBody)
			if rr.Code != tc.want {
				t.Fatalf("want %d, got %d", tc.want, rr.Code)
			}
		})
	}
	rr := do(t, NewMux(&mockSvc{}), http.MethodPost, "/v2/models/missing/infer", inferBody)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rr.Code)
	}
}

func TestInferCanceledByBaseContext(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)
	svc := &mockSvc{entered: make(chan struct{})}
	h := NewMux(svc)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/v2/models/t5-small/infer", strings.NewReader(inferBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		done <- rr
	}()
	<-svc.entered
	cancel()
	rr := <-done
	if !errors.Is(svc.lastCtx.Err(), context.Canceled) {
		t.Fatalf("infer context not canceled: %v", svc.lastCtx.Err())
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("no body expected after shutdown, got %s", rr.Body.String())
	}
}

func TestRepositoryEndpoints(t *testing.T) {
	svc := &mockSvc{}
	h := NewMux(svc)

	rr := do(t, h, http.MethodPost, "/v2/repository/index", `{"ready":true}`)
	var idx []types.RepositoryIndexEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &idx); err != nil || len(idx) != 1 {
		t.Fatalf("ready index: %v %s", err, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/v2/repository/index", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &idx); err != nil || len(idx) != 2 {
		t.Fatalf("full index: %v %s", err, rr.Body.String())
	}

	if rr := do(t, h, http.MethodPost, "/v2/repository/models/t5-small/load", ""); rr.Code != http.StatusOK {
		t.Fatalf("load: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v2/repository/models/t5-small/unload", ""); rr.Code != http.StatusOK {
		t.Fatalf("unload: %d", rr.Code)
	}
	if len(svc.loaded) != 1 || len(svc.unloaded) != 1 {
		t.Fatalf("load/unload not forwarded: %v %v", svc.loaded, svc.unloaded)
	}

	svc.loadErr = manager.ErrModelNotFound("x")
	if rr := do(t, h, http.MethodPost, "/v2/repository/models/x/load", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("load missing: %d", rr.Code)
	}
}

func TestModelsAndStatus(t *testing.T) {
	h := NewMux(&mockSvc{})
	rr := do(t, h, http.MethodGet, "/models", "")
	var models types.ModelsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &models); err != nil || len(models.Models) != 1 {
		t.Fatalf("models: %v %s", err, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/status", "")
	var st types.StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil || st.State != "ready" {
		t.Fatalf("status: %v %s", err, rr.Body.String())
	}
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	SetCORSOptions(true, []string{"https://example.com"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/v2/models/t5-small/infer", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	NewMux(&mockSvc{}).ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("allow origin = %q", got)
	}
}

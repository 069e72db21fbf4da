package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"modelhost/internal/backend"
	"modelhost/internal/registry"
	"modelhost/internal/tensor"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	entries map[string]registry.Entry
}

func newFakeRepo(entries ...registry.Entry) *fakeRepo {
	r := &fakeRepo{entries: map[string]registry.Entry{}}
	for _, e := range entries {
		r.entries[e.Name] = e
	}
	return r
}

func (r *fakeRepo) Index() ([]registry.Entry, error) {
	out := make([]registry.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeRepo) Resolve(name string) (registry.Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return registry.Entry{}, fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	return e, e.Err
}

func entry(name, backendName string) registry.Entry {
	return registry.Entry{
		Name:       name,
		Dir:        "/repo/" + name,
		Version:    "1",
		VersionDir: "/repo/" + name + "/1",
		Versions:   []string{"1"},
		Config: backend.ModelConfig{
			Name:    name,
			Backend: backendName,
			Input:   []backend.TensorConfig{{Name: "input", DataType: "TYPE_INT64", Dims: []int64{-1}}},
			Output:  []backend.TensorConfig{{Name: "output", DataType: "TYPE_INT32", Dims: []int64{-1}}, {Name: "extra", DataType: "TYPE_STRING", Dims: []int64{1}}},
		},
	}
}

// fakeModel echoes the "input" tensor as "output" and adds an "extra" output.
type fakeModel struct {
	initErr   error
	initBlock chan struct{}
	execBlock chan struct{}
	execHook  func([]*backend.Request) ([]*backend.Response, error)
	finalErr  error

	mu        sync.Mutex
	initArgs  []backend.InitArgs
	batchLens []int
	finalized int
	running   int32
	maxRun    int32
	execAfter bool
}

func (f *fakeModel) Initialize(ctx context.Context, args backend.InitArgs) error {
	f.mu.Lock()
	f.initArgs = append(f.initArgs, args)
	f.mu.Unlock()
	if f.initBlock != nil {
		select {
		case <-f.initBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.initErr
}

func (f *fakeModel) Execute(ctx context.Context, reqs []*backend.Request) ([]*backend.Response, error) {
	n := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	for {
		old := atomic.LoadInt32(&f.maxRun)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxRun, old, n) {
			break
		}
	}
	f.mu.Lock()
	f.batchLens = append(f.batchLens, len(reqs))
	if f.finalized > 0 {
		f.execAfter = true
	}
	f.mu.Unlock()
	if f.execBlock != nil {
		select {
		case <-f.execBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.execHook != nil {
		return f.execHook(reqs)
	}
	out := make([]*backend.Response, 0, len(reqs))
	for _, r := range reqs {
		in := r.InputByName("input")
		if in == nil {
			out = append(out, backend.ErrorResponse(backend.NewInputError("input", "missing")))
			continue
		}
		cast, err := in.Cast(tensor.Int32)
		if err != nil {
			return nil, err
		}
		extra, _ := tensor.FromStrings("extra", []int64{1}, []string{"x"})
		out = append(out, &backend.Response{Outputs: []*tensor.Tensor{cast.Clone("output"), extra}})
	}
	return out, nil
}

func (f *fakeModel) Finalize(context.Context) error {
	f.mu.Lock()
	f.finalized++
	f.mu.Unlock()
	return f.finalErr
}

func (f *fakeModel) initCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.initArgs)
}

func (f *fakeModel) finalizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finalized
}

// fakeBackends hands out one shared fakeModel per backend name.
type fakeBackends map[string]*fakeModel

func (b fakeBackends) New(name string) (backend.Model, error) {
	if m, ok := b[name]; ok {
		return m, nil
	}
	return nil, backend.UnknownBackendError{Name: name}
}

func newTestManager(t *testing.T, model *fakeModel, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.Repository == nil {
		cfg.Repository = newFakeRepo(entry("m", "fake"))
	}
	if cfg.Backends == nil {
		cfg.Backends = fakeBackends{"fake": model}
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

func int64Request(t *testing.T, vals ...int64) *backend.Request {
	t.Helper()
	in, err := tensor.FromInt64("input", tensor.Int64, []int64{int64(len(vals))}, vals)
	if err != nil {
		t.Fatalf("tensor: %v", err)
	}
	return &backend.Request{ID: "req", Inputs: []*tensor.Tensor{in}}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

var errBoom = errors.New("boom")

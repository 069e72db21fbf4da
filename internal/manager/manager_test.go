package manager

import (
	"errors"
	"sync"
	"testing"
	"time"

	"modelhost/internal/backend"
	"modelhost/internal/engine"
)

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if m.maxQueueDepth != defaultMaxQueueDepth {
		t.Fatalf("expected default maxQueueDepth=%d got %d", defaultMaxQueueDepth, m.maxQueueDepth)
	}
	if m.maxWait != defaultMaxWait {
		t.Fatalf("expected default maxWait=%v got %v", defaultMaxWait, m.maxWait)
	}
	if m.drainTimeout != defaultDrainTimeout {
		t.Fatalf("expected default drainTimeout=%v got %v", defaultDrainTimeout, m.drainTimeout)
	}
}

func TestLoadInitializesOnce(t *testing.T) {
	model := &fakeModel{}
	m := newTestManager(t, model, ManagerConfig{})
	pub := NewMemoryPublisher()
	m.SetEventPublisher(pub)
	if m.Ready() {
		t.Fatalf("expected not ready before any load")
	}
	for i := 0; i < 2; i++ {
		if err := m.Load(testCtx(t), "m"); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if got := model.initCalls(); got != 1 {
		t.Fatalf("expected 1 Initialize, got %d", got)
	}
	args := model.initArgs[0]
	if args.ModelName != "m" || args.ModelVersion != "1" || args.Dir != "/repo/m/1" || args.ModelRepository != "/repo" {
		t.Fatalf("unexpected init args: %+v", args)
	}
	if !m.Ready() || !m.ModelReady("m") {
		t.Fatalf("expected ready after load")
	}
	names := pub.Names()
	if len(names) != 2 || names[0] != "ensure_start" || names[1] != "ensure_ready" {
		t.Fatalf("unexpected events: %v", names)
	}
}

func TestConcurrentLoadsShareInitialize(t *testing.T) {
	model := &fakeModel{initBlock: make(chan struct{})}
	m := newTestManager(t, model, ManagerConfig{})
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Load(testCtx(t), "m")
		}()
	}
	time.Sleep(30 * time.Millisecond)
	close(model.initBlock)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if got := model.initCalls(); got != 1 {
		t.Fatalf("expected 1 Initialize, got %d", got)
	}
}

func TestLoadNotFound(t *testing.T) {
	m := newTestManager(t, &fakeModel{}, ManagerConfig{})
	if err := m.Load(testCtx(t), "nope"); !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
	if err := m.Load(testCtx(t), ""); !IsModelNotFound(err) {
		t.Fatalf("expected model not found for empty id, got %v", err)
	}
}

func TestLoadBrokenRepositoryEntry(t *testing.T) {
	bad := entry("bad", "fake")
	bad.Err = errBoom
	m := newTestManager(t, &fakeModel{}, ManagerConfig{Repository: newFakeRepo(bad)})
	if err := m.Load(testCtx(t), "bad"); !IsModelNotReady(err) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestLoadFailureThenRetry(t *testing.T) {
	model := &fakeModel{initErr: errBoom}
	m := newTestManager(t, model, ManagerConfig{})
	err := m.Load(testCtx(t), "m")
	if !IsModelNotReady(err) || !errors.Is(err, errBoom) {
		t.Fatalf("expected not ready wrapping the initialize error, got %v", err)
	}
	st := m.Status()
	if st.State != string(StateError) || len(st.Instances) != 1 || st.Instances[0].Error == "" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if m.Ready() {
		t.Fatalf("expected not ready after failed load")
	}
	idx, err := m.RepositoryIndex(false)
	if err != nil || len(idx) != 1 || idx[0].State != "UNAVAILABLE" || idx[0].Reason == "" {
		t.Fatalf("unexpected index: %+v %v", idx, err)
	}
	model.initErr = nil
	if err := m.Load(testCtx(t), "m"); err != nil {
		t.Fatalf("retry load: %v", err)
	}
	if !m.Ready() {
		t.Fatalf("expected ready after retry")
	}
}

func TestLoadUnknownBackend(t *testing.T) {
	m := newTestManager(t, &fakeModel{}, ManagerConfig{Repository: newFakeRepo(entry("m", "nobody"))})
	err := m.Load(testCtx(t), "m")
	if !backend.IsUnknownBackend(err) {
		t.Fatalf("expected unknown backend, got %v", err)
	}
}

func TestLoadRuntimeUnavailable(t *testing.T) {
	m := newTestManager(t, &fakeModel{initErr: engine.ErrRuntimeUnavailable}, ManagerConfig{})
	if err := m.Load(testCtx(t), "m"); !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}

func TestLoadAfterCloseFails(t *testing.T) {
	m := newTestManager(t, &fakeModel{}, ManagerConfig{})
	if err := m.Close(testCtx(t)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Load(testCtx(t), "m"); !IsModelNotReady(err) {
		t.Fatalf("expected not ready after close, got %v", err)
	}
}

func TestMetadata(t *testing.T) {
	e := entry("m", "fake")
	e.Config.MaxBatchSize = 8
	m := newTestManager(t, &fakeModel{}, ManagerConfig{Repository: newFakeRepo(e)})
	md, err := m.Metadata("m")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if md.Platform != "fake" || len(md.Inputs) != 1 || len(md.Outputs) != 2 {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	in := md.Inputs[0]
	if in.Datatype != "INT64" || len(in.Shape) != 2 || in.Shape[0] != -1 {
		t.Fatalf("unexpected input metadata: %+v", in)
	}
	if md.Outputs[1].Datatype != "BYTES" {
		t.Fatalf("expected BYTES, got %s", md.Outputs[1].Datatype)
	}
	if _, err := m.Metadata("nope"); !IsModelNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListModelsAndIndex(t *testing.T) {
	m := newTestManager(t, &fakeModel{}, ManagerConfig{Repository: newFakeRepo(entry("m", "fake"), entry("n", "fake"))})
	models, err := m.ListModels()
	if err != nil || len(models) != 2 {
		t.Fatalf("list: %+v %v", models, err)
	}
	if err := m.Load(testCtx(t), "m"); err != nil {
		t.Fatalf("load: %v", err)
	}
	ready, err := m.RepositoryIndex(true)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(ready) != 1 || ready[0].Name != "m" || ready[0].State != "READY" {
		t.Fatalf("unexpected ready index: %+v", ready)
	}
}

func TestSnapshotAndStatus(t *testing.T) {
	m := newTestManager(t, &fakeModel{}, ManagerConfig{MaxQueueDepth: 3})
	if err := m.Load(testCtx(t), "m"); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := m.Snapshot()
	if snap.State != StateReady || len(snap.Loaded) != 1 || snap.Loaded[0] != "m" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	st := m.Status()
	if st.LoadsTotal != 1 || len(st.Instances) != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
	inst := st.Instances[0]
	if inst.MaxQueueDepth != 3 || inst.Backend != "fake" || inst.Version != "1" || inst.State != "ready" {
		t.Fatalf("unexpected instance status: %+v", inst)
	}
}


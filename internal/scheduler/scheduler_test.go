package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scenestream/sceneviewer/internal/scenestore"
)

// fakePool records EnqueueLoad calls and lets the test drive descriptors
// through LOADING/LOADED/ERROR manually, without a real loader.Pool.
type fakePool struct {
	mu      sync.Mutex
	claimed []*scenestore.SceneDescriptor
}

func (p *fakePool) EnqueueLoad(desc *scenestore.SceneDescriptor) {
	desc.SetState(scenestore.Queued)
	p.mu.Lock()
	p.claimed = append(p.claimed, desc)
	p.mu.Unlock()
}

func (p *fakePool) claimedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.claimed)
}

func TestAdmitRespectsConcurrencyCap(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 2, time.Hour)

	for _, id := range []string{"a", "b", "c", "d"} {
		store.GetOrCreate(id)
	}

	sched.admit()

	if got := pool.claimedCount(); got != 2 {
		t.Fatalf("expected 2 admitted under cap 2, got %d", got)
	}
}

func TestAdmitSkipsAlreadyLoadingOrLoaded(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 2, time.Hour)

	loading := store.GetOrCreate("loading")
	loading.SetState(scenestore.Loading)
	loaded := store.GetOrCreate("loaded")
	loaded.SetState(scenestore.Loaded)
	store.GetOrCreate("waiting")

	sched.admit()

	if got := pool.claimedCount(); got != 0 {
		t.Fatalf("expected no slot free under cap 2 (2 already active), got %d admitted", got)
	}
}

func TestAdmitDoesNothingWhenAtCap(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 1, time.Hour)

	loading := store.GetOrCreate("loading")
	loading.SetState(scenestore.Loading)
	store.GetOrCreate("waiting")

	sched.admit()

	if got := pool.claimedCount(); got != 0 {
		t.Fatalf("expected no admissions at cap, got %d", got)
	}
}

func TestPrioritizeMovesToFront(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 1, time.Hour)

	store.GetOrCreate("x")
	store.GetOrCreate("y")

	sched.Prioritize("y")
	sched.admit()

	if got := pool.claimedCount(); got != 1 {
		t.Fatalf("expected 1 admission, got %d", got)
	}
	if pool.claimed[0].SceneID != "y" {
		t.Errorf("expected prioritized scene y admitted first, got %s", pool.claimed[0].SceneID)
	}
}

func TestUnloadCancelsAndTransitionsToUnloaded(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 1, time.Hour)

	desc := store.GetOrCreate("s1")
	desc.SetState(scenestore.Loading)
	ctx := desc.ArmCancel(context.Background())

	sched.Unload("s1")

	if desc.State() != scenestore.Unloaded {
		t.Errorf("expected UNLOADED after Unload, got %s", desc.State())
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("expected cancel token to be tripped")
	}
}

func TestRetryOnlyAffectsErrorState(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 1, time.Hour)

	errored := store.GetOrCreate("bad")
	errored.SetState(scenestore.Error)
	loading := store.GetOrCreate("busy")
	loading.SetState(scenestore.Loading)

	sched.Retry("bad")
	sched.Retry("busy")

	if errored.State() != scenestore.Unloaded {
		t.Errorf("expected ERROR scene reset to UNLOADED, got %s", errored.State())
	}
	if loading.State() != scenestore.Loading {
		t.Errorf("expected LOADING scene untouched by Retry, got %s", loading.State())
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 1, time.Hour)

	d1 := sched.Register("s1")
	d1.SetState(scenestore.Loaded)
	d2 := sched.Register("s1")

	if d2.State() != scenestore.Loaded {
		t.Error("expected re-Register to preserve existing state")
	}
	if d1 != d2 {
		t.Error("expected Register to return the same descriptor pointer")
	}
}

func TestStartStopRunsAdmissionLoop(t *testing.T) {
	store := scenestore.NewStore()
	pool := &fakePool{}
	sched := New(store, pool, 1, 5*time.Millisecond)
	store.GetOrCreate("s1")

	sched.Start()
	defer sched.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pool.claimedCount() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected the admission loop to enqueue the registered scene")
}

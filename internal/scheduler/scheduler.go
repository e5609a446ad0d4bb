// Package scheduler implements admission control: a periodic loop that
// promotes UNLOADED scene descriptors to QUEUED and hands them to the
// loader pool, bounded by a concurrency cap, plus prioritization and
// unload.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/scenestream/sceneviewer/internal/logger"
	"github.com/scenestream/sceneviewer/internal/scenestore"
)

// LoadEnqueuer is the loader operation the scheduler drives; internal/loader.Pool
// satisfies it.
type LoadEnqueuer interface {
	EnqueueLoad(desc *scenestore.SceneDescriptor)
}

// Scheduler runs the admission loop against a store on its own goroutine.
// Each admission pass counts LOADING and LOADED descriptors against
// ConcurrencyCap and admits UNLOADED ones only into the slots left over;
// QUEUED descriptors are not counted.
type Scheduler struct {
	store          *scenestore.Store
	pool           LoadEnqueuer
	concurrencyCap int
	admitInterval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New returns a Scheduler bound to store and pool. Start must be called to
// begin the admission loop.
func New(store *scenestore.Store, pool LoadEnqueuer, concurrencyCap int, admitInterval time.Duration) *Scheduler {
	if concurrencyCap <= 0 {
		concurrencyCap = 5
	}
	if admitInterval <= 0 {
		admitInterval = 200 * time.Millisecond
	}
	return &Scheduler{
		store:          store,
		pool:           pool,
		concurrencyCap: concurrencyCap,
		admitInterval:  admitInterval,
	}
}

// Start launches the admission loop. Calling Start twice without an
// intervening Stop is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopped = make(chan struct{})
	go s.run(ctx)
}

// Stop halts the admission loop and waits for the current tick to finish.
// It does not affect scenes already QUEUED or LOADING.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(s.admitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.admit()
		}
	}
}

// admit runs a single admission pass: count descriptors currently LOADING
// or LOADED, then walk the snapshot in order promoting UNLOADED
// descriptors to QUEUED until the concurrency cap is reached.
func (s *Scheduler) admit() {
	snapshot := s.store.Snapshot()

	loadingOrLoaded := 0
	for _, d := range snapshot {
		switch d.State() {
		case scenestore.Loading, scenestore.Loaded:
			loadingOrLoaded++
		}
	}
	toStart := s.concurrencyCap - loadingOrLoaded
	if toStart <= 0 {
		return
	}

	for _, d := range snapshot {
		if toStart == 0 {
			break
		}
		if d.State() != scenestore.Unloaded {
			continue
		}
		logger.Scene(d.SceneID).Debug("admitting scene for load")
		s.pool.EnqueueLoad(d)
		toStart--
	}
}

// Register ensures sceneID has a descriptor, creating an UNLOADED one if
// it does not already exist. Registering an already-registered scene is a
// no-op that does not reset its state.
func (s *Scheduler) Register(sceneID string) *scenestore.SceneDescriptor {
	return s.store.GetOrCreate(sceneID)
}

// EnqueueLoad hands desc directly to the loader pool outside the periodic
// admission pass, used by UI-driven "load now" requests. The scheduler's
// own admission pass will not re-admit a descriptor that is already
// QUEUED or LOADING.
func (s *Scheduler) EnqueueLoad(sceneID string) {
	d := s.store.Get(sceneID)
	if d == nil || d.State() != scenestore.Unloaded {
		return
	}
	s.pool.EnqueueLoad(d)
}

// Prioritize repositions sceneID at the head of the store's insertion
// order so the next admission pass considers it first. It does not
// preempt a scene already LOADING.
func (s *Scheduler) Prioritize(sceneID string) {
	s.store.Reorder(sceneID, true)
}

// Unload transitions sceneID to UNLOADED and trips its cancel token so an
// in-flight load observes cancellation. It does not release GPU handles
// or reset the descriptor's mutable contents: Scheduler never touches the
// GPU, so that is internal/controller's job, done after this call using
// the descriptor's mesh handles as they stood at the moment of unload.
func (s *Scheduler) Unload(sceneID string) {
	d := s.store.Get(sceneID)
	if d == nil {
		return
	}
	d.SetState(scenestore.Unloaded)
	d.Cancel()
	logger.Scene(sceneID).Debug("scene unloaded")
}

// Retry re-admits a descriptor stuck in ERROR by transitioning it back to
// UNLOADED so the next admission pass (or an explicit EnqueueLoad) picks
// it up again. There is no automatic retry; this must be invoked
// explicitly by the UI.
func (s *Scheduler) Retry(sceneID string) {
	d := s.store.Get(sceneID)
	if d == nil || d.State() != scenestore.Error {
		return
	}
	d.SetState(scenestore.Unloaded)
}

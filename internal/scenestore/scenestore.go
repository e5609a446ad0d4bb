// Package scenestore holds the process-wide, insertion-ordered mapping
// from scene ID to scene descriptor shared by the UI, the scheduler, and
// the loader workers.
package scenestore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/pkg/math"
)

// SceneState is the lifecycle state of a scene descriptor.
type SceneState int32

const (
	Unloaded SceneState = iota
	Queued
	Loading
	Loaded
	Error
)

func (s SceneState) String() string {
	switch s {
	case Unloaded:
		return "UNLOADED"
	case Queued:
		return "QUEUED"
	case Loading:
		return "LOADING"
	case Loaded:
		return "LOADED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ModelProgress tracks one model's byte-level streaming and parse
// progress. BytesReceived is atomic so it can be read without the
// descriptor lock.
type ModelProgress struct {
	Name          string
	RelPath       string
	SizeBytes     int64
	BytesReceived atomic.Int64
	Parsed        bool
}

// ModelBounds is a model's bounding sphere in normalized model space.
type ModelBounds struct {
	Center math.Vec3
	Radius float32
}

// SceneDescriptor is the shared record summarizing a scene's
// registration, progress, and GPU residency. The map of descriptors is
// owned by Store; a descriptor's own fields are protected by its Mu,
// except for the atomic fields, which may be read lock-free.
type SceneDescriptor struct {
	SceneID string

	state             atomic.Int32
	currentModelIndex atomic.Int32
	generation        atomic.Uint64

	Mu              sync.Mutex
	Models          []*ModelProgress
	MeshHandles     []gpu.MeshHandle
	ModelTransforms []math.Mat4
	ModelBounds     []ModelBounds
	Thumbnail       []byte

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// State reads the descriptor's lifecycle state.
func (d *SceneDescriptor) State() SceneState {
	return SceneState(d.state.Load())
}

// SetState sets the descriptor's lifecycle state.
func (d *SceneDescriptor) SetState(s SceneState) {
	d.state.Store(int32(s))
}

// CurrentModelIndex reads the index of the model currently being loaded.
func (d *SceneDescriptor) CurrentModelIndex() int {
	return int(d.currentModelIndex.Load())
}

// SetCurrentModelIndex updates the index of the model currently being loaded.
func (d *SceneDescriptor) SetCurrentModelIndex(i int) {
	d.currentModelIndex.Store(int32(i))
}

// ArmCancel installs a fresh cancellable context for one load attempt,
// derived from parent, and returns it; Cancel trips it. Only one load
// attempt's context is live at a time.
func (d *SceneDescriptor) ArmCancel(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	d.cancelMu.Lock()
	d.cancel = cancel
	d.cancelMu.Unlock()
	return ctx
}

// Cancel trips the descriptor's current load attempt's cancel token, if
// one is armed. It is safe to call even if no load is in flight.
func (d *SceneDescriptor) Cancel() {
	d.cancelMu.Lock()
	cancel := d.cancel
	d.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Ref is a weak reference to a descriptor's current generation. A
// generation is bumped every time the descriptor is unloaded, so an
// upload task holding a Ref captured before the unload observes that its
// generation has expired and skips its GPU work instead of installing
// stale handles into a reused descriptor slot.
type Ref struct {
	desc *SceneDescriptor
	gen  uint64
}

// WeakRef captures a Ref to d at its current generation.
func (d *SceneDescriptor) WeakRef() Ref {
	return Ref{desc: d, gen: d.generation.Load()}
}

// Get resolves the reference, returning ok = false if the descriptor has
// since been unloaded (its generation advanced).
func (r Ref) Get() (*SceneDescriptor, bool) {
	if r.desc == nil {
		return nil, false
	}
	if r.desc.generation.Load() != r.gen {
		return nil, false
	}
	return r.desc, true
}

// AdoptManifest clears any prior load state and allocates the parallel
// per-model sequences sized to a freshly fetched manifest. Callers must
// hold d.Mu.
func (d *SceneDescriptor) AdoptManifest(models []*ModelProgress) {
	n := len(models)
	d.Models = models
	d.MeshHandles = make([]gpu.MeshHandle, n)
	d.ModelTransforms = make([]math.Mat4, n)
	d.ModelBounds = make([]ModelBounds, n)
	d.SetCurrentModelIndex(0)
}

// Reset clears a descriptor's mutable contents on unload, releasing GPU
// handle bookkeeping (the caller is responsible for destroying the GPU
// resources themselves) and bumping the generation so in-flight weak
// references expire. Callers must hold d.Mu.
func (d *SceneDescriptor) Reset() {
	d.Models = nil
	d.MeshHandles = nil
	d.ModelTransforms = nil
	d.ModelBounds = nil
	d.Thumbnail = nil
	d.SetCurrentModelIndex(0)
	d.generation.Add(1)
}

// Store is the process-wide insertion-ordered mapping from scene ID to
// descriptor. Structural mutations (adding or reordering scenes) serialize
// on the store's own lock;
// mutations of a descriptor's own internals take that descriptor's Mu.
type Store struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*SceneDescriptor
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*SceneDescriptor)}
}

// GetOrCreate returns the descriptor for sceneID, creating and
// registering an UNLOADED one at the end of insertion order if absent.
func (s *Store) GetOrCreate(sceneID string) *SceneDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.byID[sceneID]; ok {
		return d
	}
	d := &SceneDescriptor{SceneID: sceneID}
	s.byID[sceneID] = d
	s.order = append(s.order, sceneID)
	return d
}

// Get returns the descriptor for sceneID, or nil if it has not been registered.
func (s *Store) Get(sceneID string) *SceneDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[sceneID]
}

// Snapshot returns shared references to every descriptor in insertion
// order, safe to iterate outside the store's lock.
func (s *Store) Snapshot() []*SceneDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SceneDescriptor, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

// Reorder moves sceneID to the front of insertion order for
// prioritization. It is a no-op if sceneID is unregistered.
func (s *Store) Reorder(sceneID string, toFront bool) {
	if !toFront {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, id := range s.order {
		if id == sceneID {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	s.order = append([]string{sceneID}, s.order...)
}

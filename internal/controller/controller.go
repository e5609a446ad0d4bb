// Package controller exposes the pipeline's UI-facing surface: Register,
// EnqueueLoad, Prioritize, Unload, Snapshot, Retry, and Shutdown, wiring
// together the descriptor store, the admission scheduler, the loader
// pool, the upload queue, and the GPU backend.
package controller

import (
	"time"

	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/internal/loader"
	"github.com/scenestream/sceneviewer/internal/logger"
	"github.com/scenestream/sceneviewer/internal/scenestore"
	"github.com/scenestream/sceneviewer/internal/scheduler"
	"github.com/scenestream/sceneviewer/internal/shutdown"
	"github.com/scenestream/sceneviewer/internal/streamclient"
	"github.com/scenestream/sceneviewer/internal/upload"
)

// Controller is the single object internal/app and internal/faulttest
// hold to drive the whole pipeline.
type Controller struct {
	Store       *scenestore.Store
	Scheduler   *scheduler.Scheduler
	Pool        *loader.Pool
	UploadQueue *upload.Queue
	Backend     gpu.Backend
}

// Options configures New. ConcurrencyCap and WorkerCount fall back to
// the pipeline's documented defaults (5 and 4) when zero.
type Options struct {
	ServerAddr     string
	StagingDir     string
	ConcurrencyCap int
	WorkerCount    int
	AdmitInterval  time.Duration
	Backend        gpu.Backend
}

// New wires a fresh Controller: a streaming client dialing ServerAddr, a
// worker pool of WorkerCount workers, and a scheduler whose admission
// passes count LOADING and LOADED scenes against ConcurrencyCap. The
// scheduler's admission loop is started immediately.
func New(opts Options) *Controller {
	if opts.ConcurrencyCap <= 0 {
		opts.ConcurrencyCap = 5
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 4
	}

	store := scenestore.NewStore()
	uploadQ := upload.NewQueue()
	transport := streamclient.New(opts.ServerAddr)
	pool := loader.NewPool(opts.WorkerCount, transport, uploadQ, opts.StagingDir, opts.Backend)
	sched := scheduler.New(store, pool, opts.ConcurrencyCap, opts.AdmitInterval)
	sched.Start()

	return &Controller{
		Store:       store,
		Scheduler:   sched,
		Pool:        pool,
		UploadQueue: uploadQ,
		Backend:     opts.Backend,
	}
}

// Register ensures sceneID has a descriptor, creating an UNLOADED one if
// absent. Idempotent: registering twice does not reset existing state.
func (c *Controller) Register(sceneID string) *scenestore.SceneDescriptor {
	return c.Scheduler.Register(sceneID)
}

// EnqueueLoad requests an immediate load of an UNLOADED scene, bypassing
// the wait for the next periodic admission pass. A no-op if sceneID is
// unregistered or not currently UNLOADED.
func (c *Controller) EnqueueLoad(sceneID string) {
	c.Scheduler.EnqueueLoad(sceneID)
}

// Prioritize moves sceneID to the head of admission order.
func (c *Controller) Prioritize(sceneID string) {
	c.Scheduler.Prioritize(sceneID)
}

// Unload cancels sceneID's in-flight load (if any), destroys its
// installed GPU handles, clears its mutable contents, and leaves it
// UNLOADED. GPU handle release happens synchronously on the caller's
// goroutine, so Unload must be called from the render thread whenever
// Backend is a real GPU backend.
func (c *Controller) Unload(sceneID string) {
	desc := c.Store.Get(sceneID)
	if desc == nil {
		return
	}
	c.Scheduler.Unload(sceneID)

	desc.Mu.Lock()
	defer desc.Mu.Unlock()
	if c.Backend != nil {
		for _, h := range desc.MeshHandles {
			if h != 0 {
				c.Backend.DestroyMesh(h)
			}
		}
	}
	desc.Reset()
}

// Retry re-admits an ERROR'd scene by resetting it to UNLOADED so the
// next admission pass (or an explicit EnqueueLoad) picks it up again.
func (c *Controller) Retry(sceneID string) {
	c.Scheduler.Retry(sceneID)
}

// Snapshot returns shared references to every registered descriptor in
// insertion (prioritization) order.
func (c *Controller) Snapshot() []*scenestore.SceneDescriptor {
	return c.Store.Snapshot()
}

// DrainUploads runs one pass of the GPU upload queue. Must be called
// once per frame from the render thread.
func (c *Controller) DrainUploads() int {
	return c.UploadQueue.Drain()
}

// Shutdown runs the ordered teardown sequence and logs its outcome.
func (c *Controller) Shutdown() error {
	coord := shutdown.New(c.Scheduler, c.Pool, c.Store, c.UploadQueue, c.Backend)
	err := coord.Run()
	if err != nil {
		logger.Warn("shutdown completed with errors", zap.Error(err))
	} else {
		logger.Info("shutdown completed cleanly")
	}
	return err
}

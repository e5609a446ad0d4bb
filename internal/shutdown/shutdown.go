// Package shutdown implements the ordered teardown sequence: stop
// admissions, cancel in-flight loads, drain the upload queue, join
// workers, and release GPU handles. Each step tolerates the previous one
// having already partially run.
package shutdown

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/internal/logger"
	"github.com/scenestream/sceneviewer/internal/scenestore"
	"github.com/scenestream/sceneviewer/internal/upload"
)

// AdmissionStopper stops the scheduler's periodic admission loop.
type AdmissionStopper interface {
	Stop()
}

// PoolCloser cancels in-flight loads and joins worker goroutines.
type PoolCloser interface {
	Close()
}

// Coordinator drives the six-step teardown sequence described by the
// pipeline's shutdown contract. It is safe to call Run only once; a
// second call is a no-op guarded by the caller, not by Coordinator
// itself, since teardown releases resources that cannot be reacquired.
type Coordinator struct {
	Scheduler   AdmissionStopper
	Pool        PoolCloser
	Store       *scenestore.Store
	UploadQueue *upload.Queue
	Backend     gpu.Backend
	DrainWait   time.Duration
}

// New returns a Coordinator with a 5 second upload-drain bound, matching
// the pipeline's documented shutdown budget.
func New(scheduler AdmissionStopper, pool PoolCloser, store *scenestore.Store, uploadQ *upload.Queue, backend gpu.Backend) *Coordinator {
	return &Coordinator{
		Scheduler:   scheduler,
		Pool:        pool,
		Store:       store,
		UploadQueue: uploadQ,
		Backend:     backend,
		DrainWait:   5 * time.Second,
	}
}

// Run executes the ordered teardown, aggregating every step's error via
// multierr so a failure at one step does not skip the rest.
func (c *Coordinator) Run() error {
	var err error

	logger.Info("shutdown: stopping admission loop")
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	logger.Info("shutdown: cancelling in-flight loads")
	for _, d := range c.Store.Snapshot() {
		d.Cancel()
	}

	logger.Info("shutdown: draining upload queue", zap.Duration("bound", c.DrainWait))
	executed, remaining := c.UploadQueue.DrainUntilEmpty(c.DrainWait)
	if remaining > 0 {
		logger.Warn("shutdown: upload queue drain timed out, dropping remaining tasks",
			zap.Int("executed", executed), zap.Int("dropped", remaining))
		err = multierr.Append(err, fmt.Errorf("shutdown: %d upload tasks dropped after drain deadline", remaining))
	}

	logger.Info("shutdown: joining loader workers")
	if c.Pool != nil {
		c.Pool.Close()
	}

	logger.Info("shutdown: releasing GPU handles")
	for _, d := range c.Store.Snapshot() {
		d.Mu.Lock()
		for _, h := range d.MeshHandles {
			if h != 0 && c.Backend != nil {
				c.Backend.DestroyMesh(h)
			}
		}
		d.Mu.Unlock()
	}

	logger.Info("shutdown: releasing renderer-owned resources")
	if c.Backend != nil {
		c.Backend.Close()
	}

	return err
}

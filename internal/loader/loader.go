// Package loader implements the fixed-size worker pool that drives each
// queued scene through manifest fetch, chunked model streaming, mesh
// parsing, and GPU upload handoff.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/internal/loaderrors"
	"github.com/scenestream/sceneviewer/internal/logger"
	"github.com/scenestream/sceneviewer/internal/meshparse"
	"github.com/scenestream/sceneviewer/internal/scenestore"
	"github.com/scenestream/sceneviewer/internal/upload"
	"github.com/scenestream/sceneviewer/internal/wire"
)

// ManifestFetcher and ModelStreamer are the transport operations the
// pool needs; internal/streamclient.Client satisfies both.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, sceneID string) (wire.SceneManifest, error)
}

type ModelStreamer interface {
	StreamModelToFile(ctx context.Context, sceneID, relPath, outPath string, sizeBytes int64, progress func(bytesSoFar, sizeBytes int64)) error
}

// Transport bundles the two operations a worker needs from the streaming client.
type Transport interface {
	ManifestFetcher
	ModelStreamer
}

// Pool is a fixed pool of workers draining a shared FIFO of scene load jobs.
type Pool struct {
	transport  Transport
	uploadQ    *upload.Queue
	stagingDir string
	backend    gpu.Backend

	jobs chan *scenestore.SceneDescriptor

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool starts workerCount goroutines waiting on an internally owned
// job queue. backend is only ever touched from inside upload tasks
// executed by the render thread, never by a worker goroutine directly.
// Call Close to stop the workers.
func NewPool(workerCount int, transport Transport, uploadQ *upload.Queue, stagingDir string, backend gpu.Backend) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		transport:  transport,
		uploadQ:    uploadQ,
		stagingDir: stagingDir,
		backend:    backend,
		jobs:       make(chan *scenestore.SceneDescriptor, 256),
		cancel:     cancel,
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return p
}

// EnqueueLoad appends desc's reference to the job queue and atomically
// marks it QUEUED. Scenes may be re-enqueued only from UNLOADED or ERROR;
// callers (the scheduler) are responsible for enforcing that.
func (p *Pool) EnqueueLoad(desc *scenestore.SceneDescriptor) {
	desc.SetState(scenestore.Queued)
	p.jobs <- desc
}

// Close stops accepting new work and waits for in-flight workers to
// observe cancellation and return.
func (p *Pool) Close() {
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for desc := range p.jobs {
		p.load(ctx, desc)
	}
	_ = id
}

// load drives one descriptor through its full LOADING lifecycle. jobID
// correlates this attempt's log lines; it has no meaning to the pool
// itself, which dequeues by descriptor reference.
func (p *Pool) load(parentCtx context.Context, desc *scenestore.SceneDescriptor) {
	if desc.State() == scenestore.Unloaded {
		// Unloaded since enqueue; skip claiming it.
		return
	}
	jobID := uuid.NewString()
	desc.SetState(scenestore.Loading)
	loadCtx := desc.ArmCancel(parentCtx)
	log := logger.Job(jobID, desc.SceneID)

	log.Debug("load attempt started")

	manifest, err := p.transport.FetchManifest(loadCtx, desc.SceneID)
	if err != nil {
		if loaderrors.IsCancelled(err) {
			desc.SetState(scenestore.Unloaded)
			return
		}
		log.Warn("manifest fetch failed", zap.Error(err))
		desc.SetState(scenestore.Error)
		return
	}

	models := make([]*scenestore.ModelProgress, len(manifest.Models))
	for i, m := range manifest.Models {
		models[i] = &scenestore.ModelProgress{Name: m.Name, RelPath: m.RelPath, SizeBytes: m.SizeBytes}
	}
	desc.Mu.Lock()
	desc.AdoptManifest(models)
	desc.Thumbnail = manifest.Thumbnail
	desc.Mu.Unlock()

	for i, mp := range models {
		desc.SetCurrentModelIndex(i)

		select {
		case <-loadCtx.Done():
			desc.SetState(scenestore.Unloaded)
			return
		default:
		}

		outPath := filepath.Join(p.stagingDir, desc.SceneID, mp.RelPath)
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			log.Warn("failed to create staging directory", zap.Error(err))
			desc.SetState(scenestore.Error)
			return
		}

		err := p.transport.StreamModelToFile(loadCtx, desc.SceneID, mp.RelPath, outPath, mp.SizeBytes,
			func(bytesSoFar, _ int64) { mp.BytesReceived.Store(bytesSoFar) })
		if err != nil {
			if loaderrors.IsCancelled(err) {
				desc.SetState(scenestore.Unloaded)
				return
			}
			log.Warn("model stream failed", zap.String("rel_path", mp.RelPath), zap.Error(err))
			desc.SetState(scenestore.Error)
			return
		}

		result, err := meshparse.ParseFile(outPath)
		if err != nil {
			log.Warn("mesh parse failed", zap.String("rel_path", mp.RelPath), zap.Error(err))
			desc.SetState(scenestore.Error)
			return
		}

		p.enqueueUpload(desc, i, result)

		mp.BytesReceived.Store(mp.SizeBytes)
		mp.Parsed = true
	}

	desc.SetState(scenestore.Loaded)
}

// enqueueUpload moves the parsed mesh into an upload task that installs
// the resulting handle and transform under desc's lock on the render
// thread, tolerating a descriptor unloaded in the meantime.
func (p *Pool) enqueueUpload(desc *scenestore.SceneDescriptor, index int, result meshparse.Result) {
	ref := desc.WeakRef()
	mesh := result.Mesh
	transform := result.Transform
	bounds := result.Bounds

	backend := p.backend
	p.uploadQ.Push(func() {
		d, ok := ref.Get()
		if !ok {
			return
		}
		handle, err := backend.UploadMesh(mesh)
		if err != nil {
			logger.Scene(d.SceneID).Warn("gpu upload failed", zap.Int("model_index", index), zap.Error(err))
			return
		}

		d.Mu.Lock()
		defer d.Mu.Unlock()
		if index >= len(d.MeshHandles) {
			// The descriptor adopted a different manifest since this
			// task was enqueued; drop the stale upload.
			backend.DestroyMesh(handle)
			return
		}
		d.MeshHandles[index] = handle
		d.ModelTransforms[index] = transform
		d.ModelBounds[index] = scenestore.ModelBounds{Center: bounds.Center, Radius: bounds.Radius}
	})
}


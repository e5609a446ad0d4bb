package gpu

import "sync"

// NullBackend is an in-memory Backend that performs no GL calls. It lets
// the scheduler, loader, and upload queue be exercised in tests without a
// graphics context.
type NullBackend struct {
	mu     sync.Mutex
	live   map[MeshHandle]int
	next   MeshHandle
	uploads int
}

// NewNullBackend returns a ready-to-use NullBackend.
func NewNullBackend() *NullBackend {
	return &NullBackend{live: make(map[MeshHandle]int), next: 1}
}

// UploadMesh records the mesh's vertex count and returns a fresh handle.
func (b *NullBackend) UploadMesh(mesh MeshData) (MeshHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := b.next
	b.next++
	b.live[handle] = len(mesh.Positions) / 3
	b.uploads++
	return handle, nil
}

// DestroyMesh forgets handle. Destroying an unknown or zero handle is a no-op.
func (b *NullBackend) DestroyMesh(handle MeshHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, handle)
}

// Close releases every tracked handle.
func (b *NullBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live = make(map[MeshHandle]int)
}

// LiveCount returns the number of handles currently uploaded and not destroyed.
func (b *NullBackend) LiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// UploadCount returns the total number of UploadMesh calls made, including
// meshes since destroyed.
func (b *NullBackend) UploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

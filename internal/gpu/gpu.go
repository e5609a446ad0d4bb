// Package gpu abstracts the render thread's mesh upload surface behind a
// small capability interface, so the loader pipeline can hand off parsed
// geometry without depending on a concrete graphics API.
package gpu

// MeshHandle is an opaque GPU resource identifier. The zero value means
// "not yet uploaded, or already released".
type MeshHandle uint32

// MeshData is the CPU-side geometry produced by the mesh parser and
// consumed by an upload task on the render thread.
type MeshData struct {
	// Positions is a flat sequence of (x, y, z) triples in model space.
	Positions []float32
	// Indices are triangle-list vertex indices into Positions.
	Indices []uint32
}

// Backend uploads and releases GPU meshes. Every method must be called
// from the render thread that owns the GPU context; the loader pipeline
// only ever touches a Backend through the upload handoff queue.
type Backend interface {
	// UploadMesh copies mesh into GPU-resident buffers and returns a
	// handle identifying them. Ownership of mesh's CPU buffers passes to
	// the caller; UploadMesh does not retain them.
	UploadMesh(mesh MeshData) (MeshHandle, error)
	// DestroyMesh releases the buffers behind handle. Destroying the
	// zero handle is a no-op.
	DestroyMesh(handle MeshHandle)
	// Close tears down the backend. No handle obtained from this backend
	// is valid after Close returns.
	Close()
}

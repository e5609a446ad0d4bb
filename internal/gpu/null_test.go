package gpu

import "testing"

func TestNullBackendUploadDestroy(t *testing.T) {
	b := NewNullBackend()

	h1, err := b.UploadMesh(MeshData{Positions: make([]float32, 9), Indices: []uint32{0, 1, 2}})
	if err != nil {
		t.Fatalf("UploadMesh: %v", err)
	}
	if h1 == 0 {
		t.Fatal("expected non-zero handle")
	}

	h2, err := b.UploadMesh(MeshData{Positions: make([]float32, 9), Indices: []uint32{0, 1, 2}})
	if err != nil {
		t.Fatalf("UploadMesh: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected distinct handles")
	}
	if got := b.LiveCount(); got != 2 {
		t.Errorf("expected 2 live meshes, got %d", got)
	}

	b.DestroyMesh(h1)
	if got := b.LiveCount(); got != 1 {
		t.Errorf("expected 1 live mesh after destroy, got %d", got)
	}
	if got := b.UploadCount(); got != 2 {
		t.Errorf("expected upload count to stay 2, got %d", got)
	}

	b.DestroyMesh(0) // no-op, must not panic

	b.Close()
	if got := b.LiveCount(); got != 0 {
		t.Errorf("expected 0 live meshes after close, got %d", got)
	}
}

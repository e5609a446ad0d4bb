package streamclient

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scenestream/sceneviewer/internal/contentservice"
	"github.com/scenestream/sceneviewer/internal/loaderrors"
)

func startServer(t *testing.T, mediaRoot string, chunkSize int, chunkDelay time.Duration) string {
	t.Helper()
	srv := contentservice.New(mediaRoot, chunkSize, chunkDelay)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() { srv.Close() })
	return ln.Addr().String()
}

func TestFetchManifestHappyPath(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sA")
	os.MkdirAll(sceneDir, 0755)
	os.WriteFile(filepath.Join(sceneDir, "m1.obj"), []byte("v 0 0 0\n"), 0644)

	addr := startServer(t, mediaRoot, 1024, 0)
	client := New(addr)

	manifest, err := client.FetchManifest(context.Background(), "sA")
	if err != nil {
		t.Fatalf("FetchManifest: %v", err)
	}
	if len(manifest.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(manifest.Models))
	}
}

func TestFetchManifestNotFound(t *testing.T) {
	mediaRoot := t.TempDir()
	addr := startServer(t, mediaRoot, 1024, 0)
	client := New(addr)

	_, err := client.FetchManifest(context.Background(), "missing")
	if loaderrors.ClassifyOf(err) != loaderrors.KindNotFound {
		t.Errorf("expected KindNotFound, got %v (%v)", loaderrors.ClassifyOf(err), err)
	}
}

func TestStreamModelToFileHappyPath(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sA")
	os.MkdirAll(sceneDir, 0755)
	content := make([]byte, 300*1024)
	for i := range content {
		content[i] = byte(i)
	}
	os.WriteFile(filepath.Join(sceneDir, "m1.obj"), content, 0644)

	addr := startServer(t, mediaRoot, 64*1024, 0)
	client := New(addr)

	outPath := filepath.Join(t.TempDir(), "m1.obj")
	var lastReported int64
	err := client.StreamModelToFile(context.Background(), "sA", "m1.obj", outPath, int64(len(content)), func(bytesSoFar, sizeBytes int64) {
		if bytesSoFar < lastReported {
			t.Errorf("progress went backwards: %d < %d", bytesSoFar, lastReported)
		}
		if bytesSoFar > sizeBytes {
			t.Errorf("progress exceeded size: %d > %d", bytesSoFar, sizeBytes)
		}
		lastReported = bytesSoFar
	})
	if err != nil {
		t.Fatalf("StreamModelToFile: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading staged file: %v", err)
	}
	if len(got) != len(content) {
		t.Fatalf("expected %d bytes, got %d", len(content), len(got))
	}
	if lastReported != int64(len(content)) {
		t.Errorf("expected final progress %d, got %d", len(content), lastReported)
	}
}

func TestStreamModelToFileZeroByteModel(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sA")
	os.MkdirAll(sceneDir, 0755)
	os.WriteFile(filepath.Join(sceneDir, "empty.obj"), nil, 0644)

	addr := startServer(t, mediaRoot, 1024, 0)
	client := New(addr)

	outPath := filepath.Join(t.TempDir(), "empty.obj")
	err := client.StreamModelToFile(context.Background(), "sA", "empty.obj", outPath, 0, nil)
	if err != nil {
		t.Fatalf("StreamModelToFile: %v", err)
	}
	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat staged file: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty staged file, got %d bytes", info.Size())
	}
}

func TestStreamModelToFileNotFoundLeavesNoFile(t *testing.T) {
	mediaRoot := t.TempDir()
	os.MkdirAll(filepath.Join(mediaRoot, "sA"), 0755)
	addr := startServer(t, mediaRoot, 1024, 0)
	client := New(addr)

	outPath := filepath.Join(t.TempDir(), "missing.obj")
	err := client.StreamModelToFile(context.Background(), "sA", "missing.obj", outPath, 0, nil)
	if loaderrors.ClassifyOf(err) != loaderrors.KindNotFound {
		t.Errorf("expected KindNotFound, got %v (%v)", loaderrors.ClassifyOf(err), err)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("expected no partial file to be left behind")
	}
}

func TestStreamModelToFileCancellationDeletesPartial(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sBig")
	os.MkdirAll(sceneDir, 0755)
	big := make([]byte, 2*1024*1024)
	os.WriteFile(filepath.Join(sceneDir, "big.obj"), big, 0644)

	addr := startServer(t, mediaRoot, 4096, 5*time.Millisecond)
	client := New(addr)

	outPath := filepath.Join(t.TempDir(), "big.obj")
	ctx, cancel := context.WithCancel(context.Background())

	var canceled bool
	err := client.StreamModelToFile(ctx, "sBig", "big.obj", outPath, int64(len(big)), func(bytesSoFar, sizeBytes int64) {
		if !canceled && bytesSoFar > 0 {
			canceled = true
			cancel()
		}
	})
	if loaderrors.ClassifyOf(err) != loaderrors.KindCancelled {
		t.Errorf("expected KindCancelled, got %v (%v)", loaderrors.ClassifyOf(err), err)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("expected partial staged file to be removed on cancellation")
	}
}

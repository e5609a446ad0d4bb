package contentservice

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scenestream/sceneviewer/internal/wire"
)

func startTestServer(t *testing.T, mediaRoot string) string {
	t.Helper()
	srv := New(mediaRoot, 64*1024, 0)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return ln.Addr().String()
}

func TestGetSceneManifestHappyPath(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sA")
	if err := os.MkdirAll(sceneDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sceneDir, "m1.obj"), []byte("v 0 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	addr := startTestServer(t, mediaRoot)

	rawConn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer rawConn.Close()
	conn := wire.NewConn(rawConn)

	if err := conn.WriteSceneRequest(wire.SceneRequest{SceneID: "sA"}); err != nil {
		t.Fatalf("WriteSceneRequest: %v", err)
	}
	manifest, err := conn.ReadSceneManifest()
	if err != nil {
		t.Fatalf("ReadSceneManifest: %v", err)
	}
	if !manifest.Status.OK() {
		t.Fatalf("expected OK status, got %+v", manifest.Status)
	}
	if len(manifest.Models) != 1 || manifest.Models[0].RelPath != "m1.obj" {
		t.Errorf("unexpected models: %+v", manifest.Models)
	}
}

func TestGetSceneManifestMissingScene(t *testing.T) {
	mediaRoot := t.TempDir()
	addr := startTestServer(t, mediaRoot)

	rawConn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer rawConn.Close()
	conn := wire.NewConn(rawConn)

	if err := conn.WriteSceneRequest(wire.SceneRequest{SceneID: "missing"}); err != nil {
		t.Fatalf("WriteSceneRequest: %v", err)
	}
	manifest, err := conn.ReadSceneManifest()
	if err != nil {
		t.Fatalf("ReadSceneManifest: %v", err)
	}
	if manifest.Status.Code != wire.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %+v", manifest.Status)
	}
}

func TestStreamModelHappyPath(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sA")
	if err := os.MkdirAll(sceneDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := make([]byte, 300)
	for i := range content {
		content[i] = byte(i)
	}
	if err := os.WriteFile(filepath.Join(sceneDir, "m1.obj"), content, 0644); err != nil {
		t.Fatal(err)
	}

	srv := New(mediaRoot, 64, 0)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	rawConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer rawConn.Close()
	conn := wire.NewConn(rawConn)

	if err := conn.WriteModelRequest(wire.ModelRequest{SceneID: "sA", RelPath: "m1.obj"}); err != nil {
		t.Fatalf("WriteModelRequest: %v", err)
	}

	var received []byte
	var gotLast bool
	for i := 0; i < 100; i++ {
		chunk, status, isStatus, err := conn.ReadStreamFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("ReadStreamFrame: %v", err)
		}
		if isStatus {
			if !status.OK() {
				t.Fatalf("expected terminal OK, got %+v", status)
			}
			break
		}
		received = append(received, chunk.Data...)
		if chunk.Last {
			gotLast = true
		}
	}

	if !gotLast {
		t.Error("expected a terminal chunk with Last=true")
	}
	if len(received) != len(content) {
		t.Fatalf("expected %d bytes, got %d", len(content), len(received))
	}
	for i := range content {
		if received[i] != content[i] {
			t.Fatalf("content mismatch at byte %d", i)
		}
	}
}

func TestStreamModelNotFound(t *testing.T) {
	mediaRoot := t.TempDir()
	addr := startTestServer(t, mediaRoot)

	rawConn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer rawConn.Close()
	conn := wire.NewConn(rawConn)

	if err := conn.WriteModelRequest(wire.ModelRequest{SceneID: "sA", RelPath: "missing.obj"}); err != nil {
		t.Fatalf("WriteModelRequest: %v", err)
	}

	_, status, isStatus, err := conn.ReadStreamFrame()
	if err != nil {
		t.Fatalf("ReadStreamFrame: %v", err)
	}
	if !isStatus || status.Code != wire.CodeNotFound {
		t.Errorf("expected terminal NOT_FOUND, got isStatus=%v status=%+v", isStatus, status)
	}
}

func TestNewPreservesChunkDelay(t *testing.T) {
	mediaRoot := t.TempDir()
	sceneDir := filepath.Join(mediaRoot, "sA")
	os.MkdirAll(sceneDir, 0755)
	os.WriteFile(filepath.Join(sceneDir, "m1.obj"), []byte("small"), 0644)

	srv := New(mediaRoot, 1024, time.Millisecond)
	if srv.ChunkDelay != time.Millisecond {
		t.Errorf("expected chunk delay preserved, got %v", srv.ChunkDelay)
	}
}

// Package contentservice implements the server side of the scene
// streaming protocol: manifest enumeration and chunked model streaming
// out of a media root directory.
package contentservice

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/logger"
	"github.com/scenestream/sceneviewer/internal/wire"
)

// modelExtensions marks the file extensions the manifest enumerates as models.
var modelExtensions = map[string]bool{
	".obj": true,
}

// thumbnailCandidates are checked in order; the first match is embedded.
var thumbnailCandidates = []string{"thumbnail.png", "thumbnail.jpg", "thumbnail.jpeg"}

// Server publishes scene manifests and streams model files out of MediaRoot.
type Server struct {
	MediaRoot  string
	ChunkSize  int
	ChunkDelay time.Duration
	listener   net.Listener
}

// New constructs a Server. chunkSize and chunkDelay come straight from
// the resolved ServerConfig.
func New(mediaRoot string, chunkSize int, chunkDelay time.Duration) *Server {
	return &Server{MediaRoot: mediaRoot, ChunkSize: chunkSize, ChunkDelay: chunkDelay}
}

// ListenAndServe binds addr and serves connections until Close is
// called or Accept fails permanently. It returns nil only after a clean
// Close.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}

	logger.Info("sceneserver listening",
		zap.String("addr", addr),
		zap.String("media_root", s.MediaRoot),
		zap.Int("chunk_size", s.ChunkSize),
		zap.Duration("chunk_delay", s.ChunkDelay),
	)

	return s.Serve(ln)
}

// Serve accepts and handles connections on an already-bound listener
// until Close is called or Accept fails permanently.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(rawConn net.Conn) {
	defer rawConn.Close()
	conn := wire.NewConn(rawConn)

	// Every connection carries exactly one request in this protocol:
	// either a manifest lookup or a model stream, distinguished by
	// which request message the client sends first.
	kind, sceneReq, modelReq, err := conn.ReadRequest()
	if err != nil {
		if err != io.EOF {
			logger.Warn("failed to read request", zap.Error(err))
		}
		return
	}

	switch kind {
	case wire.RequestStreamModel:
		s.handleStreamModel(conn, modelReq)
	case wire.RequestGetSceneManifest:
		s.handleGetSceneManifest(conn, sceneReq)
	}
}

func (s *Server) handleGetSceneManifest(conn *wire.Conn, req wire.SceneRequest) {
	manifest, err := s.buildManifest(req.SceneID)
	if err != nil {
		logger.Warn("scene not found", zap.String("scene_id", req.SceneID), zap.Error(err))
		_ = conn.WriteSceneManifest(wire.SceneManifest{Status: wire.Status{Code: wire.CodeNotFound, Message: err.Error()}})
		return
	}
	if err := conn.WriteSceneManifest(manifest); err != nil {
		logger.Warn("failed to write manifest", zap.String("scene_id", req.SceneID), zap.Error(err))
	}
}

func (s *Server) buildManifest(sceneID string) (wire.SceneManifest, error) {
	sceneDir := filepath.Join(s.MediaRoot, sceneID)
	info, err := os.Stat(sceneDir)
	if err != nil || !info.IsDir() {
		return wire.SceneManifest{}, fmt.Errorf("scene %q not found", sceneID)
	}

	entries, err := os.ReadDir(sceneDir)
	if err != nil {
		return wire.SceneManifest{}, fmt.Errorf("reading scene dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var models []wire.ModelManifestEntry
	for _, e := range entries {
		if e.IsDir() || !modelExtensions[filepath.Ext(e.Name())] {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		models = append(models, wire.ModelManifestEntry{
			Name:      e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))],
			RelPath:   e.Name(),
			SizeBytes: fi.Size(),
		})
	}

	thumbnail, _ := s.thumbnail(sceneID)
	return wire.SceneManifest{Status: wire.StatusOK, SceneID: sceneID, Models: models, Thumbnail: thumbnail}, nil
}

// thumbnail returns the raw bytes of a scene's thumbnail file, if any of
// thumbnailCandidates exists in its directory.
func (s *Server) thumbnail(sceneID string) ([]byte, bool) {
	sceneDir := filepath.Join(s.MediaRoot, sceneID)
	for _, name := range thumbnailCandidates {
		data, err := os.ReadFile(filepath.Join(sceneDir, name))
		if err == nil {
			return data, true
		}
	}
	return nil, false
}

func (s *Server) handleStreamModel(conn *wire.Conn, req wire.ModelRequest) {
	path := filepath.Join(s.MediaRoot, req.SceneID, req.RelPath)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		_ = conn.WriteStatus(wire.Status{Code: wire.CodeNotFound, Message: "model not found"})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		_ = conn.WriteStatus(wire.Status{Code: wire.CodeInternal, Message: "failed to open model file"})
		return
	}
	defer f.Close()

	buf := make([]byte, s.ChunkSize)
	var offset uint64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			chunk := wire.Chunk{Data: append([]byte(nil), buf[:n]...), Offset: offset}
			if err := conn.WriteChunk(chunk); err != nil {
				logger.Debug("client disconnected mid-stream", zap.String("scene_id", req.SceneID), zap.String("rel_path", req.RelPath))
				return
			}
			offset += uint64(n)
			if s.ChunkDelay > 0 {
				time.Sleep(s.ChunkDelay)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = conn.WriteStatus(wire.Status{Code: wire.CodeInternal, Message: readErr.Error()})
			return
		}
	}

	if err := conn.WriteChunk(wire.Chunk{Offset: offset, Last: true}); err != nil {
		return
	}
	_ = conn.WriteStatus(wire.StatusOK)
}

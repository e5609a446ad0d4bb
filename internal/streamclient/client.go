// Package streamclient implements the loader-facing transport
// operations: fetching a scene manifest and streaming one model's bytes
// to a local staging file with cancellation support.
package streamclient

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/scenestream/sceneviewer/internal/loaderrors"
	"github.com/scenestream/sceneviewer/internal/wire"
)

// ProgressFunc reports bytes received so far and the model's declared
// total size. Invocations are non-decreasing in bytesSoFar and never
// exceed sizeBytes. It is called only from the streaming goroutine and
// must be cheap, since it executes inline with I/O.
type ProgressFunc func(bytesSoFar, sizeBytes int64)

// Client dials the content service for one request at a time. The
// protocol is one request per connection, so Client holds no persistent
// connection state beyond the server address.
type Client struct {
	ServerAddr string
}

// New returns a Client dialing serverAddr for each request.
func New(serverAddr string) *Client {
	return &Client{ServerAddr: serverAddr}
}

// FetchManifest synchronously retrieves a scene's manifest. Errors are
// reported without partial state: on any failure the returned
// wire.SceneManifest is the zero value.
func (c *Client) FetchManifest(ctx context.Context, sceneID string) (wire.SceneManifest, error) {
	rawConn, err := dial(ctx, c.ServerAddr)
	if err != nil {
		return wire.SceneManifest{}, loaderrors.Transport(err)
	}
	defer rawConn.Close()

	conn := wire.NewConn(rawConn)
	if err := conn.WriteSceneRequest(wire.SceneRequest{SceneID: sceneID}); err != nil {
		return wire.SceneManifest{}, loaderrors.Transport(err)
	}

	manifest, err := conn.ReadSceneManifest()
	if err != nil {
		return wire.SceneManifest{}, loaderrors.Transport(err)
	}
	if manifest.Status.Code == wire.CodeNotFound {
		return wire.SceneManifest{}, loaderrors.NotFound(fmt.Errorf("%s", manifest.Status.Message))
	}
	if manifest.Status.Code == wire.CodeInternal {
		return wire.SceneManifest{}, loaderrors.Internal(fmt.Errorf("%s", manifest.Status.Message))
	}
	if !manifest.Status.OK() {
		return wire.SceneManifest{}, loaderrors.Transport(fmt.Errorf("%s", manifest.Status.Message))
	}
	return manifest, nil
}

// StreamModelToFile streams one model's bytes into a freshly
// truncate-opened file at outPath, invoking progress after every
// successful write. It polls ctx between chunk reads; on cancellation it
// forwards cancellation to the transport, closes the file, and deletes
// the partial output. On any transport error the partial output is
// likewise deleted.
func (c *Client) StreamModelToFile(ctx context.Context, sceneID, relPath, outPath string, sizeBytes int64, progress func(bytesSoFar, sizeBytes int64)) error {
	rawConn, err := dial(ctx, c.ServerAddr)
	if err != nil {
		return loaderrors.Transport(err)
	}
	defer rawConn.Close()

	// Forwarding cancellation to the transport: closing the connection
	// unblocks any in-flight read/write immediately.
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			rawConn.Close()
		case <-stopWatch:
		}
	}()

	conn := wire.NewConn(rawConn)
	if err := conn.WriteModelRequest(wire.ModelRequest{SceneID: sceneID, RelPath: relPath}); err != nil {
		return classifyStreamErr(ctx, err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return loaderrors.Transport(fmt.Errorf("creating %s: %w", outPath, err))
	}

	var bytesSoFar int64
	for {
		select {
		case <-ctx.Done():
			f.Close()
			os.Remove(outPath)
			return loaderrors.Cancelled
		default:
		}

		chunk, status, isStatus, err := conn.ReadStreamFrame()
		if err != nil {
			f.Close()
			os.Remove(outPath)
			return classifyStreamErr(ctx, err)
		}
		if isStatus {
			if status.Code == wire.CodeNotFound {
				f.Close()
				os.Remove(outPath)
				return loaderrors.NotFound(fmt.Errorf("%s", status.Message))
			}
			if status.Code == wire.CodeCancelled {
				f.Close()
				os.Remove(outPath)
				return loaderrors.Cancelled
			}
			if status.Code == wire.CodeInternal {
				f.Close()
				os.Remove(outPath)
				return loaderrors.Internal(fmt.Errorf("%s", status.Message))
			}
			if !status.OK() {
				f.Close()
				os.Remove(outPath)
				return loaderrors.Transport(fmt.Errorf("%s", status.Message))
			}
			// A bare terminal OK status with no preceding Last chunk
			// (e.g. a zero-byte model) still needs to finalize below.
			break
		}

		if len(chunk.Data) > 0 {
			if _, err := f.Write(chunk.Data); err != nil {
				f.Close()
				os.Remove(outPath)
				return loaderrors.Transport(fmt.Errorf("writing %s: %w", outPath, err))
			}
			bytesSoFar += int64(len(chunk.Data))
			if progress != nil {
				progress(bytesSoFar, sizeBytes)
			}
		}
		if chunk.Last {
			break
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(outPath)
		return loaderrors.Transport(fmt.Errorf("flushing %s: %w", outPath, err))
	}
	if err := f.Close(); err != nil {
		return loaderrors.Transport(err)
	}
	return nil
}

func classifyStreamErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return loaderrors.Cancelled
	}
	return loaderrors.Transport(err)
}

func dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

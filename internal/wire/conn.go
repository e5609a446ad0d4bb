package wire

import (
	"fmt"
	"net"
	"sync"
)

// Conn wraps a net.Conn with the message framing shared by
// sceneserver and sceneviewer. Writes are serialized with a mutex the
// same way the project's raw-socket client guards its connection; reads
// are not serialized because each side of this protocol only ever reads
// from one goroutine at a time.
type Conn struct {
	conn net.Conn
	mu   sync.Mutex
}

// NewConn wraps an established connection.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) writeFrame(kind frameKind, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeFrame(c.conn, kind, payload)
}

// RequestKind distinguishes which request a server connection opened with.
type RequestKind int

const (
	RequestUnknown RequestKind = iota
	RequestGetSceneManifest
	RequestStreamModel
)

// ReadRequest reads the single opening request frame from a client
// connection and reports which RPC it invokes. Exactly one of the
// returned SceneRequest / ModelRequest is meaningful, per kind.
func (c *Conn) ReadRequest() (RequestKind, SceneRequest, ModelRequest, error) {
	kind, payload, err := readFrame(c.conn)
	if err != nil {
		return RequestUnknown, SceneRequest{}, ModelRequest{}, err
	}
	switch kind {
	case frameSceneRequest:
		m, err := decodeSceneRequest(payload)
		return RequestGetSceneManifest, m, ModelRequest{}, err
	case frameModelRequest:
		m, err := decodeModelRequest(payload)
		return RequestStreamModel, SceneRequest{}, m, err
	default:
		return RequestUnknown, SceneRequest{}, ModelRequest{}, fmt.Errorf("wire: unexpected initial frame kind %d", kind)
	}
}

// WriteSceneRequest sends a SceneRequest frame.
func (c *Conn) WriteSceneRequest(m SceneRequest) error {
	return c.writeFrame(frameSceneRequest, encodeSceneRequest(m))
}

// ReadSceneRequest reads a SceneRequest frame.
func (c *Conn) ReadSceneRequest() (SceneRequest, error) {
	kind, payload, err := readFrame(c.conn)
	if err != nil {
		return SceneRequest{}, err
	}
	if kind != frameSceneRequest {
		return SceneRequest{}, fmt.Errorf("wire: expected SceneRequest frame, got kind %d", kind)
	}
	return decodeSceneRequest(payload)
}

// WriteSceneManifest sends a SceneManifest frame.
func (c *Conn) WriteSceneManifest(m SceneManifest) error {
	return c.writeFrame(frameSceneManifest, encodeSceneManifest(m))
}

// ReadSceneManifest reads a SceneManifest frame.
func (c *Conn) ReadSceneManifest() (SceneManifest, error) {
	kind, payload, err := readFrame(c.conn)
	if err != nil {
		return SceneManifest{}, err
	}
	if kind != frameSceneManifest {
		return SceneManifest{}, fmt.Errorf("wire: expected SceneManifest frame, got kind %d", kind)
	}
	return decodeSceneManifest(payload)
}

// WriteModelRequest sends a ModelRequest frame.
func (c *Conn) WriteModelRequest(m ModelRequest) error {
	return c.writeFrame(frameModelRequest, encodeModelRequest(m))
}

// ReadModelRequest reads a ModelRequest frame.
func (c *Conn) ReadModelRequest() (ModelRequest, error) {
	kind, payload, err := readFrame(c.conn)
	if err != nil {
		return ModelRequest{}, err
	}
	if kind != frameModelRequest {
		return ModelRequest{}, fmt.Errorf("wire: expected ModelRequest frame, got kind %d", kind)
	}
	return decodeModelRequest(payload)
}

// WriteChunk sends a Chunk frame.
func (c *Conn) WriteChunk(chunk Chunk) error {
	return c.writeFrame(frameChunk, encodeChunk(chunk))
}

// WriteStatus sends a terminal Status frame, ending a model stream.
func (c *Conn) WriteStatus(s Status) error {
	return c.writeFrame(frameStatus, encodeStatus(nil, s))
}

// ReadStreamFrame reads either the next Chunk or a terminal Status frame
// from a StreamModel response, distinguishing the two for the caller.
func (c *Conn) ReadStreamFrame() (chunk Chunk, status Status, isStatus bool, err error) {
	kind, payload, err := readFrame(c.conn)
	if err != nil {
		return Chunk{}, Status{}, false, err
	}
	switch kind {
	case frameChunk:
		chunk, err = decodeChunk(payload)
		return chunk, Status{}, false, err
	case frameStatus:
		status, _, err = decodeStatus(payload, 0)
		return Chunk{}, status, true, err
	default:
		return Chunk{}, Status{}, false, fmt.Errorf("wire: unexpected frame kind %d in model stream", kind)
	}
}

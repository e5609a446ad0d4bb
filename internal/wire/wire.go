// Package wire defines the messages and binary framing exchanged between
// the content service and the streaming client. It generalizes the
// project's raw-socket, length-prefixed little-endian framing idiom to a
// small unary and server-streaming RPC pair instead of introducing a
// generated-code dependency.
package wire

// Code mirrors the small subset of gRPC's status codes this protocol
// needs. Only CodeOK shares its numeric value with grpc/codes; the other
// codes are numbered sequentially, and this package has no gRPC
// dependency.
type Code uint8

const (
	CodeOK Code = iota
	CodeNotFound
	CodeCancelled
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeCancelled:
		return "CANCELLED"
	case CodeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Status carries an RPC outcome, mirroring grpc.Status without the
// dependency.
type Status struct {
	Code    Code
	Message string
}

// OK reports whether the status represents success.
func (s Status) OK() bool { return s.Code == CodeOK }

// Error implements the error interface so a non-OK Status can be
// returned and compared like any other Go error.
func (s Status) Error() string {
	if s.OK() {
		return "OK"
	}
	return s.Code.String() + ": " + s.Message
}

// StatusOK is the canonical successful status.
var StatusOK = Status{Code: CodeOK}

// SceneRequest asks for the manifest of a named scene.
type SceneRequest struct {
	SceneID string
}

// ModelManifestEntry describes one model file within a scene manifest.
type ModelManifestEntry struct {
	Name      string
	RelPath   string
	SizeBytes int64
}

// SceneManifest is the response to GetSceneManifest. The model order is
// significant: the client preserves it as the canonical model index.
type SceneManifest struct {
	Status    Status
	SceneID   string
	Models    []ModelManifestEntry
	Thumbnail []byte
}

// ModelRequest asks to stream one model's bytes. Offset is reserved for
// future partial-range resume; the current implementation always sends 0
// and StreamModel always starts from the beginning of the file.
type ModelRequest struct {
	SceneID string
	RelPath string
	Offset  int64
}

// Chunk is one piece of a model byte stream. A stream yields chunks in
// strictly increasing Offset order; exactly one chunk has Last = true,
// and that chunk may carry zero bytes of Data.
type Chunk struct {
	Data   []byte
	Offset uint64
	Last   bool
}

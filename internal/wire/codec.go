package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameKind tags the payload that follows a frame header.
type frameKind uint8

const (
	frameSceneRequest frameKind = iota + 1
	frameSceneManifest
	frameModelRequest
	frameChunk
	frameStatus
)

// maxFrameLen bounds a single frame's payload to guard against a corrupt
// or hostile length prefix causing an unbounded allocation.
const maxFrameLen = 64 * 1024 * 1024

// writeFrame writes a [kind byte][uint32 length LE][payload] frame.
func writeFrame(w io.Writer, kind frameKind, payload []byte) error {
	header := make([]byte, 5)
	header[0] = byte(kind)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// readFrame reads one frame and returns its kind and payload.
func readFrame(r io.Reader) (frameKind, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	kind := frameKind(header[0])
	length := binary.LittleEndian.Uint32(header[1:])
	if length > maxFrameLen {
		return 0, nil, fmt.Errorf("wire: frame length %d exceeds max %d", length, maxFrameLen)
	}
	if length == 0 {
		return kind, nil, nil
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return kind, payload, nil
}

// putString appends a uint16-length-prefixed UTF-8 string.
func putString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

// takeString reads a uint16-length-prefixed UTF-8 string starting at off.
func takeString(buf []byte, off int) (string, int, error) {
	if off+2 > len(buf) {
		return "", 0, fmt.Errorf("wire: truncated string length")
	}
	n := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	if off+n > len(buf) {
		return "", 0, fmt.Errorf("wire: truncated string body")
	}
	return string(buf[off : off+n]), off + n, nil
}

func encodeSceneRequest(m SceneRequest) []byte {
	return putString(nil, m.SceneID)
}

func decodeSceneRequest(buf []byte) (SceneRequest, error) {
	sceneID, _, err := takeString(buf, 0)
	if err != nil {
		return SceneRequest{}, err
	}
	return SceneRequest{SceneID: sceneID}, nil
}

func encodeStatus(buf []byte, s Status) []byte {
	buf = append(buf, byte(s.Code))
	return putString(buf, s.Message)
}

func decodeStatus(buf []byte, off int) (Status, int, error) {
	if off+1 > len(buf) {
		return Status{}, 0, fmt.Errorf("wire: truncated status code")
	}
	code := Code(buf[off])
	off++
	msg, off, err := takeString(buf, off)
	if err != nil {
		return Status{}, 0, err
	}
	return Status{Code: code, Message: msg}, off, nil
}

func encodeSceneManifest(m SceneManifest) []byte {
	buf := encodeStatus(nil, m.Status)
	buf = putString(buf, m.SceneID)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(m.Models)))
	buf = append(buf, countBuf[:]...)
	for _, model := range m.Models {
		buf = putString(buf, model.Name)
		buf = putString(buf, model.RelPath)
		var sizeBuf [8]byte
		binary.LittleEndian.PutUint64(sizeBuf[:], uint64(model.SizeBytes))
		buf = append(buf, sizeBuf[:]...)
	}
	var thumbLenBuf [4]byte
	binary.LittleEndian.PutUint32(thumbLenBuf[:], uint32(len(m.Thumbnail)))
	buf = append(buf, thumbLenBuf[:]...)
	buf = append(buf, m.Thumbnail...)
	return buf
}

func decodeSceneManifest(buf []byte) (SceneManifest, error) {
	status, off, err := decodeStatus(buf, 0)
	if err != nil {
		return SceneManifest{}, err
	}
	sceneID, off, err := takeString(buf, off)
	if err != nil {
		return SceneManifest{}, err
	}
	if off+4 > len(buf) {
		return SceneManifest{}, fmt.Errorf("wire: truncated model count")
	}
	count := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	models := make([]ModelManifestEntry, 0, count)
	for i := 0; i < count; i++ {
		var name, relPath string
		name, off, err = takeString(buf, off)
		if err != nil {
			return SceneManifest{}, err
		}
		relPath, off, err = takeString(buf, off)
		if err != nil {
			return SceneManifest{}, err
		}
		if off+8 > len(buf) {
			return SceneManifest{}, fmt.Errorf("wire: truncated model size")
		}
		size := int64(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
		models = append(models, ModelManifestEntry{Name: name, RelPath: relPath, SizeBytes: size})
	}

	var thumbnail []byte
	if off+4 <= len(buf) {
		thumbLen := int(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		if off+thumbLen > len(buf) {
			return SceneManifest{}, fmt.Errorf("wire: truncated thumbnail")
		}
		if thumbLen > 0 {
			thumbnail = make([]byte, thumbLen)
			copy(thumbnail, buf[off:off+thumbLen])
		}
	}

	return SceneManifest{Status: status, SceneID: sceneID, Models: models, Thumbnail: thumbnail}, nil
}

func encodeModelRequest(m ModelRequest) []byte {
	buf := putString(nil, m.SceneID)
	buf = putString(buf, m.RelPath)
	var offsetBuf [8]byte
	binary.LittleEndian.PutUint64(offsetBuf[:], uint64(m.Offset))
	return append(buf, offsetBuf[:]...)
}

func decodeModelRequest(buf []byte) (ModelRequest, error) {
	sceneID, off, err := takeString(buf, 0)
	if err != nil {
		return ModelRequest{}, err
	}
	relPath, off, err := takeString(buf, off)
	if err != nil {
		return ModelRequest{}, err
	}
	// Offset is reserved for future resume support; older frames without
	// it decode as offset 0 rather than erroring.
	var offset int64
	if off+8 <= len(buf) {
		offset = int64(binary.LittleEndian.Uint64(buf[off:]))
	}
	return ModelRequest{SceneID: sceneID, RelPath: relPath, Offset: offset}, nil
}

func encodeChunk(c Chunk) []byte {
	buf := make([]byte, 0, 13+len(c.Data))
	var offsetBuf [8]byte
	binary.LittleEndian.PutUint64(offsetBuf[:], c.Offset)
	buf = append(buf, offsetBuf[:]...)
	var last byte
	if c.Last {
		last = 1
	}
	buf = append(buf, last)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(c.Data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, c.Data...)
}

func decodeChunk(buf []byte) (Chunk, error) {
	if len(buf) < 13 {
		return Chunk{}, fmt.Errorf("wire: truncated chunk header")
	}
	offset := binary.LittleEndian.Uint64(buf[0:])
	last := buf[8] != 0
	n := binary.LittleEndian.Uint32(buf[9:])
	if 13+int(n) > len(buf) {
		return Chunk{}, fmt.Errorf("wire: truncated chunk data")
	}
	data := make([]byte, n)
	copy(data, buf[13:13+n])
	return Chunk{Data: data, Offset: offset, Last: last}, nil
}

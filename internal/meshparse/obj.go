// Package meshparse parses staged model files into GPU-ready mesh
// buffers and computes their normalization transform and bounding
// sphere.
package meshparse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/internal/loaderrors"
	"github.com/scenestream/sceneviewer/pkg/math"
)

// Result bundles the parsed mesh with the normalization transform and
// bounding sphere computed from its raw geometry.
type Result struct {
	Mesh      gpu.MeshData
	Transform math.Mat4
	Bounds    Bounds
}

// Bounds is a bounding sphere in the space the transform maps into.
type Bounds struct {
	Center math.Vec3
	Radius float32
}

// ParseFile reads a Wavefront OBJ file at path and returns its mesh data
// plus the normalization transform and bounding sphere. Non-triangulated
// faces are fan-triangulated. A structurally malformed file returns a
// loaderrors ParseFailed error; a syntactically valid file with no
// vertices returns an empty mesh, which is not itself an error.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, loaderrors.ParseFailed(fmt.Errorf("opening %s: %w", path, err))
	}
	defer f.Close()

	mesh, err := parseOBJ(f)
	if err != nil {
		return Result{}, loaderrors.ParseFailed(fmt.Errorf("parsing %s: %w", path, err))
	}

	transform, bounds := normalize(mesh.Positions)
	return Result{Mesh: mesh, Transform: transform, Bounds: bounds}, nil
}

// parseOBJ implements the subset of the OBJ format the pipeline needs:
// "v x y z" vertex positions and "f" faces referencing vertex indices
// (optionally with /vt/vn suffixes, which are ignored). Faces are
// flattened the same way the reference loader does: every referenced
// vertex is duplicated into the output, so indices are simply
// sequential.
func parseOBJ(r io.Reader) (gpu.MeshData, error) {
	var vertices [][3]float32
	var positions []float32
	var indices []uint32

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return gpu.MeshData{}, fmt.Errorf("line %d: malformed vertex %q", lineNo, line)
			}
			var v [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return gpu.MeshData{}, fmt.Errorf("line %d: bad vertex component %q: %w", lineNo, fields[i+1], err)
				}
				v[i] = float32(f)
			}
			vertices = append(vertices, v)

		case "f":
			if len(fields) < 4 {
				return gpu.MeshData{}, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			faceIdx := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				vi, err := parseFaceVertexIndex(tok, len(vertices))
				if err != nil {
					return gpu.MeshData{}, fmt.Errorf("line %d: %w", lineNo, err)
				}
				faceIdx = append(faceIdx, vi)
			}
			// Fan-triangulate polygons with more than 3 vertices.
			for i := 1; i+1 < len(faceIdx); i++ {
				for _, vi := range []int{faceIdx[0], faceIdx[i], faceIdx[i+1]} {
					v := vertices[vi]
					positions = append(positions, v[0], v[1], v[2])
					indices = append(indices, uint32(len(indices)))
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return gpu.MeshData{}, fmt.Errorf("reading: %w", err)
	}

	return gpu.MeshData{Positions: positions, Indices: indices}, nil
}

// parseFaceVertexIndex parses one "f" token's vertex reference, which
// may be "v", "v/vt", "v/vt/vn", or "v//vn". OBJ indices are 1-based and
// may be negative (relative to the current vertex count).
func parseFaceVertexIndex(tok string, vertexCount int) (int, error) {
	vPart := strings.SplitN(tok, "/", 2)[0]
	n, err := strconv.Atoi(vPart)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q: %w", tok, err)
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n = vertexCount + n
	default:
		return 0, fmt.Errorf("face index 0 is invalid in OBJ")
	}
	if n < 0 || n >= vertexCount {
		return 0, fmt.Errorf("face index %q out of range (have %d vertices)", tok, vertexCount)
	}
	return n, nil
}

// normalize computes the center/extent/scale of a flat position buffer
// and returns the transform p' = scale * (p - center) along with the
// resulting bounding sphere, matching the reference client's model
// normalization. An empty buffer yields the identity transform and a
// zero-radius sphere at the origin.
func normalize(positions []float32) (math.Mat4, Bounds) {
	if len(positions) == 0 {
		return math.Identity(), Bounds{}
	}

	minV := math.Vec3{X: positions[0], Y: positions[1], Z: positions[2]}
	maxV := minV
	for i := 0; i+2 < len(positions); i += 3 {
		p := math.Vec3{X: positions[i], Y: positions[i+1], Z: positions[i+2]}
		minV = componentMin(minV, p)
		maxV = componentMax(maxV, p)
	}

	center := minV.Add(maxV).Scale(0.5)
	extent := maxV.Sub(minV)
	maxExtent := max3(extent.X, extent.Y, extent.Z)

	scale := float32(1.0)
	if maxExtent > 0 {
		scale = 1.0 / maxExtent
	}

	transform := math.Scale(scale, scale, scale).Mul(math.Translate(-center.X, -center.Y, -center.Z))
	radius := scale * maxExtent / 2

	return transform, Bounds{Center: math.Vec3{}, Radius: radius}
}

func componentMin(a, b math.Vec3) math.Vec3 {
	return math.Vec3{X: minF(a.X, b.X), Y: minF(a.Y, b.Y), Z: minF(a.Z, b.Z)}
}

func componentMax(a, b math.Vec3) math.Vec3 {
	return math.Vec3{X: maxF(a.X, b.X), Y: maxF(a.Y, b.Y), Z: maxF(a.Z, b.Z)}
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func max3(a, b, c float32) float32 {
	return maxF(a, maxF(b, c))
}

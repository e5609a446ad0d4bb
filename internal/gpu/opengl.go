package gpu

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/scenestream/sceneviewer/internal/logger"
)

// glMesh tracks the GL objects backing one uploaded mesh.
type glMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// OpenGLBackend uploads meshes into vertex array objects on the calling
// thread's current GL context. It must only be driven from the render
// thread; it performs no locking of its own around GL calls.
type OpenGLBackend struct {
	shaderProgram uint32

	mu     sync.Mutex
	meshes map[MeshHandle]glMesh
	next   MeshHandle
}

// NewOpenGLBackend initializes GL state and compiles the shared shader
// program used to draw every uploaded mesh. It must be called after the
// GL context is current on the calling thread.
func NewOpenGLBackend() (*OpenGLBackend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.08, 0.08, 0.1, 1.0)

	program, err := createShaderProgram()
	if err != nil {
		return nil, fmt.Errorf("creating shader program: %w", err)
	}

	return &OpenGLBackend{
		shaderProgram: program,
		meshes:        make(map[MeshHandle]glMesh),
		next:          1,
	}, nil
}

// UploadMesh uploads a position-and-index mesh to a new VAO/VBO/EBO triple.
func (b *OpenGLBackend) UploadMesh(mesh MeshData) (MeshHandle, error) {
	if len(mesh.Positions) == 0 || len(mesh.Indices) == 0 {
		return 0, fmt.Errorf("gpu: refusing to upload empty mesh")
	}

	var vao, vbo, ebo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Positions)*4, unsafe.Pointer(&mesh.Positions[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)

	gl.GenBuffers(1, &ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, unsafe.Pointer(&mesh.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	b.mu.Lock()
	handle := b.next
	b.next++
	b.meshes[handle] = glMesh{vao: vao, vbo: vbo, ebo: ebo, indexCount: int32(len(mesh.Indices))}
	b.mu.Unlock()

	logger.Debug("mesh uploaded",
		zap.Uint32("handle", uint32(handle)),
		zap.Int("vertices", len(mesh.Positions)/3),
		zap.Int("indices", len(mesh.Indices)),
	)
	return handle, nil
}

// DestroyMesh releases the GL objects behind handle.
func (b *OpenGLBackend) DestroyMesh(handle MeshHandle) {
	if handle == 0 {
		return
	}

	b.mu.Lock()
	m, ok := b.meshes[handle]
	if ok {
		delete(b.meshes, handle)
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteBuffers(1, &m.ebo)
}

// Draw renders the mesh at handle with the shared shader program. Callers
// hold the render thread; handle must have come from UploadMesh.
func (b *OpenGLBackend) Draw(handle MeshHandle) {
	b.mu.Lock()
	m, ok := b.meshes[handle]
	b.mu.Unlock()
	if !ok {
		return
	}

	gl.UseProgram(b.shaderProgram)
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// Close releases every outstanding mesh and the shared shader program.
func (b *OpenGLBackend) Close() {
	b.mu.Lock()
	handles := make([]MeshHandle, 0, len(b.meshes))
	for h := range b.meshes {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	for _, h := range handles {
		b.DestroyMesh(h)
	}

	if b.shaderProgram != 0 {
		gl.DeleteProgram(b.shaderProgram)
		b.shaderProgram = 0
	}
}

func createShaderProgram() (uint32, error) {
	vertexShaderSource := `
		#version 410 core

		layout (location = 0) in vec3 aPos;

		void main() {
			gl_Position = vec4(aPos, 1.0);
		}
	` + "\x00"

	fragmentShaderSource := `
		#version 410 core

		out vec4 FragColor;

		void main() {
			FragColor = vec4(0.7, 0.75, 0.8, 1.0);
		}
	` + "\x00"

	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("link failed: %s", infoLog)
	}

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("compile failed: %s", infoLog)
	}

	return shader, nil
}

// Package app implements sceneviewer's top-level client lifecycle: it
// owns the GPU backend, the window/render loop, and the controller, and
// drives one frame at a time until the window is closed.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/config"
	"github.com/scenestream/sceneviewer/internal/controller"
	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/internal/logger"
	"github.com/scenestream/sceneviewer/internal/uishell"
)

// App owns every long-lived subsystem of the client binary.
type App struct {
	cfg        *config.ClientConfig
	backend    *uishell.Backend
	gpuBackend gpu.Backend
	controller *controller.Controller
	dashboard  *uishell.Dashboard
}

// New creates the window, GL context, GPU backend, and controller, in
// that order, since each depends on the one before it existing.
func New(cfg *config.ClientConfig, stagingDir string) (*App, error) {
	backend, err := uishell.NewBackend("Scene Viewer", int32(cfg.Window.Width), int32(cfg.Window.Height), cfg.Window.VSync)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize render context: %w", err)
	}

	gpuBackend, err := gpu.NewOpenGLBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GPU backend: %w", err)
	}

	ctl := controller.New(controller.Options{
		ServerAddr:     cfg.ServerAddr,
		StagingDir:     stagingDir,
		ConcurrencyCap: cfg.Scheduler.ConcurrencyCap,
		WorkerCount:    cfg.Loader.WorkerCount,
		AdmitInterval:  cfg.Scheduler.AdmitInterval,
		Backend:        gpuBackend,
	})

	return &App{
		cfg:        cfg,
		backend:    backend,
		gpuBackend: gpuBackend,
		controller: ctl,
		dashboard:  uishell.NewDashboard(),
	}, nil
}

// Controller exposes the app's controller for callers that need to drive
// it directly, such as a fault-injection harness.
func (a *App) Controller() *controller.Controller {
	return a.controller
}

// Run starts the render loop. It returns once the window is closed.
func (a *App) Run() {
	logger.Info("sceneviewer starting render loop", zap.String("server_addr", a.cfg.ServerAddr))
	a.backend.Run(a.frame)
}

// frame runs one iteration of the render loop: drain the upload queue,
// then draw the loading dashboard over whatever scenes are in flight.
func (a *App) frame() {
	a.controller.DrainUploads()

	x, y, w, _ := a.backend.GetViewport()
	a.dashboard.Render(a.controller.Snapshot(), x, y, w)
}

// Close runs the ordered shutdown sequence and releases render resources.
func (a *App) Close() error {
	err := a.controller.Shutdown()
	logger.Info("sceneviewer shut down")
	return err
}

package uishell

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/scenestream/sceneviewer/internal/scenestore"
)

// Dashboard renders one panel per concurrently-loading (or errored) scene:
// a progress bar, the model currently streaming, and any error text.
// LOADED and UNLOADED scenes are omitted so the panel only ever shows
// scenes the user needs to watch.
type Dashboard struct{}

// NewDashboard returns a ready-to-use Dashboard. It holds no state of its
// own; every frame it reads directly from the descriptors it is given.
func NewDashboard() *Dashboard {
	return &Dashboard{}
}

// Render draws one window per QUEUED, LOADING, or ERROR descriptor in
// descs, stacked down the left edge of the viewport.
func (d *Dashboard) Render(descs []*scenestore.SceneDescriptor, viewportX, viewportY, viewportWidth float32) {
	const windowWidth = 320
	const windowHeight = 130
	const margin = 12

	y := viewportY + margin
	for _, desc := range descs {
		state := desc.State()
		if state != scenestore.Queued && state != scenestore.Loading && state != scenestore.Error {
			continue
		}

		imgui.SetNextWindowPos(imgui.NewVec2(viewportX+margin, y))
		imgui.SetNextWindowSize(imgui.NewVec2(windowWidth, windowHeight))

		flags := imgui.WindowFlagsNoResize | imgui.WindowFlagsNoMove | imgui.WindowFlagsNoCollapse
		if imgui.BeginV(desc.SceneID, nil, flags) {
			renderScenePanel(desc, state)
		}
		imgui.End()

		y += windowHeight + margin
	}
	_ = viewportWidth
}

func renderScenePanel(desc *scenestore.SceneDescriptor, state scenestore.SceneState) {
	centerText(fmt.Sprintf("Loading: %s", desc.SceneID))
	imgui.Spacing()

	desc.Mu.Lock()
	models := desc.Models
	desc.Mu.Unlock()

	if state == scenestore.Error {
		imgui.TextColored(imgui.NewVec4(1, 0.3, 0.3, 1), "Load failed")
		imgui.TextDisabled("Phase: ERROR")
		return
	}

	if len(models) == 0 {
		imgui.ProgressBarV(0, imgui.NewVec2(-1, 20), "0%")
		imgui.TextDisabled(fmt.Sprintf("Phase: %s", state))
		return
	}

	idx := desc.CurrentModelIndex()
	if idx >= len(models) {
		idx = len(models) - 1
	}
	current := models[idx]

	var progress float32
	if current.SizeBytes > 0 {
		progress = float32(current.BytesReceived.Load()) / float32(current.SizeBytes)
	} else if current.Parsed {
		progress = 1
	}

	centerText(fmt.Sprintf("%s (%d/%d)", current.Name, idx+1, len(models)))
	imgui.ProgressBarV(progress, imgui.NewVec2(-1, 20), fmt.Sprintf("%.0f%%", progress*100))
	imgui.TextDisabled(fmt.Sprintf("Phase: %s", state))
}

// centerText renders text horizontally centered in the current window.
func centerText(text string) {
	textSize := imgui.CalcTextSize(text)
	windowWidth := imgui.ContentRegionAvail().X
	cursorX := (windowWidth - textSize.X) / 2
	if cursorX > 0 {
		imgui.SetCursorPosX(imgui.CursorPosX() + cursorX)
	}
	imgui.Text(text)
}

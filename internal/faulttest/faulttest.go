// Package faulttest is an optional, self-contained harness that drives
// the streaming pipeline through the cancellation and admission-cap
// scenarios and reports whether their invariants held. It is purely
// diagnostic: nothing in the pipeline depends on this package, and it
// is only ever invoked via `sceneviewer -fault-test`.
package faulttest

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scenestream/sceneviewer/internal/config"
	"github.com/scenestream/sceneviewer/internal/contentservice"
	"github.com/scenestream/sceneviewer/internal/controller"
	"github.com/scenestream/sceneviewer/internal/gpu"
	"github.com/scenestream/sceneviewer/internal/scenestore"
)

// property is one PASS/FAIL line of the report.
type property struct {
	name   string
	passed bool
	detail string
}

// sample is one row of the cumulative-progress table, matching the
// original client's fault_test_results.txt layout.
type sample struct {
	t     float64
	got   int64
	total int64
}

// Run spins up a throwaway content server and staging directory, drives
// scenario 3 (cancellation) and scenario 4 (admission cap) against it
// using cfg's loader worker count (the concurrency cap and admission
// interval are fixed by the harness), and writes resultsPath in
// the same tab-separated format the original client wrote by hand. It
// returns a human-readable summary of which properties held.
func Run(cfg *config.ClientConfig, resultsPath string) (string, error) {
	mediaRoot, err := os.MkdirTemp("", "faulttest-media-*")
	if err != nil {
		return "", fmt.Errorf("create media root: %w", err)
	}
	defer os.RemoveAll(mediaRoot)

	stagingDir, err := os.MkdirTemp("", "faulttest-staging-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	const bigSceneID = "fault-cancel"
	bigRelPath, err := writeSyntheticModel(mediaRoot, bigSceneID, 4*1024*1024)
	if err != nil {
		return "", fmt.Errorf("write cancellation scene: %w", err)
	}

	const capSceneCount = 8
	const concurrencyCap = 3
	capSceneIDs := make([]string, capSceneCount)
	for i := range capSceneIDs {
		capSceneIDs[i] = fmt.Sprintf("fault-cap-%d", i)
		if _, err := writeSyntheticModel(mediaRoot, capSceneIDs[i], 64*1024); err != nil {
			return "", fmt.Errorf("write admission scene %d: %w", i, err)
		}
	}

	// Slow enough that the cancellation scenario can observe partial
	// progress before the transfer completes.
	srv := contentservice.New(mediaRoot, 64*1024, 20*time.Millisecond)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	ctl := controller.New(controller.Options{
		ServerAddr:     ln.Addr().String(),
		StagingDir:     stagingDir,
		ConcurrencyCap: concurrencyCap,
		WorkerCount:    cfg.Loader.WorkerCount,
		AdmitInterval:  25 * time.Millisecond,
		Backend:        gpu.NewNullBackend(),
	})
	defer ctl.Shutdown()

	var props []property
	var samples []sample
	start := time.Now()
	active := ctl
	recordSample := func() {
		var got, total int64
		for _, d := range active.Snapshot() {
			d.Mu.Lock()
			for _, m := range d.Models {
				total += m.SizeBytes
				got += m.BytesReceived.Load()
			}
			d.Mu.Unlock()
		}
		samples = append(samples, sample{t: time.Since(start).Seconds(), got: got, total: total})
	}

	props = append(props, runCancellationScenario(ctl, bigSceneID, bigRelPath, stagingDir, recordSample)...)

	// The admission loop re-admits the cancellation scene once it is
	// UNLOADED, so the admission-cap scenario gets a fresh controller in
	// which that scene cannot hold a slot under the cap.
	active = controller.New(controller.Options{
		ServerAddr:     ln.Addr().String(),
		StagingDir:     stagingDir,
		ConcurrencyCap: concurrencyCap,
		WorkerCount:    cfg.Loader.WorkerCount,
		AdmitInterval:  25 * time.Millisecond,
		Backend:        gpu.NewNullBackend(),
	})
	defer active.Shutdown()
	props = append(props, runAdmissionCapScenario(active, capSceneIDs, concurrencyCap, recordSample)...)

	if err := writeResults(resultsPath, samples, props); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}

	return formatReport(props), nil
}

// runCancellationScenario implements spec scenario 3: register a scene
// with one large model, enqueue its load, and unload it mid-transfer.
// It checks that the descriptor resolves to UNLOADED (not ERROR) and
// that its staging file is removed.
func runCancellationScenario(ctl *controller.Controller, sceneID, relPath, stagingDir string, sample func()) []property {
	var props []property

	desc := ctl.Register(sceneID)
	ctl.EnqueueLoad(sceneID)

	progressed := waitUntil(5*time.Second, func() bool {
		sample()
		return firstModelBytes(desc) > 0
	})
	props = append(props, property{
		name:   "cancellation: transfer begins before unload",
		passed: progressed,
		detail: fmt.Sprintf("bytes_received > 0 observed: %v", progressed),
	})

	ctl.Unload(sceneID)

	resolved := waitUntil(2*time.Second, func() bool {
		sample()
		return desc.State() == scenestore.Unloaded
	})
	props = append(props, property{
		name:   "cancellation: state resolves to UNLOADED not ERROR",
		passed: resolved && desc.State() == scenestore.Unloaded,
		detail: fmt.Sprintf("final state: %s", desc.State()),
	})

	stagedPath := filepath.Join(stagingDir, sceneID, relPath)
	removed := waitUntil(2*time.Second, func() bool {
		_, statErr := os.Stat(stagedPath)
		return os.IsNotExist(statErr)
	})
	props = append(props, property{
		name:   "cancellation: partial staging file removed",
		passed: removed,
		detail: stagedPath,
	})

	return props
}

// runAdmissionCapScenario implements spec scenario 4: register more
// scenes than the concurrency cap, leave them UNLOADED, and let the
// periodic admission loop pull them in. At every sample point the number
// of LOADING descriptors must never exceed the cap. Because a LOADED
// descriptor permanently occupies admission budget until an explicit
// Unload (scheduler.admit only counts LOADING/LOADED against the cap,
// never reclaiming a LOADED slot on its own), the scheduler settles into
// admitting exactly `cap` of the registered scenes to LOADED and leaving
// the rest UNLOADED forever. It never drains the whole set the way an
// unbounded admission loop would.
func runAdmissionCapScenario(ctl *controller.Controller, sceneIDs []string, cap int, sample func()) []property {
	var props []property

	descs := make([]*scenestore.SceneDescriptor, len(sceneIDs))
	for i, id := range sceneIDs {
		descs[i] = ctl.Register(id)
	}

	capRespected := true
	maxObserved := 0
	settled := false
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sample()
		loading := 0
		loaded := loadedCount(descs)
		for _, d := range descs {
			if d.State() == scenestore.Loading {
				loading++
			}
		}
		if loading > maxObserved {
			maxObserved = loading
		}
		if loading > cap {
			capRespected = false
		}
		if loading == 0 && loaded == cap {
			settled = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	loaded := loadedCount(descs)

	props = append(props, property{
		name:   "admission cap: concurrent LOADING never exceeds cap",
		passed: capRespected,
		detail: fmt.Sprintf("cap=%d, max observed concurrently LOADING=%d", cap, maxObserved),
	})
	props = append(props, property{
		name:   "admission cap: exactly cap scenes settle into LOADED, the rest stay UNLOADED",
		passed: settled && loaded == cap,
		detail: fmt.Sprintf("cap=%d, %d/%d scenes reached LOADED", cap, loaded, len(descs)),
	})

	return props
}

func loadedCount(descs []*scenestore.SceneDescriptor) int {
	n := 0
	for _, d := range descs {
		if d.State() == scenestore.Loaded {
			n++
		}
	}
	return n
}

func firstModelBytes(desc *scenestore.SceneDescriptor) int64 {
	desc.Mu.Lock()
	defer desc.Mu.Unlock()
	if len(desc.Models) == 0 {
		return 0
	}
	return desc.Models[0].BytesReceived.Load()
}

func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// writeSyntheticModel writes a triangle-soup .obj large enough to exceed
// sizeBytes and returns its relative path within the scene directory.
func writeSyntheticModel(mediaRoot, sceneID string, sizeBytes int) (string, error) {
	sceneDir := filepath.Join(mediaRoot, sceneID)
	if err := os.MkdirAll(sceneDir, 0755); err != nil {
		return "", err
	}
	const relPath = "model.obj"
	f, err := os.Create(filepath.Join(sceneDir, relPath))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("v 0 0 0\nv 1 0 0\nv 0 1 0\n")
	written := b.Len()
	for written < sizeBytes {
		line := "v 0.1 0.2 0.3\n"
		b.WriteString(line)
		written += len(line)
	}
	b.WriteString("f 1 2 3\n")
	if _, err := f.WriteString(b.String()); err != nil {
		return "", err
	}
	return relPath, nil
}

func writeResults(path string, samples []sample, props []property) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "Fault Test Results")
	fmt.Fprintln(f, "time_s\tbytes_received\ttotal_bytes")
	for _, s := range samples {
		fmt.Fprintf(f, "%.3f\t%d\t%d\n", s.t, s.got, s.total)
	}
	fmt.Fprintln(f)
	fmt.Fprintln(f, "Properties")
	for _, p := range props {
		fmt.Fprintln(f, formatProperty(p))
	}
	return nil
}

func formatProperty(p property) string {
	status := "PASS"
	if !p.passed {
		status = "FAIL"
	}
	return fmt.Sprintf("%s\t%s\t%s", status, p.name, p.detail)
}

func formatReport(props []property) string {
	var b strings.Builder
	for _, p := range props {
		b.WriteString(formatProperty(p))
		b.WriteString("\n")
	}
	return b.String()
}

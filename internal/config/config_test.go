package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()

	if cfg.MediaRoot != "Media" {
		t.Errorf("expected media root 'Media', got %s", cfg.MediaRoot)
	}
	if cfg.Port != 50051 {
		t.Errorf("expected port 50051, got %d", cfg.Port)
	}
	if cfg.ChunkSize != 64*1024 {
		t.Errorf("expected chunk size 65536, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkDelayMs != 30 {
		t.Errorf("expected chunk delay 30ms, got %d", cfg.ChunkDelayMs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	if cfg.ServerAddr != "localhost:50051" {
		t.Errorf("expected server addr 'localhost:50051', got %s", cfg.ServerAddr)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected window 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}
	if cfg.Scheduler.ConcurrencyCap != 5 {
		t.Errorf("expected concurrency cap 5, got %d", cfg.Scheduler.ConcurrencyCap)
	}
	if cfg.Scheduler.AdmitInterval != 200*time.Millisecond {
		t.Errorf("expected admit interval 200ms, got %v", cfg.Scheduler.AdmitInterval)
	}
	if cfg.Loader.WorkerCount != 4 {
		t.Errorf("expected worker count 4, got %d", cfg.Loader.WorkerCount)
	}
	if cfg.Logging.LogFile != "loading_ui_log.txt" {
		t.Errorf("expected log file 'loading_ui_log.txt', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadServerFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sceneserver.yaml")

	yamlContent := `
media_root: "CustomMedia"
port: 9000
chunk_size: 32768
chunk_delay_ms: 10
logging:
  level: "debug"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadServer(configPath, false)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MediaRoot != "CustomMedia" {
		t.Errorf("expected media root 'CustomMedia', got %s", cfg.MediaRoot)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.ChunkSize != 32768 {
		t.Errorf("expected chunk size 32768, got %d", cfg.ChunkSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadServerInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
port: not a number
invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadServer(configPath, false); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadServerMissing(t *testing.T) {
	if _, err := LoadServer("/nonexistent/path/sceneserver.yaml", false); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoadServerDebugFlag(t *testing.T) {
	cfg, err := LoadServer("", true)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug flag to force log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadClientFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sceneviewer.yaml")

	yamlContent := `
server_addr: "scenehost:7000"
scheduler:
  concurrency_cap: 8
loader:
  worker_count: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadClient(configPath, false)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ServerAddr != "scenehost:7000" {
		t.Errorf("expected server addr 'scenehost:7000', got %s", cfg.ServerAddr)
	}
	if cfg.Scheduler.ConcurrencyCap != 8 {
		t.Errorf("expected concurrency cap 8, got %d", cfg.Scheduler.ConcurrencyCap)
	}
	if cfg.Loader.WorkerCount != 2 {
		t.Errorf("expected worker count 2, got %d", cfg.Loader.WorkerCount)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	path := findConfigFile("sceneserver.yaml")
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "sceneserver.yaml")
	if err := os.WriteFile(configPath, []byte("port: 8000\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile("sceneserver.yaml")
	if path == "" {
		t.Error("expected to find sceneserver.yaml in current directory")
	}
}

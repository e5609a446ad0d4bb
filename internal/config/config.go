// Package config handles scene streaming pipeline configuration loading and management.
package config

import "time"

// LoggingConfig holds logging settings shared by both binaries.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ServerConfig holds sceneserver (content service) settings.
type ServerConfig struct {
	MediaRoot    string        `yaml:"media_root"`
	Port         int           `yaml:"port"`
	ChunkSize    int           `yaml:"chunk_size"`
	ChunkDelayMs int           `yaml:"chunk_delay_ms"`
	Logging      LoggingConfig `yaml:"logging"`
}

// DefaultServerConfig returns a ServerConfig with the defaults from spec §6's CLI table.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		MediaRoot:    "Media",
		Port:         50051,
		ChunkSize:    64 * 1024,
		ChunkDelayMs: 30,
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// SchedulerConfig holds admission control settings for the client scheduler.
type SchedulerConfig struct {
	ConcurrencyCap int           `yaml:"concurrency_cap"`
	AdmitInterval  time.Duration `yaml:"admit_interval"`
}

// LoaderConfig holds worker pool settings for the client loader.
type LoaderConfig struct {
	WorkerCount int    `yaml:"worker_count"`
	StagingDir  string `yaml:"staging_dir"`
}

// WindowConfig holds display settings for the viewer's ImGui shell.
type WindowConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`
}

// ClientConfig holds sceneviewer settings.
type ClientConfig struct {
	ServerAddr string          `yaml:"server_addr"`
	Window     WindowConfig    `yaml:"window"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
	Loader     LoaderConfig    `yaml:"loader"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// DefaultClientConfig returns a ClientConfig with sensible default values.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerAddr: "localhost:50051",
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Scheduler: SchedulerConfig{
			ConcurrencyCap: 5,
			AdmitInterval:  200 * time.Millisecond,
		},
		Loader: LoaderConfig{
			WorkerCount: 4,
			StagingDir:  "tmp",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "loading_ui_log.txt",
		},
	}
}

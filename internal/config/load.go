package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// LoadServer loads server configuration with priority: defaults < file < flags.
// explicitPath, if non-empty, overrides the search for sceneserver.yaml.
func LoadServer(explicitPath string, debug bool) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	configPath := explicitPath
	if configPath == "" {
		configPath = findConfigFile("sceneserver.yaml")
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config from %s: %w", configPath, err)
		}
	}

	applyServerFlags(cfg, debug)
	return cfg, nil
}

// LoadClient loads client configuration with priority: defaults < file < flags.
// explicitPath, if non-empty, overrides the search for sceneviewer.yaml.
func LoadClient(explicitPath string, debug bool) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	configPath := explicitPath
	if configPath == "" {
		configPath = findConfigFile("sceneviewer.yaml")
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config from %s: %w", configPath, err)
		}
	}

	applyClientFlags(cfg, debug)
	return cfg, nil
}

// findConfigFile looks for the named config file in standard locations.
func findConfigFile(name string) string {
	candidates := []string{
		filepath.Join(".", name),
		filepath.Join(ConfigDir(), name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "SceneStream")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "SceneStream")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "scenestream")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "scenestream")
	}
}

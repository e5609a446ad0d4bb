package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveTo writes the server config to a specific path.
func (c *ServerConfig) SaveTo(path string) error {
	return saveYAML(path, c)
}

// SaveTo writes the client config to a specific path.
func (c *ClientConfig) SaveTo(path string) error {
	return saveYAML(path, c)
}

func saveYAML(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

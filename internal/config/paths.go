package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathsConfig contains file system locations used by the CLI
type PathsConfig struct {
	// BaseDir anchors relative paths; empty means the working directory.
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output"`
}

// Resolve returns path joined to BaseDir unless it is already absolute
func (p PathsConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.BaseDir == "" {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// ScenarioOutputDir returns the directory results for one scenario are written to
func (p PathsConfig) ScenarioOutputDir(scenarioID string) string {
	return filepath.Join(p.Resolve(p.OutputDir), scenarioID)
}

// EnsureDir creates dir and its parents if needed
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

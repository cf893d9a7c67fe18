// Package compiler drives a node compilation: it loads manifests and
// facts, runs the definition scan and evaluation phases, and finalizes the
// catalog. It owns the boundary types the core consumes: settings, fact
// providers, and the diagnostic logger.
package compiler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings are the boundary inputs of a compilation. They are provided by
// the host; the core does not parse command lines.
type Settings struct {
	CodeDirectory        string   `yaml:"code-directory"`
	EnvironmentDirectory string   `yaml:"environment-directory"`
	ModuleDirectories    []string `yaml:"module-directories"`
	EnvironmentName      string   `yaml:"environment-name"`
	NodeName             string   `yaml:"node-name"`
	Manifests            []string `yaml:"manifests"`
	LogLevel             string   `yaml:"log-level"`
}

// LoadSettings reads a YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return &settings, nil
}

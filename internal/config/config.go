// Package config holds the engine's configuration surface with safe
// defaults and construction-time validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds everything the engine needs beyond the preset document.
type Config struct {
	// Model is the short model name resolved through the preset store.
	Model string

	// Agent names the system-prompt template. Ignored when Instruction is
	// set, which forces the custom agent.
	Agent string

	// Instruction is an optional caller-supplied system prompt.
	Instruction string

	// SaveTo is the directory chat history is stored under. Empty falls
	// back to the system temp directory. A "mindful" segment is always
	// appended.
	SaveTo string

	// SaveAs selects the export format: json, txt or md. Unrecognized
	// values fall back to json.
	SaveAs string

	// Timeout bounds the completion request.
	Timeout time.Duration

	// ProbeURL is fetched once at construction to verify connectivity.
	ProbeURL string
}

// New returns a configuration with default values.
func New() *Config {
	return &Config{
		Model:    "omni",
		Agent:    "default",
		SaveTo:   "outputs",
		SaveAs:   "json",
		Timeout:  60 * time.Second,
		ProbeURL: "https://www.google.com",
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Agent == "" && c.Instruction == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// SaveRoot resolves the history root directory, falling back to the system
// temp location when no directory was configured.
func (c *Config) SaveRoot() string {
	root := c.SaveTo
	if root == "" {
		root = os.TempDir()
	}
	return filepath.Join(root, "mindful")
}

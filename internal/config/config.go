// Package config loads the declarative configuration the assistant reads
// once at startup: the agent model wiring, sandbox defaults, and the tool
// registration list.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File is the configuration file name, resolved relative to the working
// directory.
const File = "infragenius.yaml"

type Config struct {
	Version string  `yaml:"version"`
	Agent   Agent   `yaml:"agent"`
	Sandbox Sandbox `yaml:"sandbox"`
	Tools   []string `yaml:"tools"`
}

// Agent describes the externally hosted model the agent runtime talks to.
// It is declarative only: this process never calls the model itself.
type Agent struct {
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
	APIBase  string `yaml:"api_base,omitempty"`
}

// Sandbox holds the provisioning defaults for new sandboxes.
type Sandbox struct {
	Template       string `yaml:"template"`
	Domain         string `yaml:"domain,omitempty"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Default returns the starter configuration written by `ig init`.
func Default() *Config {
	return &Config{
		Version: "1",
		Agent: Agent{
			Model:    "gpt-4o",
			Provider: "openai",
		},
		Sandbox: Sandbox{
			Template:       "base",
			Port:           8000,
			TimeoutSeconds: 600,
		},
		Tools: []string{
			"provision_sandbox",
			"list_sandboxes",
			"run_command",
			"deploy_app",
			"verify_url",
			"check_latency",
			"destroy_sandbox",
		},
	}
}

// Load reads the config file from dir.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, File))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to dir.
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, File), data, 0o644)
}

// Exists reports whether a config file is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, File))
	return err == nil
}

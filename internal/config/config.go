package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds run settings loadable from a YAML file. Flags override any
// value set here; the pipeline itself validates the final numbers.
type Settings struct {
	Corpus       string `yaml:"corpus"`
	Form         string `yaml:"form"`
	Output       string `yaml:"output"`
	BatchSize    int    `yaml:"batch_size"`
	Workers      int    `yaml:"workers"`
	RateWindowMs int    `yaml:"rate_window_ms"`
	ItemTimeoutS int    `yaml:"item_timeout_s"`
	MaxItems     int    `yaml:"max_items"`
	Model        string `yaml:"model"`
	Backend      string `yaml:"backend"` // claude (CLI agent) or chat (HTTP endpoint)
	ChatBaseURL  string `yaml:"chat_base_url"`
}

// Load loads settings from a YAML file
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	return &s, nil
}

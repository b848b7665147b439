package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load builds a Config from a preset and an optional YAML file. The preset
// named by preset wins over the file's own "preset" key; fields set in the
// file override the preset's values.
func Load(path, preset string) (*Config, error) {
	if path == "" {
		cfg, err := Preset(preset)
		if err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	// read raw YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, preset)
}

// Parse is Load for YAML already in memory.
func Parse(data []byte, preset string) (*Config, error) {
	// expand $(ENV_VAR) placeholders
	expanded := []byte(expandEnvVars(string(data)))

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(expanded, &head); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if preset == "" {
		preset = head.Preset
	}

	cfg, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	cfg.Preset = preset
	if cfg.Preset == "" {
		cfg.Preset = DefaultPreset
	}
	return &cfg, nil
}

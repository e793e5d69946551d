// Package config loads the engine's YAML configuration: where the kernel
// tables live, where the install package and progress pipe are. Values may
// reference environment variables with ${VAR} and ${VAR:-default}.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration.
type Config struct {
	// Device is the board name, informational only.
	Device string `yaml:"device"`

	// ProcMounts overrides the kernel mount-list path (/proc/self/mounts).
	ProcMounts string `yaml:"proc_mounts"`

	// ProcMTD overrides the flash partition-table path (/proc/mtd).
	ProcMTD string `yaml:"proc_mtd"`

	// Package is the default install package path.
	Package string `yaml:"package"`

	Progress ProgressConfig `yaml:"progress"`
}

// ProgressConfig describes where progress directives go.
type ProgressConfig struct {
	// Pipe is the path of the writable command pipe to the installer UI.
	// Empty means stderr.
	Pipe string `yaml:"pipe"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{}
}

// Load reads configuration from path with environment interpolation. An empty
// path yields Defaults.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

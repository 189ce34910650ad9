// Package config loads the optional Run Profile: on-disk defaults for
// worker count, sandbox mode, and the CPU limit. When no profile path is
// given, LoadProfile returns the built-in defaults; a path that cannot be
// read or parsed is an error.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunProfile holds defaults that command-line flags may override. Fields
// absent from the profile file keep their DefaultProfile() values.
type RunProfile struct {
	Workers         int  `yaml:"workers"`
	Sandboxing      bool `yaml:"sandboxing"`
	DevMode         bool `yaml:"dev_mode"`
	CPULimitSeconds int  `yaml:"cpu_limit_seconds"`
}

// DefaultProfile returns the built-in defaults.
func DefaultProfile() RunProfile {
	return RunProfile{
		Workers:         4,
		Sandboxing:      true,
		DevMode:         false,
		CPULimitSeconds: 15,
	}
}

// LoadProfile reads a YAML run profile from path. An empty path returns
// DefaultProfile() unchanged.
func LoadProfile(path string) (RunProfile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RunProfile{}, fmt.Errorf("config: read run profile %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return RunProfile{}, fmt.Errorf("config: parse run profile %q: %w", path, err)
	}

	return profile, nil
}

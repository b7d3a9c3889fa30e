// Package config holds the tool identity and the weft.yaml project
// configuration.
//
// A weft.yaml file is optional. When present it can enable experimental
// features, turn on debug logging, and pin the extension versions a
// project is willing to accept when inspecting compiled envelopes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level weft.yaml configuration.
type Config struct {
	// Experimental enables features that are not yet stable. The
	// EnvExperimental environment variable overrides this to true.
	Experimental bool `yaml:"experimental,omitempty"`

	// Debug enables verbose compiler logging.
	Debug bool `yaml:"debug,omitempty"`

	// Extensions pins the extension versions accepted when validating
	// envelopes. Envelopes requiring an extension outside its pinned
	// range are rejected by inspection.
	Extensions []ExtensionPin `yaml:"extensions,omitempty"`
}

// ExtensionPin constrains the acceptable version range of one extension.
type ExtensionPin struct {
	// Name is the extension name as it appears in envelope requirements
	// (e.g. "quantum").
	Name string `yaml:"name"`

	// Constraint is a semver range (e.g. "~0.3", ">=1.0.0 <2.0.0").
	// Defaults to "*" if omitted.
	Constraint string `yaml:"constraint,omitempty"`
}

// DefaultConfig returns the configuration used when no weft.yaml exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	return cfg
}

// LoadConfig reads and parses a weft.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses weft.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// FindConfig searches for weft.yaml starting from dir and walking up
// to parent directories, similar to how .gitignore is found.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, "weft.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		// Also check weft.yml (common alternative)
		candidate = filepath.Join(dir, "weft.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	seen := make(map[string]bool)

	for i, pin := range c.Extensions {
		if pin.Name == "" {
			return fmt.Errorf("%s: extensions[%d]: name is required", path, i)
		}
		if seen[pin.Name] {
			return fmt.Errorf("%s: extensions[%d]: duplicate pin for %q", path, i, pin.Name)
		}
		seen[pin.Name] = true

		if pin.Constraint != "" {
			if _, err := semver.NewConstraint(pin.Constraint); err != nil {
				return fmt.Errorf("%s: extensions[%d] (%s): invalid constraint %q: %w",
					path, i, pin.Name, pin.Constraint, err)
			}
		}
	}

	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	for i := range c.Extensions {
		if c.Extensions[i].Constraint == "" {
			c.Extensions[i].Constraint = "*"
		}
	}
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvExperimental); v != "" && v != "0" && v != "false" {
		c.Experimental = true
	}
}

// PinFor returns the constraint pinned for the named extension,
// or nil if the extension is not pinned.
func (c *Config) PinFor(name string) *semver.Constraints {
	for _, pin := range c.Extensions {
		if pin.Name != name {
			continue
		}
		constraint, err := semver.NewConstraint(pin.Constraint)
		if err != nil {
			// validate already rejected malformed constraints.
			return nil
		}
		return constraint
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when
// --config is not given.
const DefaultConfigFile = "humconv.yaml"

// Config is the humconv file configuration. Flags override it.
type Config struct {
	// Mode selects the error policy: "strict" (default) or "permissive".
	Mode string `yaml:"mode"`
	// Include lists doublestar patterns used when a command gets no
	// path arguments.
	Include []string `yaml:"include"`
	// Out is the output directory for convert; "" writes to stdout.
	Out string `yaml:"out"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Mode:    "strict",
		Include: []string{"**/*.krn"},
	}
}

// LoadConfig reads path (or the default file when path is "") and
// applies it over the defaults. A missing default file is not an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown modes and bad patterns.
func (c Config) Validate() error {
	switch c.Mode {
	case "", "strict", "permissive":
	default:
		return fmt.Errorf("unknown mode %q (want strict or permissive)", c.Mode)
	}
	for _, pat := range c.Include {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid include pattern %q", pat)
		}
	}
	return nil
}

// Permissive reports the effective mode after flag overrides.
func (c Config) Permissive() bool {
	return flagPermissive || c.Mode == "permissive"
}

// expandArgs resolves command arguments (or cfg.Include when empty)
// into matching file paths.
func expandArgs(cfg Config, args []string) ([]string, error) {
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Include
	}
	var files []string
	seen := make(map[string]bool)
	for _, pat := range patterns {
		if info, err := os.Stat(pat); err == nil && !info.IsDir() {
			// Literal file path.
			if !seen[pat] {
				seen[pat] = true
				files = append(files, pat)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pat, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %v", patterns)
	}
	return files, nil
}

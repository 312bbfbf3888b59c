// Package config loads the optional ".solbuilder.toml" project defaults
// file, grounded on dekarrin/tunaq's BurntSushi/toml-based manifest
// loading (internal/tqw/marshaling.go). Values here only ever pre-seed CLI
// flags; an explicit flag always wins over whatever the file says.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the project defaults file solbuilder looks for in the
// current directory (and, via Find, its ancestors).
const FileName = ".solbuilder.toml"

// Config is the set of scaffold/check defaults a project can pin once
// instead of repeating on every invocation.
type Config struct {
	// SolidityVersion pre-seeds scaffold's --solidity-version.
	SolidityVersion string `toml:"solidity_version"`
	// VmSkip pre-seeds scaffold's --vm-skip.
	VmSkip bool `toml:"vm_skip"`
	// SkipModifiers pre-seeds --skip-modifiers for both subcommands.
	SkipModifiers bool `toml:"skip_modifiers"`
}

// Load reads and decodes path. A missing file is not an error: it reports
// a zero Config so callers can treat "no file" and "empty file" the same.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Find walks up from dir looking for FileName, returning the first match
// (or "" if none is found before reaching the filesystem root).
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadNearest finds and loads the nearest FileName starting from dir.
func LoadNearest(dir string) (Config, error) {
	path, err := Find(dir)
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return Config{}, nil
	}
	return Load(path)
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is pyflow.toml. Every field is optional; flags given
// explicitly on the command line win over the file.
type fileConfig struct {
	Analysis analysisConfig `toml:"analysis"`
	Output   outputConfig   `toml:"output"`
}

type analysisConfig struct {
	StrictUnknownBuiltins bool  `toml:"strict_unknown_builtins"`
	TreatBoolAsInt        *bool `toml:"treat_bool_as_int"`
	StmtBudget            int   `toml:"stmt_budget"`
	Jobs                  int   `toml:"jobs"`
}

type outputConfig struct {
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Format         string `toml:"format"`
}

// findPyflowToml walks from startDir toward the filesystem root looking
// for pyflow.toml.
func findPyflowToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "pyflow.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadFileConfig reads pyflow.toml from startDir upward. A missing file
// yields the zero config.
func loadFileConfig(startDir string) (fileConfig, error) {
	path, ok, err := findPyflowToml(startDir)
	if err != nil || !ok {
		return fileConfig{}, err
	}
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return cfg, nil
}

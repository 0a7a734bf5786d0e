// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the <root>/lading.toml configuration
// document described in the workspace manifest engine's contract. An absent
// file is equivalent to an empty document; unknown top-level keys are
// rejected.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/lading-dev/lading/internal/ladingerr"
)

// StripPatches selects how the Staging Director handles the root manifest's
// [patch.crates-io] table.
type StripPatches string

const (
	StripAll      StripPatches = "all"
	StripPerCrate StripPatches = "per_crate"
	StripNone     StripPatches = "none"
)

// Bump configures the Version Engine.
type Bump struct {
	Exclude       []string `toml:"exclude"`
	Documentation struct {
		Globs []string `toml:"globs"`
	} `toml:"documentation"`
}

// Publish configures the Publish Planner.
type Publish struct {
	Exclude      []string     `toml:"exclude"`
	Order        []string     `toml:"order"`
	StripPatches StripPatches `toml:"strip_patches"`
}

// Preflight configures the Pre-flight Runner.
type Preflight struct {
	TestExclude       []string          `toml:"test_exclude"`
	UnitTestsOnly     bool              `toml:"unit_tests_only"`
	AuxBuild          [][]string        `toml:"aux_build"`
	CompiletestExtern map[string]string `toml:"compiletest_extern"`
	Env               map[string]string `toml:"env"`
	StderrTailLines   int               `toml:"stderr_tail_lines"`
}

// Config is the validated configuration value handed to the core components.
type Config struct {
	Bump      Bump      `toml:"bump"`
	Publish   Publish   `toml:"publish"`
	Preflight Preflight `toml:"preflight"`
}

// defaultStderrTailLines is applied when the document omits
// preflight.stderr_tail_lines.
const defaultStderrTailLines = 40

// Default returns a Config with every field at its documented default: no
// exclusions, no explicit order, strip_patches "all", a 40-line stderr tail.
func Default() *Config {
	return &Config{
		Publish:   Publish{StripPatches: StripAll},
		Preflight: Preflight{StderrTailLines: defaultStderrTailLines},
	}
}

// Load reads and validates the lading.toml document found at
// <root>/lading.toml. A missing file yields Default(). Unknown top-level (or
// nested) keys fail with ConfigError, as does malformed TOML.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, "lading.toml")
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, ladingerr.ConfigWrap(err, "failed to read %s", path)
	}

	cfg := Default()
	cfg.Publish.StripPatches = ""
	dec := toml.NewDecoder(bytes.NewReader(contents))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, ladingerr.ConfigWrap(err, "malformed configuration in %s", path)
	}
	if cfg.Publish.StripPatches == "" {
		cfg.Publish.StripPatches = StripAll
	}
	switch cfg.Publish.StripPatches {
	case StripAll, StripPerCrate, StripNone:
	default:
		return nil, ladingerr.Config("publish.strip_patches must be one of all, per_crate, none; got %q", cfg.Publish.StripPatches)
	}
	if err := checkDuplicates("bump.exclude", cfg.Bump.Exclude); err != nil {
		return nil, err
	}
	if err := checkDuplicates("publish.exclude", cfg.Publish.Exclude); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkDuplicates(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return ladingerr.Config("%s contains duplicate entry %q", field, n)
		}
		seen[n] = true
	}
	return nil
}

// WorkspaceRoot resolves the effective workspace root: the explicit flag
// value when non-empty, otherwise the LADING_WORKSPACE_ROOT environment
// variable, otherwise the current working directory.
func WorkspaceRoot(flagValue string) (string, error) {
	candidate := flagValue
	if candidate == "" {
		candidate = os.Getenv("LADING_WORKSPACE_ROOT")
	}
	if candidate == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		candidate = wd
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root %q: %w", candidate, err)
	}
	return filepath.EvalSymlinks(abs)
}

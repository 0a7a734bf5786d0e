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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lading-dev/lading/internal/ladingerr"
)

func write(t *testing.T, contents string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "lading.toml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoadAbsentFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Publish.StripPatches != StripAll {
		t.Errorf("default strip_patches = %q", cfg.Publish.StripPatches)
	}
	if cfg.Preflight.StderrTailLines != 40 {
		t.Errorf("default stderr_tail_lines = %d", cfg.Preflight.StderrTailLines)
	}
}

func TestLoadFullDocument(t *testing.T) {
	root := write(t, `
[bump]
exclude = ["alpha"]

[bump.documentation]
globs = ["README.md", "docs/*.md"]

[publish]
exclude = ["internal-tool"]
order = ["alpha", "beta"]
strip_patches = "per_crate"

[preflight]
test_exclude = ["slow-tests"]
unit_tests_only = true
aux_build = [["cargo", "build", "-p", "helper"]]
stderr_tail_lines = 10

[preflight.compiletest_extern]
alpha = "debug/libalpha.rlib"

[preflight.env]
RUSTDOCFLAGS = "-D warnings"
`)
	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alpha"}, cfg.Bump.Exclude); diff != "" {
		t.Errorf("bump.exclude (-want +got):\n%s", diff)
	}
	if cfg.Publish.StripPatches != StripPerCrate {
		t.Errorf("strip_patches = %q", cfg.Publish.StripPatches)
	}
	if cfg.Preflight.StderrTailLines != 10 {
		t.Errorf("stderr_tail_lines = %d", cfg.Preflight.StderrTailLines)
	}
	if got := cfg.Preflight.CompiletestExtern["alpha"]; got != "debug/libalpha.rlib" {
		t.Errorf("compiletest_extern[alpha] = %q", got)
	}
	if len(cfg.Preflight.AuxBuild) != 1 || cfg.Preflight.AuxBuild[0][0] != "cargo" {
		t.Errorf("aux_build = %+v", cfg.Preflight.AuxBuild)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	root := write(t, "[bump]\nexclude = []\n\n[shipit]\nyolo = true\n")
	if _, err := Load(root); !ladingerr.Is(err, ladingerr.KindConfig) {
		t.Errorf("got %v, want ConfigError", err)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	root := write(t, "[bump\n")
	if _, err := Load(root); !ladingerr.Is(err, ladingerr.KindConfig) {
		t.Errorf("got %v, want ConfigError", err)
	}
}

func TestLoadRejectsBadStripPatches(t *testing.T) {
	root := write(t, "[publish]\nstrip_patches = \"some\"\n")
	if _, err := Load(root); !ladingerr.Is(err, ladingerr.KindConfig) {
		t.Errorf("got %v, want ConfigError", err)
	}
}

func TestLoadRejectsDuplicateExclusions(t *testing.T) {
	root := write(t, "[publish]\nexclude = [\"alpha\", \"alpha\"]\n")
	if _, err := Load(root); !ladingerr.Is(err, ladingerr.KindConfig) {
		t.Errorf("got %v, want ConfigError", err)
	}
}

func TestWorkspaceRootPrefersFlag(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LADING_WORKSPACE_ROOT", t.TempDir())
	got, err := WorkspaceRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("WorkspaceRoot = %q, want %q", got, want)
	}
}

func TestWorkspaceRootFallsBackToEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LADING_WORKSPACE_ROOT", dir)
	got, err := WorkspaceRoot("")
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("WorkspaceRoot = %q, want %q", got, want)
	}
}

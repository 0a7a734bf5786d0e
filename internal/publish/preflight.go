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

package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lading-dev/lading/internal/config"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/runner"
)

// PreflightOptions carries the inputs of a pre-flight run.
type PreflightOptions struct {
	// ForbidDirty fails the run when the workspace tree has uncommitted
	// changes.
	ForbidDirty bool
	Config      config.Preflight
}

// RunPreflight validates the live workspace before anything is packaged:
// an optional cleanliness check, the configured auxiliary builds, then
// cargo check and cargo test with an isolated target directory. It stops at
// the first failure.
func RunPreflight(ctx context.Context, r runner.Runner, root string, opts PreflightOptions) error {
	if opts.ForbidDirty {
		if err := assertCleanTree(ctx, r, root); err != nil {
			return err
		}
	}

	env := overrideEnv(opts.Config.Env)
	for _, argv := range opts.Config.AuxBuild {
		if len(argv) == 0 {
			continue
		}
		result, err := r.Run(ctx, argv[0], argv[1:], root, env)
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return preflightFailure("aux build", argv, result, opts.Config.StderrTailLines)
		}
	}

	targetDir, err := os.MkdirTemp("", "lading-target-")
	if err != nil {
		return ladingerr.Preflight("failed to allocate CARGO_TARGET_DIR: %v", err)
	}
	defer os.RemoveAll(targetDir)
	env = append(env, "CARGO_TARGET_DIR="+targetDir)

	checkArgv := []string{"check", "--workspace", "--all-targets"}
	result, err := r.Run(ctx, "cargo", checkArgv, root, env)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return preflightFailure("cargo check", append([]string{"cargo"}, checkArgv...), result, opts.Config.StderrTailLines)
	}

	testArgv := []string{"test", "--workspace", "--all-targets"}
	for _, name := range opts.Config.TestExclude {
		testArgv = append(testArgv, "--exclude", name)
	}
	if opts.Config.UnitTestsOnly {
		testArgv = append(testArgv, "--lib", "--bins")
	}
	testEnv := env
	if len(opts.Config.CompiletestExtern) > 0 {
		testEnv = append(testEnv, "RUSTFLAGS="+mergedRustflags(opts.Config, targetDir))
	}
	result, err = r.Run(ctx, "cargo", testArgv, root, testEnv)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		failure := preflightFailure("cargo test", append([]string{"cargo"}, testArgv...), result, opts.Config.StderrTailLines)
		if diagnostics := compiletestDiagnostics(root, result.Stderr, opts.Config.StderrTailLines); diagnostics != "" {
			failure = ladingerr.Preflight("%v\n%s", failure, diagnostics)
		}
		return failure
	}
	return nil
}

// assertCleanTree runs git status --porcelain in the workspace root; any
// output at all means uncommitted changes.
func assertCleanTree(ctx context.Context, r runner.Runner, root string) error {
	result, err := r.Run(ctx, "git", []string{"status", "--porcelain"}, root, nil)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return ladingerr.Preflight("git status failed with exit code %d: %s", result.ExitCode, tailLines(result.Stderr, 10))
	}
	if strings.TrimSpace(result.Stdout) != "" {
		return ladingerr.DirtyWorkspace("workspace has uncommitted changes:\n%s", strings.TrimSpace(result.Stdout))
	}
	return nil
}

// overrideEnv renders the configured environment overrides as KEY=VALUE
// pairs in a stable order.
func overrideEnv(overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}

// mergedRustflags appends one --extern entry per configured compiletest
// artifact to the existing RUSTFLAGS value instead of replacing it. Relative
// artifact paths resolve against the per-run target directory.
func mergedRustflags(cfg config.Preflight, targetDir string) string {
	flags := cfg.Env["RUSTFLAGS"]
	if flags == "" {
		flags = os.Getenv("RUSTFLAGS")
	}
	names := make([]string, 0, len(cfg.CompiletestExtern))
	for name := range cfg.CompiletestExtern {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		artifact := cfg.CompiletestExtern[name]
		if !filepath.IsAbs(artifact) {
			artifact = filepath.Join(targetDir, artifact)
		}
		entry := fmt.Sprintf("--extern %s=%s", name, artifact)
		if flags == "" {
			flags = entry
		} else {
			flags += " " + entry
		}
	}
	return flags
}

var stderrFileRE = regexp.MustCompile(`[\w./\\-]+\.stderr`)

// compiletestDiagnostics scans a failed test run's stderr for compiletest
// .stderr artifacts and tails each one as extra context.
func compiletestDiagnostics(root, stderr string, tail int) string {
	seen := map[string]bool{}
	var sections []string
	for _, name := range stderrFileRE.FindAllString(stderr, -1) {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, name)
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		contents, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("skipping unreadable compiletest diagnostic", "path", path, "err", err)
			continue
		}
		sections = append(sections, fmt.Sprintf("---- %s ----\n%s", name, tailLines(string(contents), tail)))
	}
	return strings.Join(sections, "\n")
}

// preflightFailure builds the PreflightError for a failed command: the argv,
// the exit code, and the trailing stdout/stderr.
func preflightFailure(stage string, argv []string, result runner.Result, tail int) error {
	return ladingerr.Preflight("%s failed (exit code %d): %s\nstdout:\n%s\nstderr:\n%s",
		stage, result.ExitCode, strings.Join(argv, " "),
		tailLines(result.Stdout, tail), tailLines(result.Stderr, tail))
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

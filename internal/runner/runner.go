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

// Package runner provides the allowlisted external command runner that the
// Pre-flight Runner and Publish Executor use to invoke cargo and git. A
// single method executes (program, argv, cwd, env) and returns
// (exit code, stdout, stderr), relaying output live to slog as it arrives.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/lading-dev/lading/internal/ladingerr"
)

// allowed is the static set of programs the runner may execute. Anything
// else is rejected before a process is spawned.
var allowed = map[string]bool{
	"cargo": true,
	"git":   true,
}

// Result carries the outcome of a single command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes allowlisted external programs.
type Runner interface {
	// Run executes program with argv in cwd, with env appended to the
	// inherited environment, and returns its captured result.
	Run(ctx context.Context, program string, argv []string, cwd string, env []string) (Result, error)
}

// Real is the production Runner, spawning OS processes directly.
type Real struct{}

// Run implements Runner. It rejects any program not in the allowlist with
// UnknownProgramError before spawning anything.
func (Real) Run(ctx context.Context, program string, argv []string, cwd string, env []string) (Result, error) {
	if !allowed[program] {
		return Result{}, ladingerr.UnknownProgram("program %q is not in the command allowlist", program)
	}

	cmd := exec.CommandContext(ctx, program, argv...)
	cmd.Dir = cwd
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdoutBuf, &slogWriter{level: slog.LevelInfo})
	cmd.Stderr = io.MultiWriter(&stderrBuf, &slogWriter{level: slog.LevelWarn})

	slog.Info("running command", "program", program, "argv", argv, "cwd", cwd)
	runErr := cmd.Run()

	result := Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return result, fmt.Errorf("failed to run %s: %w", program, runErr)
		}
	}
	result.ExitCode = cmd.ProcessState.ExitCode()
	return result, nil
}

// slogWriter relays subprocess output lines to the structured logger as the
// process produces them, while the caller also buffers it for post-hoc
// inspection (diagnostics, "already published" detection, etc).
type slogWriter struct {
	level slog.Level
}

func (w *slogWriter) Write(p []byte) (int, error) {
	slog.Log(context.Background(), w.level, string(p))
	return len(p), nil
}

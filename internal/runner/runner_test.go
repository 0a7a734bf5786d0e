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

package runner

import (
	"testing"

	"github.com/lading-dev/lading/internal/ladingerr"
)

func TestRealRejectsUnknownProgram(t *testing.T) {
	var r Real
	_, err := r.Run(t.Context(), "rm", []string{"-rf", "/"}, ".", nil)
	if err == nil {
		t.Fatal("expected an error for an unregistered program")
	}
	if !ladingerr.Is(err, ladingerr.KindUnknownProgram) {
		t.Errorf("got %v, want UnknownProgramError", err)
	}
}

func TestRealRunsAllowedProgram(t *testing.T) {
	var r Real
	result, err := r.Run(t.Context(), "git", []string{"--version"}, ".", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0; stderr=%q", result.ExitCode, result.Stderr)
	}
}

func TestMockRecordsInvocations(t *testing.T) {
	m := &Mock{
		Results: map[string]Result{
			"cargo package": {ExitCode: 0, Stdout: "ok"},
		},
	}
	result, err := m.Run(t.Context(), "cargo", []string{"package"}, "/tmp/crate", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stdout != "ok" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "ok")
	}
	if len(m.Got) != 1 || m.Got[0].Program != "cargo" {
		t.Errorf("Got = %+v", m.Got)
	}
}

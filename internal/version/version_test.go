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

package version

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lading-dev/lading/internal/cargometa"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/testhelpers"
	"github.com/lading-dev/lading/internal/workspace"
)

const rootManifest = `[workspace]
members = ["crates/alpha", "crates/beta"]

[workspace.package]
version = "0.1.0"
`

func twoCrateWorkspace(t *testing.T) (string, *workspace.Graph) {
	t.Helper()
	root, md := testhelpers.SetupWorkspace(t, rootManifest, []testhelpers.Crate{
		{
			Name: "alpha",
			Manifest: `[package]
name = "alpha"
version = "0.1.0"
`,
		},
		{
			Name: "beta",
			Manifest: `[package]
name = "beta"
version = "0.1.0"

[dependencies]
alpha = { path = "../alpha", version = "^0.1.0" }
`,
			Deps: []cargometa.Dependency{
				{Name: "alpha", Req: "^0.1.0", Path: "../alpha"},
			},
		},
	})
	g, err := workspace.Build(root, md)
	if err != nil {
		t.Fatal(err)
	}
	return root, g
}

func TestBumpSample(t *testing.T) {
	root, g := twoCrateWorkspace(t)
	report, err := Bump(g, "1.2.3", Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Cargo.toml", "crates/alpha/Cargo.toml", "crates/beta/Cargo.toml"}
	if diff := cmp.Diff(want, report.Manifests); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if !report.Wrote {
		t.Error("report should record that writes occurred")
	}

	rootDoc := testhelpers.ReadFile(t, root, "Cargo.toml")
	if !strings.Contains(rootDoc, `version = "1.2.3"`) {
		t.Errorf("workspace version not updated:\n%s", rootDoc)
	}
	alpha := testhelpers.ReadFile(t, root, "crates/alpha/Cargo.toml")
	if !strings.Contains(alpha, `version = "1.2.3"`) {
		t.Errorf("alpha version not updated:\n%s", alpha)
	}
	beta := testhelpers.ReadFile(t, root, "crates/beta/Cargo.toml")
	if !strings.Contains(beta, `version = "^1.2.3"`) {
		t.Errorf("beta requirement operator not preserved:\n%s", beta)
	}
}

func TestBumpIdempotent(t *testing.T) {
	_, g := twoCrateWorkspace(t)
	if _, err := Bump(g, "1.2.3", Options{}); err != nil {
		t.Fatal(err)
	}
	report, err := Bump(g, "1.2.3", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Empty() {
		t.Errorf("second bump should be a no-op, got %+v", report)
	}
	if report.Wrote {
		t.Error("second bump wrote files")
	}
}

func TestBumpExcludedCrate(t *testing.T) {
	root, g := twoCrateWorkspace(t)
	report, err := Bump(g, "1.2.3", Options{Exclude: []string{"alpha"}})
	if err != nil {
		t.Fatal(err)
	}

	alpha := testhelpers.ReadFile(t, root, "crates/alpha/Cargo.toml")
	if !strings.Contains(alpha, `version = "0.1.0"`) {
		t.Errorf("excluded alpha should keep its version:\n%s", alpha)
	}
	beta := testhelpers.ReadFile(t, root, "crates/beta/Cargo.toml")
	if !strings.Contains(beta, `version = "1.2.3"`) {
		t.Errorf("beta version not updated:\n%s", beta)
	}
	// beta's requirement points at a crate that was not bumped.
	if !strings.Contains(beta, `version = "^0.1.0"`) {
		t.Errorf("requirement on excluded crate should be unchanged:\n%s", beta)
	}
	for _, path := range report.Manifests {
		if path == "crates/alpha/Cargo.toml" {
			t.Error("alpha should not appear in the report")
		}
	}
}

func TestBumpDryRun(t *testing.T) {
	root, g := twoCrateWorkspace(t)
	report, err := Bump(g, "1.2.3", Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Empty() {
		t.Fatal("dry-run should still report the intended changes")
	}
	if report.Wrote {
		t.Error("dry-run must not write")
	}
	alpha := testhelpers.ReadFile(t, root, "crates/alpha/Cargo.toml")
	if !strings.Contains(alpha, `version = "0.1.0"`) {
		t.Errorf("dry-run modified a file:\n%s", alpha)
	}
}

func TestBumpInvalidVersion(t *testing.T) {
	_, g := twoCrateWorkspace(t)
	for _, bad := range []string{"1.2", "v1.2.3", "1.2.3.4", ""} {
		if _, err := Bump(g, bad, Options{}); !ladingerr.Is(err, ladingerr.KindInvalidVersion) {
			t.Errorf("Bump(%q) = %v, want InvalidVersionError", bad, err)
		}
	}
}

func TestBumpAcceptsPrereleaseAndBuild(t *testing.T) {
	for _, good := range []string{"1.2.3", "1.2.3-rc.1", "1.2.3+build.5", "1.2.3-rc.1+build.5"} {
		_, g := twoCrateWorkspace(t)
		if _, err := Bump(g, good, Options{}); err != nil {
			t.Errorf("Bump(%q) = %v", good, err)
		}
	}
}

func TestBumpOnly(t *testing.T) {
	root, g := twoCrateWorkspace(t)
	if _, err := Bump(g, "1.2.3", Options{Only: "alpha"}); err != nil {
		t.Fatal(err)
	}
	rootDoc := testhelpers.ReadFile(t, root, "Cargo.toml")
	if !strings.Contains(rootDoc, `version = "0.1.0"`) {
		t.Errorf("single-crate bump must leave the workspace version alone:\n%s", rootDoc)
	}
	alpha := testhelpers.ReadFile(t, root, "crates/alpha/Cargo.toml")
	if !strings.Contains(alpha, `version = "1.2.3"`) {
		t.Errorf("alpha not bumped:\n%s", alpha)
	}
	beta := testhelpers.ReadFile(t, root, "crates/beta/Cargo.toml")
	if !strings.Contains(beta, `version = "^1.2.3"`) {
		t.Errorf("beta's requirement on alpha should follow:\n%s", beta)
	}
	if !strings.Contains(beta, "version = \"0.1.0\"") {
		t.Errorf("beta's own version must not change:\n%s", beta)
	}
}

func TestBumpOnlyUnknownCrate(t *testing.T) {
	_, g := twoCrateWorkspace(t)
	if _, err := Bump(g, "1.2.3", Options{Only: "gamma"}); !ladingerr.Is(err, ladingerr.KindWorkspaceInvar) {
		t.Errorf("got %v, want WorkspaceInvariantError", err)
	}
}

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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lading-dev/lading/internal/config"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/testhelpers"
	"github.com/lading-dev/lading/internal/workspace"
)

const stagingRootManifest = `[workspace]
members = ["crates/alpha", "crates/beta"]

[patch.crates-io]
alpha = { path = "./crates/alpha" }
beta = { path = "./crates/beta" }
`

func stagingFixture(t *testing.T, alphaExtra string) (*workspace.Graph, *Plan) {
	t.Helper()
	root, md := testhelpers.SetupWorkspace(t, stagingRootManifest, []testhelpers.Crate{
		{Name: "alpha", Manifest: crateManifest("alpha", alphaExtra)},
		{Name: "beta", Manifest: crateManifest("beta", "")},
	})
	g, err := workspace.Build(root, md)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := BuildPlan(g, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	return g, plan
}

func TestPrepareStagingStripAll(t *testing.T) {
	g, plan := stagingFixture(t, "")
	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripAll, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	defer staging.Close()

	staged, err := os.ReadFile(staging.RootManifest())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(staged), "[patch.crates-io]") {
		t.Errorf("patch table should be gone:\n%s", staged)
	}
	if strings.Contains(string(staged), "[patch]") {
		t.Errorf("orphaned patch parent left behind:\n%s", staged)
	}
	// The live manifest is untouched.
	live := testhelpers.ReadFile(t, g.Root, "Cargo.toml")
	if !strings.Contains(live, "[patch.crates-io]") {
		t.Error("live workspace manifest was modified")
	}
}

func TestPrepareStagingStripNone(t *testing.T) {
	g, plan := stagingFixture(t, "")
	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripNone, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	defer staging.Close()
	staged, err := os.ReadFile(staging.RootManifest())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(staged), "[patch.crates-io]") {
		t.Errorf("strip none must keep the patch table:\n%s", staged)
	}
}

func TestStripCratePatch(t *testing.T) {
	g, plan := stagingFixture(t, "")
	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripPerCrate, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	defer staging.Close()

	if err := staging.StripCratePatch("alpha"); err != nil {
		t.Fatal(err)
	}
	staged, err := os.ReadFile(staging.RootManifest())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(staged), "alpha = { path") {
		t.Errorf("alpha entry should be gone:\n%s", staged)
	}
	if !strings.Contains(string(staged), "beta = { path") {
		t.Errorf("beta entry must remain until its turn:\n%s", staged)
	}

	if err := staging.StripCratePatch("beta"); err != nil {
		t.Fatal(err)
	}
	staged, err = os.ReadFile(staging.RootManifest())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(staged), "[patch.crates-io]") {
		t.Errorf("empty patch table should be tidied away:\n%s", staged)
	}
}

func TestPrepareStagingProjectsReadme(t *testing.T) {
	g, plan := stagingFixture(t, "readme.workspace = true\n")
	readme := "# workspace readme\n"
	testhelpers.WriteFile(t, g.Root, "README.md", readme)

	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripAll, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	defer staging.Close()

	got, err := os.ReadFile(filepath.Join(staging.Root, "crates", "alpha", "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != readme {
		t.Errorf("projected README = %q, want %q", got, readme)
	}
	if _, err := os.Stat(filepath.Join(staging.Root, "crates", "beta", "README.md")); !os.IsNotExist(err) {
		t.Error("beta does not inherit the README")
	}
}

func TestPrepareStagingReadmeMissing(t *testing.T) {
	g, plan := stagingFixture(t, "readme.workspace = true\n")
	_, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripAll, Cleanup: true})
	if !ladingerr.Is(err, ladingerr.KindStaging) {
		t.Fatalf("got %v, want StagingError", err)
	}
	if !strings.Contains(err.Error(), "Workspace README.md is required by crates that set readme.workspace = true") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestPrepareStagingPreservesSymlinks(t *testing.T) {
	g, plan := stagingFixture(t, "")
	testhelpers.WriteFile(t, g.Root, "LICENSE", "license text\n")
	if err := os.Symlink(filepath.Join(g.Root, "LICENSE"), filepath.Join(g.Root, "crates", "alpha", "LICENSE")); err != nil {
		t.Fatal(err)
	}

	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripNone, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	defer staging.Close()
	info, err := os.Lstat(filepath.Join(staging.Root, "crates", "alpha", "LICENSE"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("symlink should be preserved as a link by default")
	}
}

func TestPrepareStagingDereferencesSymlinks(t *testing.T) {
	g, plan := stagingFixture(t, "")
	testhelpers.WriteFile(t, g.Root, "LICENSE", "license text\n")
	if err := os.Symlink(filepath.Join(g.Root, "LICENSE"), filepath.Join(g.Root, "crates", "alpha", "LICENSE")); err != nil {
		t.Fatal(err)
	}

	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripNone, DereferenceSymlinks: true, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	defer staging.Close()
	path := filepath.Join(staging.Root, "crates", "alpha", "LICENSE")
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Error("symlink should have been dereferenced")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "license text\n" {
		t.Errorf("dereferenced contents = %q", got)
	}
}

func TestStagingCloseRemovesDirectory(t *testing.T) {
	g, plan := stagingFixture(t, "")
	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripAll, Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := staging.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(staging.Root); !os.IsNotExist(err) {
		t.Error("staging root should be removed on close")
	}
}

func TestStagingCloseKeepsDirectoryWithoutCleanup(t *testing.T) {
	g, plan := stagingFixture(t, "")
	staging, err := PrepareStaging(g, plan, StagingOptions{Strip: config.StripAll, Cleanup: false})
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(staging.Root)
	if err := staging.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(staging.Root); err != nil {
		t.Error("staging root should survive close when cleanup is off")
	}
}

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

// Package testhelpers provides helper functions for tests: on-disk Cargo
// workspace fixtures paired with the cargo metadata document that describes
// them.
package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lading-dev/lading/internal/cargometa"
)

// Crate describes one workspace member fixture.
type Crate struct {
	Name string
	// Dir is the member directory relative to the workspace root; defaults
	// to crates/<name>.
	Dir string
	// Version defaults to 0.1.0 and only feeds the metadata document; the
	// manifest text is authoritative for everything the engine edits.
	Version  string
	Manifest string
	Deps     []cargometa.Dependency
}

// SetupWorkspace writes a Cargo workspace under a temporary directory and
// returns its root together with a metadata document matching what
// `cargo metadata --no-deps` would report for it.
func SetupWorkspace(t *testing.T, rootManifest string, crates []Crate) (string, *cargometa.Metadata) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte(rootManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	md := &cargometa.Metadata{WorkspaceRoot: root}
	for _, crate := range crates {
		dir := crate.Dir
		if dir == "" {
			dir = filepath.Join("crates", crate.Name)
		}
		manifestPath := filepath.Join(root, dir, "Cargo.toml")
		if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(manifestPath, []byte(crate.Manifest), 0o644); err != nil {
			t.Fatal(err)
		}
		version := crate.Version
		if version == "" {
			version = "0.1.0"
		}
		id := fmt.Sprintf("path+file://%s#%s@%s", filepath.Join(root, dir), crate.Name, version)
		md.WorkspaceMembers = append(md.WorkspaceMembers, id)
		md.Packages = append(md.Packages, cargometa.Package{
			ID:           id,
			Name:         crate.Name,
			Version:      version,
			ManifestPath: manifestPath,
			Dependencies: crate.Deps,
		})
	}
	return root, md
}

// WriteFile writes a file under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, contents string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file under root.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(contents)
}

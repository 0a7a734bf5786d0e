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

// Package cargometa models the JSON shape produced by `cargo metadata
// --format-version 1 --no-deps`, the external collaborator the Workspace
// Graph Builder consumes. It is a typed boundary: the core never shells out
// to cargo itself (that is the command runner's job), it only decodes the
// result handed to it.
package cargometa

import (
	"encoding/json"

	"github.com/lading-dev/lading/internal/ladingerr"
)

// DependencyKind classifies how a package depends on another, mirroring
// Cargo's own "normal", "dev", and "build" sections.
type DependencyKind string

const (
	KindNormal DependencyKind = ""
	KindDev    DependencyKind = "dev"
	KindBuild  DependencyKind = "build"
)

// Dependency is one entry of a package's "dependencies" array.
type Dependency struct {
	Name   string         `json:"name"`
	Rename string         `json:"rename"`
	Req    string         `json:"req"`
	Kind   DependencyKind `json:"kind"`
	Path   string         `json:"path"`
}

// Package is one entry of the metadata's "packages" array.
type Package struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	ManifestPath string       `json:"manifest_path"`
	Dependencies []Dependency `json:"dependencies"`
}

// Metadata is the decoded top-level `cargo metadata` document.
type Metadata struct {
	WorkspaceRoot    string    `json:"workspace_root"`
	WorkspaceMembers []string  `json:"workspace_members"`
	Packages         []Package `json:"packages"`
}

// Parse decodes raw JSON produced by the cargo metadata collaborator.
func Parse(raw []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ladingerr.CargoMetadataWrap(err, "failed to parse cargo metadata JSON")
	}
	return &m, nil
}

// IsMember reports whether pkg.ID appears in the metadata's
// workspace_members list.
func (m *Metadata) IsMember(pkg Package) bool {
	for _, id := range m.WorkspaceMembers {
		if id == pkg.ID {
			return true
		}
	}
	return false
}

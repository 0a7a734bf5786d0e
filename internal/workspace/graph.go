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

// Package workspace implements the Workspace Graph Builder: it consumes a
// cargo metadata result and the per-crate manifest documents it names to
// produce an immutable graph of crates, their internal dependency edges,
// publish flags, and README-inheritance flags.
package workspace

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/lading-dev/lading/internal/cargometa"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/manifest"
)

// Section classifies which part of a manifest an internal dependency edge
// was declared in.
type Section string

const (
	SectionNormal Section = "normal"
	SectionDev    Section = "dev"
	SectionBuild  Section = "build"
)

// InternalDep is a crate-to-crate edge whose target resolves to another
// member of the same workspace.
type InternalDep struct {
	TargetName     string
	ManifestKey    string
	Section        Section
	Requirement    string
	HasRequirement bool
	KindIsDevOnly  bool
}

// Crate is a single workspace member.
type Crate struct {
	Name                    string
	Version                 string
	ManifestPath            string
	Publishable             bool
	ReadmeInheritsWorkspace bool
	InternalDependencies    []InternalDep
}

// Graph is the immutable workspace graph: a canonical root and its ordered
// set of member crates, keyed uniquely by name.
type Graph struct {
	Root   string
	Crates []Crate
}

// ByName returns the crate named name, or found=false.
func (g *Graph) ByName(name string) (Crate, bool) {
	for _, c := range g.Crates {
		if c.Name == name {
			return c, true
		}
	}
	return Crate{}, false
}

// Names returns every crate name in the graph, in graph order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.Crates))
	for i, c := range g.Crates {
		names[i] = c.Name
	}
	return names
}

// Build constructs a Graph from a decoded cargo metadata result and root,
// the canonical absolute workspace root directory. It loads each member's
// manifest through the Manifest Document Store to derive publish and
// README-inheritance flags that cargo metadata does not itself expose.
func Build(root string, md *cargometa.Metadata) (*Graph, error) {
	members := make(map[string]cargometa.Package)
	var order []string
	for _, pkg := range md.Packages {
		if !md.IsMember(pkg) {
			continue
		}
		rel, err := filepath.Rel(root, pkg.ManifestPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, ladingerr.WorkspaceInvariant("crate %q manifest %s lies outside workspace root %s", pkg.Name, pkg.ManifestPath, root)
		}
		if _, dup := members[pkg.Name]; dup {
			return nil, ladingerr.WorkspaceInvariant("duplicate crate name %q", pkg.Name)
		}
		members[pkg.Name] = pkg
		order = append(order, pkg.Name)
	}

	crates := make([]Crate, 0, len(order))
	for _, name := range order {
		pkg := members[name]
		doc, err := manifest.Load(pkg.ManifestPath)
		if err != nil {
			return nil, err
		}

		crate := Crate{
			Name:                    pkg.Name,
			Version:                 pkg.Version,
			ManifestPath:            pkg.ManifestPath,
			Publishable:             derivePublishable(doc),
			ReadmeInheritsWorkspace: deriveReadmeInherits(doc),
		}

		byTarget := map[string][]int{}
		for _, dep := range pkg.Dependencies {
			if _, ok := members[dep.Name]; !ok {
				continue
			}
			key := dep.Rename
			if key == "" {
				key = dep.Name
			}
			idx := len(crate.InternalDependencies)
			crate.InternalDependencies = append(crate.InternalDependencies, InternalDep{
				TargetName:     dep.Name,
				ManifestKey:    key,
				Section:        sectionFromKind(dep.Kind),
				Requirement:    dep.Req,
				HasRequirement: dep.Req != "",
			})
			byTarget[dep.Name] = append(byTarget[dep.Name], idx)
		}
		for _, idxs := range byTarget {
			hasNonDev := false
			for _, i := range idxs {
				if crate.InternalDependencies[i].Section != SectionDev {
					hasNonDev = true
					break
				}
			}
			if hasNonDev {
				continue
			}
			for _, i := range idxs {
				crate.InternalDependencies[i].KindIsDevOnly = true
			}
		}

		crates = append(crates, crate)
	}

	sort.SliceStable(crates, func(i, j int) bool { return crates[i].Name < crates[j].Name })

	return &Graph{Root: root, Crates: crates}, nil
}

func sectionFromKind(kind cargometa.DependencyKind) Section {
	switch kind {
	case cargometa.KindDev:
		return SectionDev
	case cargometa.KindBuild:
		return SectionBuild
	default:
		return SectionNormal
	}
}

// derivePublishable implements the package.publish rule: absent is true,
// false is false, an empty array is false, any other array is true.
func derivePublishable(doc *manifest.Document) bool {
	raw, found := doc.Get("package", "publish")
	if !found {
		return true
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "false" {
		return false
	}
	if trimmed == "true" {
		return true
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		return inner != ""
	}
	return true
}

// deriveReadmeInherits implements package.readme.workspace = true, whether
// expressed as a dotted key ([package] readme.workspace = true) or as the
// nested table [package.readme].
func deriveReadmeInherits(doc *manifest.Document) bool {
	if raw, found := doc.Get("package", "readme"); found {
		if strings.Contains(raw, "workspace") && strings.Contains(raw, "true") {
			return true
		}
	}
	if raw, found := doc.Get("package", "readme.workspace"); found {
		return strings.TrimSpace(raw) == "true"
	}
	if raw, found := doc.Get("package.readme", "workspace"); found {
		return strings.TrimSpace(raw) == "true"
	}
	return false
}

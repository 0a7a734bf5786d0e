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

// Package version implements the Version Engine: given a target version and
// an exclusion set it computes and applies version updates across the
// workspace manifest, every member manifest, internal dependency
// requirements, and TOML fences inside documentation files. Requirement
// operator prefixes are preserved and the whole operation is idempotent.
package version

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/manifest"
	"github.com/lading-dev/lading/internal/semver"
	"github.com/lading-dev/lading/internal/workspace"
)

// Options carries the bump configuration supplied by the caller.
type Options struct {
	// Exclude names crates whose own package.version is left untouched.
	Exclude []string
	// DocGlobs lists glob patterns, relative to the workspace root, naming
	// Markdown files whose TOML fences are rewritten alongside the manifests.
	DocGlobs []string
	// Only restricts the bump to a single crate (and the requirements that
	// point at it). The workspace-level version is left alone in this mode.
	Only string
	// DryRun computes the full change report without writing any file.
	DryRun bool
}

// Report lists the files a bump touched (or would touch, under dry-run),
// with paths relative to the workspace root.
type Report struct {
	Manifests []string
	Docs      []string
	Wrote     bool
}

// Empty reports whether no file needed any change.
func (r *Report) Empty() bool {
	return len(r.Manifests) == 0 && len(r.Docs) == 0
}

var sectionTables = map[workspace.Section]string{
	workspace.SectionNormal: "dependencies",
	workspace.SectionDev:    "dev-dependencies",
	workspace.SectionBuild:  "build-dependencies",
}

// Bump propagates target across the workspace per the engine's contract:
// the workspace manifest's version keys, each non-excluded crate's
// package.version, every internal dependency requirement whose target was
// bumped, and the documentation fences matched by the configured globs.
func Bump(g *workspace.Graph, target string, opts Options) (*Report, error) {
	if err := semver.Validate(target); err != nil {
		return nil, ladingerr.InvalidVersion("%v", err)
	}
	bumped, err := bumpedSet(g, opts)
	if err != nil {
		return nil, err
	}

	docs := newDocSet()
	rootManifest := filepath.Join(g.Root, "Cargo.toml")

	// The workspace manifest's own version keys. A single-crate bump leaves
	// the workspace-level version alone: the remaining members still inherit
	// it.
	if opts.Only == "" {
		doc, err := docs.load(rootManifest)
		if err != nil {
			return nil, err
		}
		if setVersionIfPresent(doc, "workspace.package", target) {
			docs.markChanged(rootManifest)
		}
		if setVersionIfPresent(doc, "package", target) {
			docs.markChanged(rootManifest)
		}
	}

	for _, crate := range g.Crates {
		doc, err := docs.load(crate.ManifestPath)
		if err != nil {
			return nil, err
		}
		if bumped[crate.Name] {
			if setVersionIfPresent(doc, "package", target) {
				docs.markChanged(crate.ManifestPath)
			}
		}
		for _, dep := range crate.InternalDependencies {
			if !bumped[dep.TargetName] {
				continue
			}
			if doc.UpdateRequirement(sectionTables[dep.Section], dep.ManifestKey, target) {
				docs.markChanged(crate.ManifestPath)
			}
		}
	}

	report := &Report{}
	for _, path := range docs.order {
		if !docs.changed[path] {
			continue
		}
		if !opts.DryRun {
			if err := manifest.Save(docs.loaded[path], path); err != nil {
				return nil, err
			}
			report.Wrote = true
		}
		report.Manifests = append(report.Manifests, relTo(g.Root, path))
	}

	docPaths, err := rewriteDocumentation(g, bumped, target, opts)
	if err != nil {
		return nil, err
	}
	report.Docs = docPaths
	if len(docPaths) > 0 && !opts.DryRun {
		report.Wrote = true
	}
	return report, nil
}

// bumpedSet resolves which crates' own versions change: every member minus
// the exclusion set, or just the --only target when one is named.
func bumpedSet(g *workspace.Graph, opts Options) (map[string]bool, error) {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}
	bumped := map[string]bool{}
	if opts.Only != "" {
		if _, ok := g.ByName(opts.Only); !ok {
			return nil, ladingerr.WorkspaceInvariant("crate %q is not a workspace member", opts.Only)
		}
		if !excluded[opts.Only] {
			bumped[opts.Only] = true
		}
		return bumped, nil
	}
	for _, crate := range g.Crates {
		if !excluded[crate.Name] {
			bumped[crate.Name] = true
		}
	}
	return bumped, nil
}

// setVersionIfPresent updates table.version to v when the key already
// exists, preserving its quote style. Keys the manifest does not carry (for
// example a crate inheriting version.workspace) are left alone.
func setVersionIfPresent(doc *manifest.Document, table, v string) bool {
	raw, found := doc.Get(table, "version")
	if !found {
		return false
	}
	quote := `"`
	if strings.HasPrefix(raw, "'") {
		quote = "'"
	}
	return doc.Set(table, "version", quote+v+quote)
}

// docSet caches manifest documents by path so a root manifest that is also
// a member manifest is loaded, edited, and saved exactly once.
type docSet struct {
	loaded  map[string]*manifest.Document
	changed map[string]bool
	order   []string
}

func newDocSet() *docSet {
	return &docSet{loaded: map[string]*manifest.Document{}, changed: map[string]bool{}}
}

func (s *docSet) load(path string) (*manifest.Document, error) {
	if doc, ok := s.loaded[path]; ok {
		return doc, nil
	}
	doc, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	s.loaded[path] = doc
	s.order = append(s.order, path)
	return doc, nil
}

func (s *docSet) markChanged(path string) {
	s.changed[path] = true
}

// members returns the set of workspace member names.
func members(g *workspace.Graph) map[string]bool {
	set := make(map[string]bool, len(g.Crates))
	for _, crate := range g.Crates {
		set[crate.Name] = true
	}
	return set
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// resolveDocGlobs expands the documentation glob patterns relative to root
// into a sorted, de-duplicated file list.
func resolveDocGlobs(root string, globs []string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, pattern := range globs {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, ladingerr.ConfigWrap(err, "invalid documentation glob %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/manifest"
	"github.com/lading-dev/lading/internal/workspace"
)

// rewriteDocumentation applies the version bump to every TOML fence in the
// Markdown files matched by the configured globs. It returns the relative
// paths of the files that changed (or would change, under dry-run).
func rewriteDocumentation(g *workspace.Graph, bumped map[string]bool, target string, opts Options) ([]string, error) {
	paths, err := resolveDocGlobs(g.Root, opts.DocGlobs)
	if err != nil {
		return nil, err
	}
	var changed []string
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, ladingerr.ManifestParseWrap(err, "failed to read documentation file %s", path)
		}
		updated, didChange, err := rewriteMarkdown(source, members(g), bumped, target)
		if err != nil {
			return nil, ladingerr.ManifestParseWrap(err, "failed to rewrite TOML fences in %s", path)
		}
		if !didChange {
			continue
		}
		if !opts.DryRun {
			if err := writeFileAtomic(path, updated); err != nil {
				return nil, err
			}
		}
		changed = append(changed, relTo(g.Root, path))
	}
	return changed, nil
}

// rewriteMarkdown locates fenced code blocks whose info string begins with
// "toml", parses each fence body as a TOML document, applies the version and
// internal-dependency rewrites, and splices the result back into the source
// preserving everything outside the fence bodies byte for byte.
func rewriteMarkdown(source []byte, members, bumped map[string]bool, target string) ([]byte, bool, error) {
	parser := goldmark.New().Parser()
	root := parser.Parse(text.NewReader(source))

	type edit struct {
		segment text.Segment
		line    string
	}
	var edits []edit

	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok || !isTOMLFence(fence, source) {
			return ast.WalkContinue, nil
		}
		lines := fence.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		var body strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
		}
		doc, err := manifest.Parse(body.String())
		if err != nil {
			// A fence that merely looks like TOML is skipped, not fatal: the
			// documentation may show fragments the engine has no business in.
			return ast.WalkContinue, nil
		}
		if !applyFenceEdits(doc, members, bumped, target) {
			return ast.WalkContinue, nil
		}
		rendered := strings.SplitAfter(doc.String(), "\n")
		if rendered[len(rendered)-1] == "" {
			rendered = rendered[:len(rendered)-1]
		}
		if len(rendered) != lines.Len() {
			return ast.WalkStop, fmt.Errorf("fence rewrite changed the line count (%d -> %d)", lines.Len(), len(rendered))
		}
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := rendered[i]
			if !strings.HasSuffix(string(seg.Value(source)), "\n") {
				line = strings.TrimSuffix(line, "\n")
			}
			if string(seg.Value(source)) != line {
				edits = append(edits, edit{segment: seg, line: line})
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, false, err
	}
	if len(edits) == 0 {
		return source, false, nil
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].segment.Start > edits[j].segment.Start })
	out := append([]byte(nil), source...)
	for _, e := range edits {
		out = append(out[:e.segment.Start], append([]byte(e.line), out[e.segment.Stop:]...)...)
	}
	return out, true, nil
}

// isTOMLFence reports whether the fence's info string begins with "toml",
// compared case-insensitively after trimming.
func isTOMLFence(fence *ast.FencedCodeBlock, source []byte) bool {
	if fence.Info == nil {
		return false
	}
	info := strings.TrimSpace(string(fence.Info.Segment.Value(source)))
	return strings.HasPrefix(strings.ToLower(info), "toml")
}

// applyFenceEdits runs the manifest-shaped rewrites over a fence document:
// package.version and workspace.package.version when present, and internal
// dependency requirements whose target is a bumped workspace member. A fence
// naming an excluded member keeps its version, mirroring the live manifests.
func applyFenceEdits(doc *manifest.Document, members, bumped map[string]bool, target string) bool {
	changed := false
	fenceCrate := fencePackageName(doc)
	if !members[fenceCrate] || bumped[fenceCrate] {
		if setVersionIfPresent(doc, "package", target) {
			changed = true
		}
	}
	if setVersionIfPresent(doc, "workspace.package", target) {
		changed = true
	}
	for _, table := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
		for _, key := range doc.TableKeys(table) {
			if !bumped[doc.DependencyTarget(table, key)] {
				continue
			}
			if doc.UpdateRequirement(table, key, target) {
				changed = true
			}
		}
	}
	return changed
}

func fencePackageName(doc *manifest.Document) string {
	raw, found := doc.Get("package", "name")
	if !found {
		return ""
	}
	return strings.Trim(raw, `"'`)
}

// writeFileAtomic mirrors the manifest store's save discipline for Markdown:
// write to a temporary file in the same directory, then rename over path.
func writeFileAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, contents, 0o644); err != nil {
		return ladingerr.ManifestParseWrap(err, "failed to write temporary file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ladingerr.ManifestParseWrap(err, "failed to replace %s", path)
	}
	return nil
}

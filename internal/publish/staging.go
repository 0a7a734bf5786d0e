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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"

	"github.com/lading-dev/lading/internal/config"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/manifest"
	"github.com/lading-dev/lading/internal/workspace"
)

// StagingOptions selects how the staging clone is prepared.
type StagingOptions struct {
	// Strip chooses the [patch.crates-io] handling for the staged root
	// manifest.
	Strip config.StripPatches
	// DereferenceSymlinks copies symlink targets instead of recreating the
	// links in the staging tree.
	DereferenceSymlinks bool
	// Cleanup removes the staging root when the context is closed. When
	// false the directory is left behind for inspection.
	Cleanup bool
}

// Staging is a prepared staging area: a temporary clone of the workspace
// with the patch table rewritten and workspace READMEs projected.
type Staging struct {
	// Root is the staged workspace root.
	Root    string
	cleanup bool
}

// Close releases the staging area, deleting it when cleanup was requested.
func (s *Staging) Close() error {
	if !s.cleanup {
		return nil
	}
	return os.RemoveAll(s.Root)
}

// PrepareStaging clones the workspace into a fresh temporary directory,
// applies the patch-strip strategy to the staged root manifest, and copies
// the workspace README into every crate that inherits it.
func PrepareStaging(g *workspace.Graph, plan *Plan, opts StagingOptions) (*Staging, error) {
	name := fmt.Sprintf("lading-%s-%s", strcase.ToKebab(filepath.Base(g.Root)), uuid.NewString())
	root := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, ladingerr.StagingWrap(err, "failed to create staging directory %s", root)
	}
	staging := &Staging{Root: root, cleanup: opts.Cleanup}

	if err := copyTree(g.Root, root, opts.DereferenceSymlinks); err != nil {
		staging.Close()
		return nil, err
	}
	if err := stripPatches(filepath.Join(root, "Cargo.toml"), opts.Strip, plan.Publishable); err != nil {
		staging.Close()
		return nil, err
	}
	if err := projectReadme(g, staging); err != nil {
		staging.Close()
		return nil, err
	}
	return staging, nil
}

// CrateDir returns the staged directory of the named crate.
func (s *Staging) CrateDir(g *workspace.Graph, name string) (string, error) {
	crate, ok := g.ByName(name)
	if !ok {
		return "", ladingerr.Staging("crate %q is not a workspace member", name)
	}
	rel, err := filepath.Rel(g.Root, filepath.Dir(crate.ManifestPath))
	if err != nil {
		return "", ladingerr.StagingWrap(err, "failed to relativize crate %q", name)
	}
	return filepath.Join(s.Root, rel), nil
}

// RootManifest returns the path of the staged workspace manifest.
func (s *Staging) RootManifest() string {
	return filepath.Join(s.Root, "Cargo.toml")
}

// copyTree mirrors src into dst. Symbolic links are recreated as links by
// default; with dereference set, their targets are copied instead.
func copyTree(src, dst string, dereference bool) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return ladingerr.StagingWrap(err, "failed to read directory %s", src)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return ladingerr.StagingWrap(err, "failed to stat %s", srcPath)
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			if err := copySymlink(srcPath, dstPath, dereference); err != nil {
				return err
			}
		case entry.IsDir():
			if err := os.MkdirAll(dstPath, info.Mode().Perm()); err != nil {
				return ladingerr.StagingWrap(err, "failed to create %s", dstPath)
			}
			if err := copyTree(srcPath, dstPath, dereference); err != nil {
				return err
			}
		default:
			if err := copyFile(srcPath, dstPath, info.Mode().Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

func copySymlink(src, dst string, dereference bool) error {
	if !dereference {
		target, err := os.Readlink(src)
		if err != nil {
			return ladingerr.StagingWrap(err, "failed to read symlink %s", src)
		}
		if err := os.Symlink(target, dst); err != nil {
			return ladingerr.StagingWrap(err, "failed to recreate symlink %s", dst)
		}
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return ladingerr.StagingWrap(err, "failed to resolve symlink %s", src)
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return ladingerr.StagingWrap(err, "failed to create %s", dst)
		}
		return copyTree(src, dst, true)
	}
	return copyFile(src, dst, info.Mode().Perm())
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return ladingerr.StagingWrap(err, "failed to open %s", src)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return ladingerr.StagingWrap(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return ladingerr.StagingWrap(err, "failed to copy %s", src)
	}
	return out.Close()
}

// stripPatches applies the configured strategy to the staged root manifest's
// [patch.crates-io] table and removes an orphaned [patch] parent.
func stripPatches(path string, strategy config.StripPatches, publishable []string) error {
	doc, err := manifest.Load(path)
	if err != nil {
		return err
	}
	changed := false
	switch strategy {
	case config.StripAll:
		changed = doc.RemoveTable("patch.crates-io")
	case config.StripPerCrate:
		// Entries come out one at a time as the executor reaches each crate;
		// here only empty leftovers are tidied up.
	case config.StripNone:
		return nil
	}
	if doc.HasTable("patch.crates-io") && doc.IsTableEmpty("patch.crates-io") {
		changed = doc.RemoveTable("patch.crates-io") || changed
	}
	if doc.HasTable("patch") && doc.IsTableEmpty("patch") {
		changed = doc.RemoveTable("patch") || changed
	}
	if !changed {
		return nil
	}
	return manifest.Save(doc, path)
}

// StripCratePatch removes a single crate's entry from the staged root
// manifest's patch table, tidying empty leftovers. The executor calls this
// just before packaging each crate under the per_crate strategy.
func (s *Staging) StripCratePatch(name string) error {
	path := s.RootManifest()
	doc, err := manifest.Load(path)
	if err != nil {
		return err
	}
	changed := doc.RemoveKey("patch.crates-io", name)
	if doc.HasTable("patch.crates-io") && doc.IsTableEmpty("patch.crates-io") {
		changed = doc.RemoveTable("patch.crates-io") || changed
	}
	if doc.HasTable("patch") && doc.IsTableEmpty("patch") {
		changed = doc.RemoveTable("patch") || changed
	}
	if !changed {
		return nil
	}
	return manifest.Save(doc, path)
}

// projectReadme copies the workspace README into every staged crate whose
// manifest sets package.readme.workspace = true.
func projectReadme(g *workspace.Graph, s *Staging) error {
	var inheritors []workspace.Crate
	for _, crate := range g.Crates {
		if crate.ReadmeInheritsWorkspace {
			inheritors = append(inheritors, crate)
		}
	}
	if len(inheritors) == 0 {
		return nil
	}
	source := filepath.Join(g.Root, "README.md")
	contents, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return ladingerr.Staging("Workspace README.md is required by crates that set readme.workspace = true; %s does not exist", source)
		}
		return ladingerr.StagingWrap(err, "failed to read workspace README %s", source)
	}
	for _, crate := range inheritors {
		dir, err := s.CrateDir(g, crate.Name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "README.md"), contents, 0o644); err != nil {
			return ladingerr.StagingWrap(err, "failed to project README into crate %q", crate.Name)
		}
	}
	return nil
}

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

package lading

import (
	"context"

	"github.com/lading-dev/lading/internal/cargometa"
	"github.com/lading-dev/lading/internal/config"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/runner"
	"github.com/lading-dev/lading/internal/workspace"
)

// loadWorkspace resolves the workspace root, loads lading.toml, asks cargo
// for the workspace metadata, and builds the graph every command operates
// on.
func loadWorkspace(ctx context.Context, r runner.Runner, rootFlag string) (*workspace.Graph, *config.Config, error) {
	root, err := config.WorkspaceRoot(rootFlag)
	if err != nil {
		return nil, nil, err
	}
	exportRoot(root)

	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	result, err := r.Run(ctx, "cargo", []string{"metadata", "--format-version", "1", "--no-deps"}, root, nil)
	if err != nil {
		return nil, nil, err
	}
	if result.ExitCode != 0 {
		return nil, nil, ladingerr.CargoMetadata("cargo metadata failed with exit code %d: %s", result.ExitCode, result.Stderr)
	}
	md, err := cargometa.Parse([]byte(result.Stdout))
	if err != nil {
		return nil, nil, err
	}
	graph, err := workspace.Build(root, md)
	if err != nil {
		return nil, nil, err
	}
	return graph, cfg, nil
}

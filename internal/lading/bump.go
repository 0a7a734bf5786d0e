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
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/runner"
	"github.com/lading-dev/lading/internal/version"
)

func bumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "bump",
		Usage:     "propagates a new version across the workspace",
		UsageText: "lading bump <VERSION> [--dry-run] [--only <crate>]",
		Flags: []cli.Flag{
			workspaceRootFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "report the changes without writing any file",
			},
			&cli.StringFlag{
				Name:  "only",
				Usage: "bump a single crate and the requirements that point at it",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target := cmd.Args().First()
			if target == "" {
				return ladingerr.InvalidVersion("bump requires a version argument")
			}
			return bump(ctx, runner.Real{}, resolveRoot(cmd), target, cmd.Bool("dry-run"), cmd.String("only"))
		},
	}
}

func bump(ctx context.Context, r runner.Runner, rootFlag, target string, dryRun bool, only string) error {
	graph, cfg, err := loadWorkspace(ctx, r, rootFlag)
	if err != nil {
		return err
	}
	report, err := version.Bump(graph, target, version.Options{
		Exclude:  cfg.Bump.Exclude,
		DocGlobs: cfg.Bump.Documentation.Globs,
		Only:     only,
		DryRun:   dryRun,
	})
	if err != nil {
		return err
	}
	if report.Empty() {
		fmt.Println("no changes required")
		return nil
	}
	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	for _, path := range report.Manifests {
		fmt.Printf("%s %s\n", verb, path)
	}
	for _, path := range report.Docs {
		fmt.Printf("%s %s\n", verb, path)
	}
	return nil
}

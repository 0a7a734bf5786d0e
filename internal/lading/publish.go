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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/lading-dev/lading/internal/gitrepo"
	"github.com/lading-dev/lading/internal/publish"
	"github.com/lading-dev/lading/internal/runner"
)

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "stages, validates, and publishes the workspace crates",
		UsageText: "lading publish [--live] [--forbid-dirty]",
		Flags: []cli.Flag{
			workspaceRootFlag(),
			&cli.BoolFlag{
				Name:  "live",
				Usage: "publish for real instead of --dry-run",
			},
			&cli.BoolFlag{
				Name:  "forbid-dirty",
				Usage: "fail if the workspace has uncommitted changes",
			},
			&cli.BoolFlag{
				Name:  "keep-staging",
				Usage: "leave the staging directory behind for inspection",
			},
			&cli.BoolFlag{
				Name:  "dereference-symlinks",
				Usage: "copy symlink targets into the staging tree instead of links",
			},
			&cli.IntFlag{
				Name:  "stderr-tail-lines",
				Usage: "override preflight.stderr_tail_lines for this run",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := publishRunOptions{
				live:                cmd.Bool("live"),
				forbidDirty:         cmd.Bool("forbid-dirty"),
				keepStaging:         cmd.Bool("keep-staging"),
				dereferenceSymlinks: cmd.Bool("dereference-symlinks"),
				stderrTailLines:     int(cmd.Int("stderr-tail-lines")),
			}
			return runPublish(ctx, runner.Real{}, resolveRoot(cmd), opts)
		},
	}
}

type publishRunOptions struct {
	live                bool
	forbidDirty         bool
	keepStaging         bool
	dereferenceSymlinks bool
	stderrTailLines     int
}

func runPublish(ctx context.Context, r runner.Runner, rootFlag string, opts publishRunOptions) error {
	graph, cfg, err := loadWorkspace(ctx, r, rootFlag)
	if err != nil {
		return err
	}
	if repo, err := gitrepo.Open(ctx, graph.Root); err == nil {
		if head, err := gitrepo.HeadHash(ctx, repo); err == nil {
			slog.Info("publishing workspace", "root", graph.Root, "commit", head)
		}
	}

	plan, err := publish.BuildPlan(graph, cfg)
	if err != nil {
		return err
	}
	if len(plan.Publishable) == 0 {
		fmt.Println("no crates to publish")
		return nil
	}

	preflightCfg := cfg.Preflight
	if opts.stderrTailLines > 0 {
		preflightCfg.StderrTailLines = opts.stderrTailLines
	}
	if err := publish.RunPreflight(ctx, r, graph.Root, publish.PreflightOptions{
		ForbidDirty: opts.forbidDirty,
		Config:      preflightCfg,
	}); err != nil {
		return err
	}

	staging, err := publish.PrepareStaging(graph, plan, publish.StagingOptions{
		Strip:               cfg.Publish.StripPatches,
		DereferenceSymlinks: opts.dereferenceSymlinks,
		Cleanup:             !opts.keepStaging,
	})
	if err != nil {
		return err
	}
	defer staging.Close()
	if opts.keepStaging {
		fmt.Printf("staging directory kept at %s\n", staging.Root)
	}

	results, err := publish.ExecutePlan(ctx, r, graph, plan, staging, publish.ExecuteOptions{
		Live:  opts.live,
		Strip: cfg.Publish.StripPatches,
	})
	for _, result := range results {
		fmt.Printf("%s: %s\n", result.Name, result.Outcome)
	}
	return err
}

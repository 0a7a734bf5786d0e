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
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/publish"
	"github.com/lading-dev/lading/internal/runner"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "prints the publish order without staging or publishing",
		UsageText: "lading plan [--format text|yaml]",
		Flags: []cli.Flag{
			workspaceRootFlag(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "output format: text or yaml",
				Value: "text",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return printPlan(ctx, runner.Real{}, resolveRoot(cmd), cmd.String("format"))
		},
	}
}

func printPlan(ctx context.Context, r runner.Runner, rootFlag, format string) error {
	graph, cfg, err := loadWorkspace(ctx, r, rootFlag)
	if err != nil {
		return err
	}
	plan, err := publish.BuildPlan(graph, cfg)
	if err != nil {
		return err
	}
	switch format {
	case "yaml":
		out, err := yaml.Marshal(plan)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	case "text", "":
		if len(plan.Publishable) == 0 {
			fmt.Println("no crates to publish")
		} else {
			fmt.Printf("publish order: %s\n", strings.Join(plan.Publishable, ", "))
		}
		if len(plan.SkippedByManifest) > 0 {
			fmt.Printf("skipped (publish = false): %s\n", strings.Join(plan.SkippedByManifest, ", "))
		}
		if len(plan.SkippedByConfig) > 0 {
			fmt.Printf("skipped (publish.exclude): %s\n", strings.Join(plan.SkippedByConfig, ", "))
		}
		if len(plan.UnknownExclusions) > 0 {
			fmt.Printf("unknown exclusions: %s\n", strings.Join(plan.UnknownExclusions, ", "))
		}
	default:
		return ladingerr.Config("unknown plan format %q", format)
	}
	return nil
}

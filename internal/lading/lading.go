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

// Package lading contains the command-line front-end for the workspace
// release orchestrator. The business logic lives in the component packages
// (workspace, version, publish); this package only parses arguments, loads
// configuration, and maps component errors to exit status.
package lading

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lading-dev/lading/internal/logging"
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:      "lading",
		Usage:     "orchestrates version bumps and releases for a Cargo workspace",
		UsageText: "lading [--workspace-root <path>] <command> [arguments]",
		Flags: []cli.Flag{
			workspaceRootFlag(),
		},
		Commands: []*cli.Command{
			bumpCommand(),
			planCommand(),
			publishCommand(),
		},
	}
}

func workspaceRootFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "workspace-root",
		Usage: "path of the Cargo workspace to operate on (default: working directory)",
	}
}

// Run executes the lading CLI with the given command line arguments.
func Run(ctx context.Context, args ...string) error {
	logging.Init()
	slog.Debug("lading", "arguments", args)
	return rootCommand().Run(ctx, args)
}

// resolveRoot reads the workspace-root flag from the subcommand or, when
// given ahead of the subcommand, from the root command.
func resolveRoot(cmd *cli.Command) string {
	if v := cmd.String("workspace-root"); v != "" {
		return v
	}
	return cmd.Root().String("workspace-root")
}

// exportRoot publishes the resolved root to subprocesses.
func exportRoot(root string) {
	os.Setenv("LADING_WORKSPACE_ROOT", root)
}

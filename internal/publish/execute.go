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
	"context"
	"log/slog"
	"strings"

	"github.com/lading-dev/lading/internal/config"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/runner"
	"github.com/lading-dev/lading/internal/workspace"
)

// Outcome records what happened to one crate during execution.
type Outcome string

const (
	OutcomePublished        Outcome = "published"
	OutcomeDryRun           Outcome = "dry_run"
	OutcomeAlreadyPublished Outcome = "already_published"
	OutcomeFailed           Outcome = "failed"
)

// CrateResult is one crate's aggregated execution outcome.
type CrateResult struct {
	Name    string
	Outcome Outcome
}

// ExecuteOptions carries the executor's inputs beyond the plan itself.
type ExecuteOptions struct {
	// Live publishes for real; otherwise every publish gets --dry-run.
	Live bool
	// Strip is the staging patch-strip strategy; under per_crate the
	// executor removes each crate's patch entry just before packaging it.
	Strip config.StripPatches
}

// ExecutePlan walks the plan in order, packaging and publishing each crate
// from its staged directory. A publish rejected because the version already
// exists is downgraded to a warning; any other failure stops the run. No
// rollback is attempted.
func ExecutePlan(ctx context.Context, r runner.Runner, g *workspace.Graph, plan *Plan, staging *Staging, opts ExecuteOptions) ([]CrateResult, error) {
	var results []CrateResult
	for _, name := range plan.Publishable {
		result, err := executeCrate(ctx, r, g, staging, name, opts)
		if err != nil {
			results = append(results, CrateResult{Name: name, Outcome: OutcomeFailed})
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func executeCrate(ctx context.Context, r runner.Runner, g *workspace.Graph, staging *Staging, name string, opts ExecuteOptions) (CrateResult, error) {
	if opts.Strip == config.StripPerCrate {
		if err := staging.StripCratePatch(name); err != nil {
			return CrateResult{}, err
		}
	}
	dir, err := staging.CrateDir(g, name)
	if err != nil {
		return CrateResult{}, err
	}

	result, err := r.Run(ctx, "cargo", []string{"package"}, dir, nil)
	if err != nil {
		return CrateResult{}, err
	}
	if result.ExitCode != 0 {
		return CrateResult{}, ladingerr.PublishStep("cargo package failed for crate %q (exit code %d):\n%s",
			name, result.ExitCode, tailLines(result.Stderr, 40))
	}

	argv := []string{"publish"}
	if !opts.Live {
		argv = append(argv, "--dry-run")
	}
	result, err = r.Run(ctx, "cargo", argv, dir, nil)
	if err != nil {
		return CrateResult{}, err
	}
	if result.ExitCode != 0 {
		if isAlreadyPublished(result.Stderr) {
			slog.Warn("crate version already published, continuing", "crate", name)
			return CrateResult{Name: name, Outcome: OutcomeAlreadyPublished}, nil
		}
		return CrateResult{}, ladingerr.PublishStep("cargo publish failed for crate %q (exit code %d):\n%s",
			name, result.ExitCode, tailLines(result.Stderr, 40))
	}
	outcome := OutcomeDryRun
	if opts.Live {
		outcome = OutcomePublished
	}
	return CrateResult{Name: name, Outcome: outcome}, nil
}

// isAlreadyPublished recognises the registry's "this exact crate version is
// already on the index" responses, which differ slightly across registry
// backends.
func isAlreadyPublished(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "already uploaded") ||
		(strings.Contains(lower, "crate version") && strings.Contains(lower, "already exists"))
}

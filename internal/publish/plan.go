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

// Package publish implements the publish half of the release orchestrator:
// planning the crate order, staging the workspace into a temporary clone,
// running the pre-flight commands, and packaging/publishing each crate.
package publish

import (
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/lading-dev/lading/internal/config"
	"github.com/lading-dev/lading/internal/ladingerr"
	"github.com/lading-dev/lading/internal/workspace"
)

// Plan is the planner's output: the publishable crates in publication
// order plus the bookkeeping about what was skipped and why.
type Plan struct {
	Publishable       []string `yaml:"publishable"`
	SkippedByManifest []string `yaml:"skipped_by_manifest,omitempty"`
	SkippedByConfig   []string `yaml:"skipped_by_config,omitempty"`
	UnknownExclusions []string `yaml:"unknown_exclusions,omitempty"`
}

// BuildPlan selects the publishable crates, validates the configured
// exclusions and explicit order, and produces a deterministic publication
// order that respects every non-dev internal dependency edge.
func BuildPlan(g *workspace.Graph, cfg *config.Config) (*Plan, error) {
	excluded := make(map[string]bool, len(cfg.Publish.Exclude))
	for _, name := range cfg.Publish.Exclude {
		excluded[name] = false
	}

	plan := &Plan{}
	candidates := map[string]workspace.Crate{}
	for _, crate := range g.Crates {
		if !crate.Publishable {
			plan.SkippedByManifest = append(plan.SkippedByManifest, crate.Name)
			continue
		}
		if _, ok := excluded[crate.Name]; ok {
			excluded[crate.Name] = true
			plan.SkippedByConfig = append(plan.SkippedByConfig, crate.Name)
			continue
		}
		candidates[crate.Name] = crate
	}
	for _, name := range cfg.Publish.Exclude {
		matched := excluded[name]
		if _, isMember := g.ByName(name); matched || isMember {
			continue
		}
		plan.UnknownExclusions = append(plan.UnknownExclusions, name)
	}
	sort.Strings(plan.SkippedByManifest)
	sort.Strings(plan.SkippedByConfig)
	sort.Strings(plan.UnknownExclusions)

	if len(cfg.Publish.Order) > 0 {
		order, err := validateExplicitOrder(cfg.Publish.Order, candidates)
		if err != nil {
			return nil, err
		}
		plan.Publishable = order
		return plan, nil
	}

	order, err := topoSort(candidates)
	if err != nil {
		return nil, err
	}
	plan.Publishable = order
	return plan, nil
}

// validateExplicitOrder checks that publish.order is a duplicate-free
// permutation of the candidate set and returns it verbatim.
func validateExplicitOrder(order []string, candidates map[string]workspace.Crate) ([]string, error) {
	seen := map[string]bool{}
	var duplicates, unknown []string
	for _, name := range order {
		if seen[name] {
			duplicates = append(duplicates, name)
			continue
		}
		seen[name] = true
		if _, ok := candidates[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return nil, ladingerr.PublishPlan("Duplicate publish.order entries: %s", strings.Join(duplicates, ", "))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, ladingerr.PublishPlan("Unknown publish.order entries: %s", strings.Join(unknown, ", "))
	}
	want := make([]string, 0, len(candidates))
	for name := range candidates {
		want = append(want, name)
	}
	sort.Strings(want)
	got := append([]string(nil), order...)
	sort.Strings(got)
	if diff := cmp.Diff(want, got); diff != "" {
		return nil, ladingerr.PublishPlan("publish.order does not cover the publishable set (-candidates +order):\n%s", diff)
	}
	return order, nil
}

// topoSort orders the candidates with Kahn's algorithm over non-dev edges,
// keeping the ready queue in lexicographic order at each step so the result
// is identical across runs and platforms.
func topoSort(candidates map[string]workspace.Crate) ([]string, error) {
	// dependents[a] lists crates that depend on a; indegree counts each
	// candidate's unmet non-dev dependencies within the candidate set.
	dependents := map[string][]string{}
	indegree := map[string]int{}
	for name := range candidates {
		indegree[name] = 0
	}
	for name, crate := range candidates {
		counted := map[string]bool{}
		for _, dep := range crate.InternalDependencies {
			if dep.KindIsDevOnly || counted[dep.TargetName] {
				continue
			}
			if _, ok := candidates[dep.TargetName]; !ok {
				continue
			}
			counted[dep.TargetName] = true
			dependents[dep.TargetName] = append(dependents[dep.TargetName], name)
			indegree[name]++
		}
	}

	var ready []string
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		inserted := false
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				inserted = true
			}
		}
		if inserted {
			sort.Strings(ready)
		}
	}

	if len(order) != len(candidates) {
		var cycle []string
		for name, degree := range indegree {
			if degree > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, ladingerr.PublishPlan("dependency cycle among publishable crates: %s", strings.Join(cycle, ", "))
	}
	return order, nil
}

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

package runner

import (
	"context"
	"strings"
	"sync"
)

// Invocation records one call made through a Mock.
type Invocation struct {
	Program string
	Argv    []string
	Cwd     string
}

// Mock is a Runner that records every invocation and returns canned results,
// keyed by "program arg1 arg2 ...". Tests needing to simulate cargo/git
// behavior without spawning real processes should use this instead of Real.
type Mock struct {
	mu      sync.Mutex
	Got     []Invocation
	Results map[string]Result
	Errors  map[string]error
	// Default is used when no more specific Results/Errors entry matches.
	Default Result
}

func key(program string, argv []string) string {
	return strings.Join(append([]string{program}, argv...), " ")
}

// Run implements Runner.
func (m *Mock) Run(ctx context.Context, program string, argv []string, cwd string, env []string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Got = append(m.Got, Invocation{Program: program, Argv: argv, Cwd: cwd})

	k := key(program, argv)
	if err, ok := m.Errors[k]; ok {
		return Result{}, err
	}
	if result, ok := m.Results[k]; ok {
		return result, nil
	}
	return m.Default, nil
}

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

package manifest

import (
	"regexp"
	"strings"

	"github.com/lading-dev/lading/internal/semver"
)

var inlineVersionRE = regexp.MustCompile(`(version\s*=\s*)("([^"]*)"|'([^']*)')`)
var inlinePathRE = regexp.MustCompile(`(^|[{,]\s*)path\s*=`)

// UpdateRequirement rewrites the version carried by the dependency entry
// named key within tablePath (one of the dependency sections), preserving
// any surrounding operator prefix and inline options (path, features,
// package rename, default-features, optional). It reports whether the
// document changed.
//
// A bare string entry ("^0.1.0") has its string body rewritten in place. An
// inline table entry ({ version = "^0.1.0", path = "../x" }) has only its
// version field rewritten. An inline table with a path but no version field
// is left untouched.
func (d *Document) UpdateRequirement(tablePath, key, newVersion string) bool {
	raw, found := d.Get(tablePath, key)
	if !found {
		return false
	}
	updated, changed := rewriteDependencyValue(raw, newVersion)
	if !changed {
		return false
	}
	return d.Set(tablePath, key, updated)
}

func rewriteDependencyValue(raw, newVersion string) (string, bool) {
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') {
		quote := raw[0]
		inner := raw[1 : len(raw)-1]
		rewritten := semver.RewriteRequirement(inner, newVersion)
		if rewritten == inner {
			return raw, false
		}
		return string(quote) + rewritten + string(quote), true
	}
	if len(raw) >= 2 && raw[0] == '{' && raw[len(raw)-1] == '}' {
		m := inlineVersionRE.FindStringSubmatch(raw)
		if m == nil {
			// path-only (or otherwise versionless) inline table: no-op.
			return raw, false
		}
		quote := m[2][0]
		inner := m[3]
		if quote == '\'' {
			inner = m[4]
		}
		rewritten := semver.RewriteRequirement(inner, newVersion)
		if rewritten == inner {
			return raw, false
		}
		replacement := m[1] + string(quote) + rewritten + string(quote)
		at := strings.Index(raw, m[0])
		return raw[:at] + replacement + raw[at+len(m[0]):], true
	}
	return raw, false
}

var inlinePackageRE = regexp.MustCompile(`(?:^|[{,]\s*)package\s*=\s*("([^"]*)"|'([^']*)')`)

// DependencyTarget resolves which crate the dependency entry named key
// actually points at: the inline `package = "…"` rename when present,
// otherwise the key itself.
func (d *Document) DependencyTarget(tablePath, key string) string {
	raw, found := d.Get(tablePath, key)
	if !found {
		return key
	}
	m := inlinePackageRE.FindStringSubmatch(raw)
	if m == nil {
		return key
	}
	if m[2] != "" {
		return m[2]
	}
	return m[3]
}

// HasPathOnly reports whether the dependency entry for key within tablePath
// is an inline table carrying a path but no version field.
func (d *Document) HasPathOnly(tablePath, key string) bool {
	raw, found := d.Get(tablePath, key)
	if !found || len(raw) < 2 || raw[0] != '{' {
		return false
	}
	return inlinePathRE.MatchString(raw) && !inlineVersionRE.MatchString(raw)
}

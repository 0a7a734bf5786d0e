// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package semver validates and parses the MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]
// version grammar used by the workspace manifest engine, and extracts/
// re-applies requirement operator prefixes such as "^", "~", "=".
package semver

import (
	"fmt"
	"regexp"
	"strconv"
)

// grammar matches MAJOR.MINOR.PATCH with optional -PRERELEASE and +BUILD
// segments. Prerelease and build identifiers are dot-separated alphanumerics
// and hyphens.
var grammar = regexp.MustCompile(
	`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
		`(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
		`(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`,
)

// Version is a parsed semantic version.
type Version struct {
	Major, Minor, Patch int
	Prerelease          string
	Build               string
}

// Parse validates versionString against the semver grammar and returns its
// parsed components. "1.2", "v1.2.3", "1.2.3.4", and the empty string are
// all rejected.
func Parse(versionString string) (*Version, error) {
	m := grammar.FindStringSubmatch(versionString)
	if m == nil {
		return nil, fmt.Errorf("invalid version %q: want MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]", versionString)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return &Version{Major: major, Minor: minor, Patch: patch, Prerelease: m[4], Build: m[5]}, nil
}

// Validate reports a non-nil error if versionString fails the semver grammar.
func Validate(versionString string) error {
	_, err := Parse(versionString)
	return err
}

// String renders the version back to its canonical textual form.
func (v *Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// operators lists the recognized requirement-prefix operators, with ">=" and
// "<=" tried before ">" and "<" so the shorter forms don't shadow them.
var operators = []string{"^", "~", ">=", "<=", "=", ">", "<"}

// SplitRequirement extracts the leading operator prefix (one of
// {^, ~, =, >, >=, <, <=, (empty)}) from a dependency requirement string and
// returns it alongside the remaining version text.
func SplitRequirement(requirement string) (operator, version string) {
	for _, op := range operators {
		if len(requirement) > len(op) && requirement[:len(op)] == op {
			return op, requirement[len(op):]
		}
	}
	return "", requirement
}

// RewriteRequirement replaces the version portion of an existing requirement
// string with newVersion, preserving the requirement's operator prefix
// verbatim.
func RewriteRequirement(requirement, newVersion string) string {
	operator, _ := SplitRequirement(requirement)
	return operator + newVersion
}

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

// Package ladingerr defines the structured error taxonomy shared by every
// core component: each kind carries a one-line summary plus contextual
// detail, and is never silently swallowed.
package ladingerr

import "fmt"

// Kind classifies an Error by which component surfaced it.
type Kind string

const (
	KindConfig          Kind = "ConfigError"
	KindInvalidVersion  Kind = "InvalidVersionError"
	KindCargoMetadata   Kind = "CargoMetadataError"
	KindManifestParse   Kind = "ManifestParseError"
	KindWorkspaceInvar  Kind = "WorkspaceInvariantError"
	KindPublishPlan     Kind = "PublishPlanError"
	KindStaging         Kind = "StagingError"
	KindDirtyWorkspace  Kind = "DirtyWorkspaceError"
	KindPreflight       Kind = "PreflightError"
	KindPublishStep     Kind = "PublishStepError"
	KindUnknownProgram  Kind = "UnknownProgramError"
)

// Error is a structured application error carrying its kind, a one-line
// summary, and an optional cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

// Error returns the formatted error message, including the cause when present.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newf(kind Kind, template string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(template, args...)}
}

func wrapf(kind Kind, cause error, template string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(template, args...), Cause: cause}
}

func Config(template string, args ...any) error         { return newf(KindConfig, template, args...) }
func ConfigWrap(cause error, template string, args ...any) error {
	return wrapf(KindConfig, cause, template, args...)
}

func InvalidVersion(template string, args ...any) error {
	return newf(KindInvalidVersion, template, args...)
}

func CargoMetadata(template string, args ...any) error {
	return newf(KindCargoMetadata, template, args...)
}
func CargoMetadataWrap(cause error, template string, args ...any) error {
	return wrapf(KindCargoMetadata, cause, template, args...)
}

func ManifestParse(template string, args ...any) error {
	return newf(KindManifestParse, template, args...)
}
func ManifestParseWrap(cause error, template string, args ...any) error {
	return wrapf(KindManifestParse, cause, template, args...)
}

func WorkspaceInvariant(template string, args ...any) error {
	return newf(KindWorkspaceInvar, template, args...)
}

func PublishPlan(template string, args ...any) error {
	return newf(KindPublishPlan, template, args...)
}

func Staging(template string, args ...any) error { return newf(KindStaging, template, args...) }
func StagingWrap(cause error, template string, args ...any) error {
	return wrapf(KindStaging, cause, template, args...)
}

func DirtyWorkspace(template string, args ...any) error {
	return newf(KindDirtyWorkspace, template, args...)
}

func Preflight(template string, args ...any) error { return newf(KindPreflight, template, args...) }

func PublishStep(template string, args ...any) error {
	return newf(KindPublishStep, template, args...)
}

func UnknownProgram(template string, args ...any) error {
	return newf(KindUnknownProgram, template, args...)
}

// Is reports whether err is a *Error of the given kind, looking through
// wrapped causes.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

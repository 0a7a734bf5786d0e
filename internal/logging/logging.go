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

// Package logging configures the process-wide slog handler from the
// LADING_LOG_LEVEL environment variable.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// envVar names the environment variable controlling log verbosity.
const envVar = "LADING_LOG_LEVEL"

// Level maps a LADING_LOG_LEVEL value to a slog level. CRITICAL and WARNING
// fold onto slog.LevelError and slog.LevelWarn since the stdlib has no
// matching native levels. Unknown or empty values yield the default, INFO.
func Level(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs a text handler on os.Stderr at the level named by
// LADING_LOG_LEVEL. It is called once, at process start.
func Init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: Level(os.Getenv(envVar)),
	})
	slog.SetDefault(slog.New(handler))
}

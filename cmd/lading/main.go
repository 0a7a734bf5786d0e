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

// Binary lading orchestrates version bumps and releases for a Cargo
// workspace.
package main

import (
	"context"
	"log"
	"os"

	"github.com/lading-dev/lading/internal/lading"
)

func main() {
	ctx := context.Background()
	if err := lading.Run(ctx, os.Args...); err != nil {
		log.Fatalf("lading: %v", err)
	}
}

// Copyright 2024 Google, LLC
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

// Package pipeline orchestrates a full video run. This file manages the
// run workspace, the temp directory holding every intermediate artifact of
// one run. All paths a run produces live under a single root so cleanup is
// one directory removal, whatever state the run died in.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the scratch directory for one run.
type Workspace struct {
	RunID string
	Root  string
}

// NewWorkspace creates the run directory under baseDir. An empty baseDir
// uses the system temp directory.
func NewWorkspace(baseDir, runID string) (*Workspace, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	root := filepath.Join(baseDir, "vidgen-"+runID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run workspace: %w", err)
	}
	return &Workspace{RunID: runID, Root: root}, nil
}

// AudioPath returns the narration file path for a segment.
func (w *Workspace) AudioPath(sequence int) string {
	return filepath.Join(w.Root, fmt.Sprintf("narration-%03d.wav", sequence))
}

// VisualPath returns the visual asset path for a segment.
func (w *Workspace) VisualPath(sequence int) string {
	return filepath.Join(w.Root, fmt.Sprintf("visual-%03d.mp4", sequence))
}

// OutputPath returns the final rendered video path.
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.Root, "output.mp4")
}

// Cleanup removes the workspace and everything in it.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.Root)
}

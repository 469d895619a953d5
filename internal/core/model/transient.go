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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains struct definitions for data models that
// only live in memory during a run. They carry state between the fan-out
// workers and the plan assembly step and are never persisted as-is; the
// durable run summary lives in `persistent.go`.
package model

import "time"

// Backend identifies which synthesis backend produced a result.
type Backend string

const (
	BackendPrimary  Backend = "primary"
	BackendFallback Backend = "fallback"
)

// NarrationResult is the output of synthesizing one segment's narration.
// Duration is measured from the produced audio, not estimated from text,
// because it drives the display time of the segment's visuals.
type NarrationResult struct {
	AudioPath   string        `json:"audio_path"`   // Path to the audio file inside the run workspace.
	Duration    time.Duration `json:"duration"`     // Measured clip length; always > 0 for a valid result.
	Backend     Backend       `json:"backend_used"` // Which backend produced the audio.
	Voice       string        `json:"voice"`        // The voice name used for synthesis.
	Placeholder bool          `json:"placeholder"`  // True when this is generated silence after both backends failed.
}

// VisualAsset describes one downloaded, integrity-checked media file.
type VisualAsset struct {
	Path        string `json:"path"`         // Local path inside the run workspace.
	SourceURL   string `json:"source_url"`   // Where the asset was fetched from; empty for generated placeholders.
	MIMEType    string `json:"mime_type"`    // Sniffed MIME type (e.g. "video/mp4", "image/jpeg").
	Width       int    `json:"width"`        // Pixel width reported by the provider.
	Height      int    `json:"height"`       // Pixel height reported by the provider.
	ContentHash string `json:"content_hash"` // SHA-256 of the file body, used for de-duplication.
	Placeholder bool   `json:"placeholder"`  // True when this is the generated blank asset.
}

// IsVideo reports whether the asset holds moving footage rather than a still.
func (v *VisualAsset) IsVideo() bool {
	return len(v.MIMEType) >= 5 && v.MIMEType[:5] == "video"
}

// PlanEntry is one fully resolved segment of the final video: the narration
// clip, the visual to show while it plays, and its position on the timeline.
type PlanEntry struct {
	Sequence    int              `json:"sequence"`     // Matches the script segment ordinal.
	Role        SegmentRole      `json:"role"`         // intro, body, or outro.
	Heading     string           `json:"heading"`      // On-screen title carried over from the script.
	Narration   *NarrationResult `json:"narration"`    // Never nil; degraded segments carry generated silence.
	Visual      *VisualAsset     `json:"visual"`       // Never nil; degraded segments carry the placeholder.
	StartOffset time.Duration    `json:"start_offset"` // Running sum of prior entry durations, in script order.
	Duration    time.Duration    `json:"duration"`     // Equals the narration duration.
	Degraded    bool             `json:"degraded"`     // True when narration or visuals fell back to placeholders.
}

// VideoPlan is the time-aligned assembly plan for one run. Entries are
// always ordered by Sequence regardless of worker completion order.
type VideoPlan struct {
	RunID         string        `json:"run_id"`
	Title         string        `json:"title"`
	Language      string        `json:"language"`
	ScriptOrigin  ScriptOrigin  `json:"script_origin"`
	Entries       []*PlanEntry  `json:"entries"`
	TotalDuration time.Duration `json:"total_duration"` // Sum of all entry durations.
	DegradedCount int           `json:"degraded_count"`
	MusicPath     string        `json:"music_path,omitempty"`  // Local path of the background track; empty renders without music.
	OutputPath    string        `json:"output_path,omitempty"` // Set once the renderer has produced the MP4.
}

// Degraded reports the fraction of degraded segments, in [0, 1].
func (p *VideoPlan) DegradedFraction() float64 {
	if len(p.Entries) == 0 {
		return 0
	}
	return float64(p.DegradedCount) / float64(len(p.Entries))
}

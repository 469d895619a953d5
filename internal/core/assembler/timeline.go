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

// Package assembler turns per-segment narration and visuals into the final
// video. This file builds the time-aligned plan: each entry's start offset
// is the running total of the narration durations before it, so the visual
// timeline follows the audio exactly.
package assembler

import (
	"fmt"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// BuildPlan assembles a VideoPlan from a script and the per-segment
// results. The results slices are indexed by segment sequence and must be
// complete; a segment that fell back to placeholder visuals or silent
// narration marks its entry degraded.
func BuildPlan(runID string, s *model.Script, narrations []*model.NarrationResult, visuals []*model.VisualAsset) (*model.VideoPlan, error) {
	if len(narrations) != len(s.Segments) || len(visuals) != len(s.Segments) {
		return nil, fmt.Errorf("plan inputs are incomplete: %d segments, %d narrations, %d visuals",
			len(s.Segments), len(narrations), len(visuals))
	}

	plan := &model.VideoPlan{
		RunID:        runID,
		Title:        s.Title,
		Language:     s.Language,
		ScriptOrigin: s.Origin,
		Entries:      make([]*model.PlanEntry, 0, len(s.Segments)),
	}

	for i, seg := range s.Segments {
		narration := narrations[i]
		visual := visuals[i]
		if narration == nil || narration.Duration <= 0 {
			return nil, fmt.Errorf("segment %d has no playable narration", i)
		}
		if visual == nil {
			return nil, fmt.Errorf("segment %d has no visual", i)
		}

		entry := &model.PlanEntry{
			Sequence:    seg.Sequence,
			Role:        seg.Role,
			Heading:     seg.Heading,
			Narration:   narration,
			Visual:      visual,
			StartOffset: plan.TotalDuration,
			Duration:    narration.Duration,
			Degraded:    visual.Placeholder || narration.Placeholder,
		}
		plan.Entries = append(plan.Entries, entry)
		plan.TotalDuration += narration.Duration
		if entry.Degraded {
			plan.DegradedCount++
		}
	}

	return plan, nil
}

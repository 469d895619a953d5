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

// Package script turns a topic request into a structured narration script.
// This file derives the segment count from the requested duration using the
// configured narration pacing.
package script

import (
	"time"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// Segment count bounds for a single video. The lower bound guarantees at
// least an intro, one body segment, and an outro; the upper bound keeps the
// per-segment fan-out and the final render within reason.
const (
	MinSegments = 3
	MaxSegments = 20
)

// Defaults used when the script section of the configuration is absent.
const (
	DefaultWordsPerMinute  = 150
	DefaultWordsPerSegment = 75
)

// Pacing holds the narration pacing constants that convert a target
// duration into a segment count.
type Pacing struct {
	WordsPerMinute  int
	WordsPerSegment int
}

// NewPacing builds a Pacing from configuration, substituting defaults for
// unset values.
func NewPacing(cfg cloud.ScriptConfig) Pacing {
	p := Pacing{WordsPerMinute: cfg.WordsPerMinute, WordsPerSegment: cfg.WordsPerSegment}
	if p.WordsPerMinute <= 0 {
		p.WordsPerMinute = DefaultWordsPerMinute
	}
	if p.WordsPerSegment <= 0 {
		p.WordsPerSegment = DefaultWordsPerSegment
	}
	return p
}

// SegmentCount returns the total number of segments, including intro and
// outro, for the given kind and target duration.
//
// Long-form videos estimate the number of body segments from the total words
// spoken at the configured pace divided by the words in an average segment.
// A five minute video at the defaults yields ten body segments plus intro
// and outro, twelve in total.
//
// Short-form videos are too brief for word arithmetic to be meaningful, so
// they use fixed buckets instead.
func (p Pacing) SegmentCount(kind model.VideoKind, target time.Duration) int {
	if kind == model.KindShort {
		switch {
		case target <= 30*time.Second:
			return 4
		case target <= 60*time.Second:
			return 6
		default:
			return 8
		}
	}

	seconds := int(target / time.Second)
	body := (seconds * p.WordsPerMinute) / (60 * p.WordsPerSegment)
	if body < 1 {
		body = 1
	}
	total := body + 2
	if total < MinSegments {
		total = MinSegments
	}
	if total > MaxSegments {
		total = MaxSegments
	}
	return total
}

// BodyCount returns the number of body segments implied by a total count.
// Short-form scripts have no intro or outro, so every segment is a body
// segment.
func BodyCount(kind model.VideoKind, total int) int {
	if kind == model.KindShort {
		return total
	}
	return total - 2
}

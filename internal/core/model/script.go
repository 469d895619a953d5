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
// This file holds the script structures produced by the script generator.
// The JSON tags double as the contract for the structured LLM response, so
// renaming a field here changes the prompt contract as well.
package model

// SegmentRole identifies the position of a segment inside a script and
// drives voice selection during narration synthesis.
type SegmentRole string

const (
	RoleIntro SegmentRole = "intro"
	RoleBody  SegmentRole = "body"
	RoleOutro SegmentRole = "outro"
)

// SpeakerID distinguishes the two alternating narrators of a multi-speaker
// run. Single-speaker runs leave the segment Speaker empty.
type SpeakerID string

const (
	SpeakerA SpeakerID = "a"
	SpeakerB SpeakerID = "b"
)

// ScriptOrigin records which generation path produced a script.
type ScriptOrigin string

const (
	// OriginModel means the structured LLM call (first or stricter retry)
	// produced the script.
	OriginModel ScriptOrigin = "model"
	// OriginSecondary means the fallback text backend produced the script.
	OriginSecondary ScriptOrigin = "secondary"
	// OriginTemplate means the deterministic template produced the script
	// after all model attempts failed.
	OriginTemplate ScriptOrigin = "template"
)

// Segment is one narrated unit of the video. Narration is the text that is
// spoken; SearchTerms feed the stock media lookup for the matching visuals.
type Segment struct {
	Sequence    int         `json:"sequence"`          // Zero-based position in the script.
	Role        SegmentRole `json:"role"`              // intro, body, or outro.
	Heading     string      `json:"heading"`           // Short on-screen title for the segment.
	Narration   string      `json:"narration"`         // The full narration text for this segment.
	SearchTerms []string    `json:"search_terms"`      // Queries for the stock media provider.
	Speaker     SpeakerID   `json:"speaker,omitempty"` // Assigned after generation for multi-speaker runs; not part of the LLM contract.
}

// Script is the complete structured output of the script generator.
type Script struct {
	Title    string       `json:"title"`    // The video title.
	Topic    string       `json:"topic"`    // The topic the script was generated for.
	Language string       `json:"language"` // The language the narration is written in.
	Segments []*Segment   `json:"segments"` // Ordered segments, intro first for long form.
	Origin   ScriptOrigin `json:"-"`        // How the script was produced; not part of the LLM contract.
}

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
// This file describes the inbound request that starts a video run. Requests
// arrive either through the REST API or as JSON payloads on the Pub/Sub
// request topic; both surfaces decode into the same TopicRequest struct.
package model

import (
	"strings"
	"time"
)

// VideoKind selects the overall shape of the generated video.
type VideoKind string

const (
	// KindLong produces a narrated long-form video with a dedicated
	// introduction, a series of body segments, and a closing segment.
	KindLong VideoKind = "long"
	// KindShort produces a short vertical video without the intro/outro split.
	KindShort VideoKind = "short"
)

// MaxTargetDuration bounds how much video a single request may ask for.
const MaxTargetDuration = 30 * time.Minute

// TopicRequest is the unit of work for the whole system: a topic to turn
// into a finished video. All fields except Topic have usable defaults.
type TopicRequest struct {
	ID             string    `json:"id,omitempty"`              // Run identifier; assigned by the server when empty.
	Topic          string    `json:"topic"`                     // The subject of the video (e.g. "top 10 diving spots").
	GeneralTopic   string    `json:"general_topic,omitempty"`   // Broader theme used as prompt context and a last-resort search term. Defaults to Topic.
	Kind           VideoKind `json:"kind,omitempty"`            // Long or short form. Defaults to long.
	TargetDuration int       `json:"target_duration,omitempty"` // Desired length in seconds. Defaults to 300 for long, 45 for short.
	Language       string    `json:"language,omitempty"`        // BCP-47-ish language hint for the script and narration. Defaults to "english".
	Voice          string    `json:"voice,omitempty"`           // Optional explicit voice name overriding the configured mapping.
	MultiSpeaker   bool      `json:"multi_speaker,omitempty"`   // Alternate body segments between two voices.
}

// Normalize fills defaults in place so downstream components never have to
// re-check optional fields.
func (r *TopicRequest) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.GeneralTopic = strings.TrimSpace(r.GeneralTopic)
	if r.GeneralTopic == "" {
		r.GeneralTopic = r.Topic
	}
	if r.Kind == "" {
		r.Kind = KindLong
	}
	if r.Language == "" {
		r.Language = "english"
	}
	if r.TargetDuration == 0 {
		if r.Kind == KindShort {
			r.TargetDuration = 45
		} else {
			r.TargetDuration = 300
		}
	}
}

// Validate checks the request invariants and returns a ValidationError
// describing the first violation found.
func (r *TopicRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return &ValidationError{Field: "topic", Reason: "must not be empty"}
	}
	if r.Kind != "" && r.Kind != KindLong && r.Kind != KindShort {
		return &ValidationError{Field: "kind", Reason: "must be \"long\" or \"short\""}
	}
	if r.TargetDuration < 0 {
		return &ValidationError{Field: "target_duration", Reason: "must not be negative"}
	}
	if time.Duration(r.TargetDuration)*time.Second > MaxTargetDuration {
		return &ValidationError{Field: "target_duration", Reason: "exceeds the 30 minute ceiling"}
	}
	return nil
}

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

// Package speech synthesizes narration audio for script segments.
// This file is the synthesizer facade: it picks the voice for a segment's
// role, drives the primary backend with retry-policy backoff, and falls
// over to the fallback backend when the primary is exhausted. Every result
// records which backend actually produced the audio.
package speech

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/retry"
)

// TTSBackend produces a narration audio file for a piece of text.
type TTSBackend interface {
	// Name identifies the backend recorded on results.
	Name() model.Backend
	// Synthesize speaks text with the voice profile and writes audio to
	// outPath.
	Synthesize(ctx context.Context, text string, voice cloud.VoiceProfile, outPath string) (*model.NarrationResult, error)
}

// Synthesizer narrates segments, preferring the primary backend and falling
// back when it cannot deliver.
type Synthesizer struct {
	primary        TTSBackend
	fallback       TTSBackend // Nil when no fallback endpoint is configured.
	voices         map[string]cloud.VoiceProfile
	policy         retry.Policy
	backendCounter metric.Int64Counter
}

// NewSynthesizer wires a synthesizer. voices maps segment roles ("intro",
// "body", "outro") to voice profiles; a missing role falls back to the body
// profile.
func NewSynthesizer(primary, fallback TTSBackend, voices map[string]cloud.VoiceProfile, policy retry.Policy) *Synthesizer {
	meter := otel.Meter("github.com/unqtube/unqtube-go")
	backendCounter, _ := meter.Int64Counter("narration-backend-count")
	return &Synthesizer{
		primary:        primary,
		fallback:       fallback,
		voices:         voices,
		policy:         policy,
		backendCounter: backendCounter,
	}
}

// VoiceFor resolves the voice profile for a segment role. An explicit
// override from the request replaces the profile's voice name but keeps its
// model and style.
func (s *Synthesizer) VoiceFor(role model.SegmentRole, override string) cloud.VoiceProfile {
	profile, ok := s.voices[string(role)]
	if !ok {
		profile = s.voices[string(model.RoleBody)]
	}
	if override != "" {
		profile.Name = override
	}
	return profile
}

// Synthesize narrates one segment to outPath. The primary backend is tried
// with retry-policy backoff; when its budget is exhausted, or it produces
// unplayable audio, the fallback backend takes over. The error returned is
// the fallback's when both fail.
func (s *Synthesizer) Synthesize(ctx context.Context, seg *model.Segment, voiceOverride, outPath string) (*model.NarrationResult, error) {
	voice := s.VoiceFor(seg.Role, voiceOverride)
	// Multi-speaker runs alternate body segments onto the second narrator
	// profile when one is configured; an explicit override still wins.
	if seg.Speaker == model.SpeakerB && voiceOverride == "" {
		if alt, ok := s.voices["body_alt"]; ok {
			voice = alt
		}
	}

	result, primaryErr := s.synthesizeWith(ctx, s.primary, seg.Narration, voice, outPath)
	if primaryErr == nil {
		s.backendCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", string(result.Backend))))
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fallback == nil {
		return nil, primaryErr
	}

	slog.WarnContext(ctx, "primary narration backend failed, using fallback",
		"segment", seg.Sequence,
		"error", primaryErr)

	result, fallbackErr := s.synthesizeWith(ctx, s.fallback, seg.Narration, voice, outPath)
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	s.backendCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", string(result.Backend))))
	return result, nil
}

// synthesizeWith runs one backend under the retry policy and validates the
// produced audio is playable.
func (s *Synthesizer) synthesizeWith(ctx context.Context, backend TTSBackend, text string, voice cloud.VoiceProfile, outPath string) (*model.NarrationResult, error) {
	var result *model.NarrationResult
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = backend.Synthesize(ctx, text, voice, outPath)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.Duration <= 0 {
		return nil, fmt.Errorf("backend %s produced zero-length audio", backend.Name())
	}
	return result, nil
}

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
// This file holds the generator itself, which runs the escalation ladder:
// a structured call to the primary model, one stricter retry when the
// response cannot be parsed, the secondary backend when the primary is
// unavailable, and finally the deterministic template. The ladder ends in
// the template, so script generation as a whole never fails; only request
// cancellation stops it.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// Generator produces a Script for a TopicRequest.
type Generator struct {
	primary        TextBackend
	secondary      TextBackend // Nil when no secondary backend is configured.
	prompts        *PromptBuilder
	pacing         Pacing
	originCounter  metric.Int64Counter
	parseFailCount metric.Int64Counter
}

// NewGenerator wires a generator from its backends. The secondary backend
// may be nil, in which case the ladder goes straight from the primary's
// strict retry to the template.
func NewGenerator(primary TextBackend, secondary TextBackend, prompts *PromptBuilder, pacing Pacing) *Generator {
	meter := otel.Meter("github.com/unqtube/unqtube-go")
	originCounter, _ := meter.Int64Counter("script-generator-origin-count")
	parseFailCount, _ := meter.Int64Counter("script-generator-parse-failure-count")
	return &Generator{
		primary:        primary,
		secondary:      secondary,
		prompts:        prompts,
		pacing:         pacing,
		originCounter:  originCounter,
		parseFailCount: parseFailCount,
	}
}

// SegmentCount exposes the pacing arithmetic for the request so callers can
// size downstream work before the script exists.
func (g *Generator) SegmentCount(req *model.TopicRequest) int {
	return g.pacing.SegmentCount(req.Kind, time.Duration(req.TargetDuration)*time.Second)
}

// Generate walks the escalation ladder until a usable script exists. The
// only error it returns is context cancellation; every content failure is
// absorbed by falling through to the next rung.
func (g *Generator) Generate(ctx context.Context, req *model.TopicRequest) (*model.Script, error) {
	tracer := otel.Tracer("script-generator")
	ctx, span := tracer.Start(ctx, "generate-script")
	defer span.End()

	count := g.SegmentCount(req)
	span.SetAttributes(
		attribute.String("topic", req.Topic),
		attribute.Int("segment_count", count),
	)

	// First rung: the primary model with the standard prompt.
	if s := g.tryBackend(ctx, g.primary, req, count, false); s != nil {
		s.Origin = model.OriginModel
		g.originCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(s.Origin))))
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Second rung: the primary again with the stricter formatting suffix.
	if s := g.tryBackend(ctx, g.primary, req, count, true); s != nil {
		s.Origin = model.OriginModel
		g.originCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(s.Origin))))
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Third rung: the secondary backend, when one is configured.
	if g.secondary != nil {
		if s := g.tryBackend(ctx, g.secondary, req, count, true); s != nil {
			s.Origin = model.OriginSecondary
			g.originCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(s.Origin))))
			return s, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// Last rung: the deterministic template. Cannot fail.
	slog.WarnContext(ctx, "all model backends failed, using template script", "topic", req.Topic)
	s := TemplateScript(req, count)
	finalizeSegments(s, req)
	g.originCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(s.Origin))))
	return s, nil
}

// finalizeSegments applies the request-level decorations shared by every
// generation path: the broader theme becomes each segment's last-resort
// search term, and multi-speaker runs alternate body segments between the
// two narrators.
func finalizeSegments(s *model.Script, req *model.TopicRequest) {
	next := model.SpeakerA
	for _, seg := range s.Segments {
		if req.GeneralTopic != "" && seg.SearchTerms[len(seg.SearchTerms)-1] != req.GeneralTopic {
			seg.SearchTerms = append(seg.SearchTerms, req.GeneralTopic)
		}
		if req.MultiSpeaker && seg.Role == model.RoleBody {
			seg.Speaker = next
			if next == model.SpeakerA {
				next = model.SpeakerB
			} else {
				next = model.SpeakerA
			}
		}
	}
}

// tryBackend runs one prompt against one backend and returns a normalized
// script, or nil when the call failed or the response did not parse.
func (g *Generator) tryBackend(ctx context.Context, backend TextBackend, req *model.TopicRequest, count int, strict bool) *model.Script {
	prompt, err := g.prompts.Render(req, count, strict)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render script prompt", "error", err)
		return nil
	}

	raw, err := backend.GenerateText(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "text backend failed",
			"backend", backend.Name(),
			"strict", strict,
			"error", err)
		return nil
	}

	s, err := parseScript(raw, req)
	if err != nil {
		g.parseFailCount.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend.Name())))
		slog.WarnContext(ctx, "script response failed to parse",
			"backend", backend.Name(),
			"strict", strict,
			"error", err)
		return nil
	}
	return s
}

// parseScript decodes the raw model output and normalizes it into a valid
// Script: sequences renumbered, roles filled in by position, and every
// segment guaranteed a search term.
func parseScript(raw string, req *model.TopicRequest) (*model.Script, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var s model.Script
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return nil, fmt.Errorf("invalid script JSON: %w", err)
	}
	if len(s.Segments) == 0 {
		return nil, fmt.Errorf("script contains no segments")
	}
	for i, seg := range s.Segments {
		if seg == nil || strings.TrimSpace(seg.Narration) == "" {
			return nil, fmt.Errorf("segment %d has empty narration", i)
		}
	}

	for i, seg := range s.Segments {
		seg.Sequence = i
		seg.Role = roleFor(req.Kind, i, len(s.Segments), seg.Role)
		if len(seg.SearchTerms) == 0 {
			seg.SearchTerms = []string{fmt.Sprintf("%s %d", req.Topic, i+1)}
		}
	}
	if s.Title == "" {
		s.Title = englishTitle(req.Topic)
	}
	if s.Topic == "" {
		s.Topic = req.Topic
	}
	if s.Language == "" {
		s.Language = req.Language
	}
	finalizeSegments(&s, req)
	return &s, nil
}

// roleFor normalizes a segment role. Unknown or missing roles get the
// positional default: intro first, outro last, body in between for long
// form, body everywhere for shorts.
func roleFor(kind model.VideoKind, index, total int, declared model.SegmentRole) model.SegmentRole {
	switch declared {
	case model.RoleIntro, model.RoleBody, model.RoleOutro:
		if kind == model.KindShort {
			return model.RoleBody
		}
		return declared
	}
	if kind == model.KindShort {
		return model.RoleBody
	}
	switch index {
	case 0:
		return model.RoleIntro
	case total - 1:
		return model.RoleOutro
	default:
		return model.RoleBody
	}
}

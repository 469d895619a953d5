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

// Package pipeline orchestrates a full video run: script generation, the
// concurrent per-segment fan-out for narration and visuals, the degraded
// run policy, plan assembly, and the final render.
//
// Logic Flow:
//  1. Normalize and validate the request, then create the run workspace.
//  2. Generate the script (the generator itself never fails outright).
//  3. Fan the segments out to a worker pool. Each worker synthesizes the
//     segment's narration, then fetches its visual. A segment whose search
//     comes up empty gets a generated placeholder sized to the narration;
//     a segment whose narration fails on every backend gets generated
//     silence. Either substitution marks the segment degraded. Results land
//     in sequence-indexed slices, so script order is preserved no matter
//     which worker finishes first.
//  4. Apply the degraded policy: when the fraction of placeholder-backed
//     segments exceeds the threshold the run fails instead of publishing a
//     mostly-blank video.
//  5. Build the time-aligned plan and render it.
//
// Any failure cleans up the workspace before returning. On success the
// caller owns the workspace until the rendered file is uploaded.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/unqtube/unqtube-go/internal/core/assembler"
	"github.com/unqtube/unqtube-go/internal/core/cache"
	"github.com/unqtube/unqtube-go/internal/core/media"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/speech"
)

// DefaultDegradedThreshold fails a run when more than half its segments
// had to fall back to placeholder visuals.
const DefaultDegradedThreshold = 0.5

// ScriptGenerator produces the script for a request.
type ScriptGenerator interface {
	Generate(ctx context.Context, req *model.TopicRequest) (*model.Script, error)
}

// Narrator synthesizes one segment's narration to outPath.
type Narrator interface {
	Synthesize(ctx context.Context, seg *model.Segment, voiceOverride, outPath string) (*model.NarrationResult, error)
}

// VisualFetcher finds one segment's visual. Implementations are run-scoped
// because cross-segment deduplication is per run.
type VisualFetcher interface {
	Fetch(ctx context.Context, terms []string, outPath string) (*model.VisualAsset, error)
}

// PlanRenderer renders a finished plan to plan.OutputPath.
type PlanRenderer interface {
	Render(ctx context.Context, plan *model.VideoPlan, workDir string) error
}

// PlaceholderFunc generates a blank visual for a degraded segment.
type PlaceholderFunc func(path string, width, height int, duration time.Duration) (*model.VisualAsset, error)

// SilenceFunc generates placeholder narration for a segment whose synthesis
// failed on every backend.
type SilenceFunc func(path string, duration time.Duration) (*model.NarrationResult, error)

// MusicFunc supplies a background track for a run, downloaded into the run
// workspace. An empty path with a nil error means no track is available.
type MusicFunc func(ctx context.Context, destDir string) (string, error)

// Options wires an Orchestrator. NewVisualFetcher is called once per run;
// NewRenderer once per run with the request's kind so shorts render
// portrait.
type Options struct {
	Generator         ScriptGenerator
	Narrator          Narrator
	NewVisualFetcher  func() VisualFetcher
	NewRenderer       func(kind model.VideoKind) PlanRenderer
	Placeholder       PlaceholderFunc
	Silence           SilenceFunc
	Music             MusicFunc // Nil disables background music.
	Cache             *cache.SegmentCache
	Workers           int
	DegradedThreshold float64
	BaseDir           string
}

// Orchestrator executes video runs.
type Orchestrator struct {
	opts Options
}

// NewOrchestrator validates and applies option defaults.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.DegradedThreshold <= 0 {
		opts.DegradedThreshold = DefaultDegradedThreshold
	}
	if opts.Placeholder == nil {
		opts.Placeholder = media.Placeholder
	}
	if opts.Silence == nil {
		opts.Silence = speech.Silence
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewSegmentCache(nil)
	}
	return &Orchestrator{opts: opts}
}

// RunResult is a completed run: the rendered plan plus the workspace that
// holds its files. The caller removes WorkDir once the output is published.
type RunResult struct {
	Plan    *model.VideoPlan
	WorkDir string
}

// segmentResult carries one worker's output back to the orchestrator.
type segmentResult struct {
	sequence  int
	narration *model.NarrationResult
	visual    *model.VisualAsset
	err       error
}

// Run executes one request end to end.
func (o *Orchestrator) Run(ctx context.Context, req *model.TopicRequest) (*RunResult, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "video-run")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	span.SetAttributes(
		attribute.String("run_id", req.ID),
		attribute.String("topic", req.Topic),
		attribute.String("kind", string(req.Kind)),
	)

	ws, err := NewWorkspace(o.opts.BaseDir, req.ID)
	if err != nil {
		return nil, &model.PipelineError{Stage: "workspace", Err: err}
	}
	fail := func(stage string, err error) (*RunResult, error) {
		_ = ws.Cleanup()
		span.SetStatus(codes.Error, stage)
		return nil, &model.PipelineError{Stage: stage, Err: err}
	}

	s, err := o.generateScript(ctx, req)
	if err != nil {
		return fail("script", err)
	}
	slog.InfoContext(ctx, "script ready",
		"run_id", req.ID,
		"origin", s.Origin,
		"segments", len(s.Segments))

	narrations, visuals, err := o.fanOut(ctx, req, s, ws)
	if err != nil {
		return fail("segments", err)
	}

	plan, err := assembler.BuildPlan(req.ID, s, narrations, visuals)
	if err != nil {
		return fail("plan", err)
	}
	if frac := plan.DegradedFraction(); frac > o.opts.DegradedThreshold {
		return fail("degraded-policy", fmt.Errorf(
			"%.0f%% of segments degraded to placeholders, above the %.0f%% limit",
			frac*100, o.opts.DegradedThreshold*100))
	}

	// Background music is best effort: a missing or unreadable track never
	// fails a run that has good narration.
	if o.opts.Music != nil {
		musicPath, merr := o.opts.Music(ctx, ws.Root)
		if merr != nil {
			slog.WarnContext(ctx, "background music unavailable, rendering without it",
				"run_id", req.ID,
				"error", merr)
		} else {
			plan.MusicPath = musicPath
		}
	}

	plan.OutputPath = ws.OutputPath()
	renderer := o.opts.NewRenderer(req.Kind)
	if err := renderer.Render(ctx, plan, ws.Root); err != nil {
		return fail("render", err)
	}

	span.SetStatus(codes.Ok, "run complete")
	return &RunResult{Plan: plan, WorkDir: ws.Root}, nil
}

// cachedScript is the serialized form of a script in the segment cache.
// Origin is excluded from the script's own JSON contract, so the wrapper
// carries it explicitly.
type cachedScript struct {
	Origin model.ScriptOrigin `json:"origin"`
	Script *model.Script      `json:"script"`
}

// generateScript runs the generator behind the segment cache, so repeated
// requests for the same topic and shape share one generation. The
// fingerprint covers every request field the generator bakes into the
// script, including the channel theme and the speaker alternation.
// Template fallbacks are never written through: a later request should
// get another chance at a real model script.
func (o *Orchestrator) generateScript(ctx context.Context, req *model.TopicRequest) (*model.Script, error) {
	fp := cache.NewFingerprint("script",
		req.Topic, req.GeneralTopic, string(req.Kind),
		fmt.Sprintf("%d", req.TargetDuration), req.Language,
		fmt.Sprintf("%t", req.MultiSpeaker))

	value, err := o.opts.Cache.GetOrCreate(ctx, fp,
		func(ctx context.Context) (interface{}, []byte, error) {
			s, err := o.opts.Generator.Generate(ctx, req)
			if err != nil {
				return nil, nil, err
			}
			if s.Origin == model.OriginTemplate {
				return s, nil, nil
			}
			serialized, merr := json.Marshal(&cachedScript{Origin: s.Origin, Script: s})
			if merr != nil {
				serialized = nil
			}
			return s, serialized, nil
		},
		func(data []byte) (interface{}, error) {
			var wrapper cachedScript
			if err := json.Unmarshal(data, &wrapper); err != nil {
				return nil, err
			}
			wrapper.Script.Origin = wrapper.Origin
			return wrapper.Script, nil
		})
	if err != nil {
		return nil, err
	}
	return value.(*model.Script), nil
}

// fanOut processes every segment through the worker pool and returns the
// narration and visual results indexed by segment sequence.
func (o *Orchestrator) fanOut(ctx context.Context, req *model.TopicRequest, s *model.Script, ws *Workspace) ([]*model.NarrationResult, []*model.VisualAsset, error) {
	fetcher := o.opts.NewVisualFetcher()

	var wg sync.WaitGroup
	jobs := make(chan *model.Segment, len(s.Segments))
	results := make(chan *segmentResult, len(s.Segments))

	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				results <- o.processSegment(ctx, req, seg, fetcher, ws)
			}
		}()
	}

	for _, seg := range s.Segments {
		jobs <- seg
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Sequence-indexed slices keep script order independent of worker
	// completion order.
	narrations := make([]*model.NarrationResult, len(s.Segments))
	visuals := make([]*model.VisualAsset, len(s.Segments))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("segment %d: %w", r.sequence, r.err)
			}
			continue
		}
		narrations[r.sequence] = r.narration
		visuals[r.sequence] = r.visual
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return narrations, visuals, nil
}

// processSegment produces one segment's narration and visual. A narration
// that fails on every backend degrades to generated silence; an empty media
// search degrades to a placeholder sized to the narration. Only workspace
// and cancellation errors fail the segment outright.
func (o *Orchestrator) processSegment(ctx context.Context, req *model.TopicRequest, seg *model.Segment, fetcher VisualFetcher, ws *Workspace) *segmentResult {
	result := &segmentResult{sequence: seg.Sequence}
	if err := ctx.Err(); err != nil {
		result.err = err
		return result
	}

	narration, err := o.narrate(ctx, req, seg, ws)
	if err != nil {
		if ctx.Err() != nil {
			result.err = ctx.Err()
			return result
		}
		slog.WarnContext(ctx, "segment degraded to silent narration",
			"run_id", req.ID,
			"segment", seg.Sequence,
			"error", err)
		narration, err = o.opts.Silence(ws.AudioPath(seg.Sequence), estimateNarration(seg.Narration))
		if err != nil {
			result.err = err
			return result
		}
	}
	result.narration = narration

	visual, err := fetcher.Fetch(ctx, seg.SearchTerms, ws.VisualPath(seg.Sequence))
	if err != nil {
		result.err = err
		return result
	}
	if visual == nil {
		width, height := media.PlaceholderSize(req.Kind)
		visual, err = o.opts.Placeholder(ws.VisualPath(seg.Sequence), width, height, narration.Duration)
		if err != nil {
			result.err = err
			return result
		}
		slog.WarnContext(ctx, "segment degraded to placeholder visual",
			"run_id", req.ID,
			"segment", seg.Sequence)
	}
	result.visual = visual
	return result
}

// estimateNarration approximates how long text would take to speak at a
// typical narration pace, for sizing the silent placeholder.
func estimateNarration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 3 * time.Second
	}
	return time.Duration(words) * time.Minute / 150
}

// narrate synthesizes through the segment cache: two segments with the
// same narration text and voice share one synthesis call and one audio
// file. Keys are scoped to the run because the audio lives in the run
// workspace.
func (o *Orchestrator) narrate(ctx context.Context, req *model.TopicRequest, seg *model.Segment, ws *Workspace) (*model.NarrationResult, error) {
	fp := cache.NewFingerprint("narration", req.ID, seg.Narration, string(seg.Role), string(seg.Speaker), req.Voice)

	value, err := o.opts.Cache.GetOrCreate(ctx, fp,
		func(ctx context.Context) (interface{}, []byte, error) {
			n, err := o.opts.Narrator.Synthesize(ctx, seg, req.Voice, ws.AudioPath(seg.Sequence))
			return n, nil, err
		}, nil)
	if err != nil {
		return nil, err
	}
	return value.(*model.NarrationResult), nil
}

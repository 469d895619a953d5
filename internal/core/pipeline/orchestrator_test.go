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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// fakeGenerator returns a fixed script and counts invocations.
type fakeGenerator struct {
	script *model.Script
	calls  atomic.Int32
}

func (f *fakeGenerator) Generate(_ context.Context, _ *model.TopicRequest) (*model.Script, error) {
	f.calls.Add(1)
	return f.script, nil
}

// fakeNarrator synthesizes instantly, optionally failing chosen segments
// and delaying others to shuffle completion order.
type fakeNarrator struct {
	calls    atomic.Int32
	failSeq  map[int]bool
	delaySeq map[int]time.Duration
}

func (f *fakeNarrator) Synthesize(ctx context.Context, seg *model.Segment, _ string, outPath string) (*model.NarrationResult, error) {
	f.calls.Add(1)
	if d, ok := f.delaySeq[seg.Sequence]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failSeq[seg.Sequence] {
		return nil, errors.New("synthesis failed")
	}
	return &model.NarrationResult{
		AudioPath: outPath,
		Duration:  time.Duration(seg.Sequence+1) * time.Second,
		Backend:   model.BackendPrimary,
		Voice:     "Kore",
	}, nil
}

// fakeFetcher returns a stock asset, or nil for sequences marked empty.
type fakeFetcher struct {
	emptyTerms map[string]bool
	calls      atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, terms []string, outPath string) (*model.VisualAsset, error) {
	f.calls.Add(1)
	if len(terms) > 0 && f.emptyTerms[terms[0]] {
		return nil, nil
	}
	return &model.VisualAsset{Path: outPath, MIMEType: "video/mp4", Width: 1920, Height: 1080}, nil
}

// fakeRenderer records the rendered plan without invoking ffmpeg.
type fakeRenderer struct {
	rendered *model.VideoPlan
}

func (f *fakeRenderer) Render(_ context.Context, plan *model.VideoPlan, _ string) error {
	f.rendered = plan
	return nil
}

func fakePlaceholder(path string, width, height int, _ time.Duration) (*model.VisualAsset, error) {
	return &model.VisualAsset{Path: path, Width: width, Height: height, MIMEType: "video/mp4", Placeholder: true}, nil
}

func fakeSilence(path string, duration time.Duration) (*model.NarrationResult, error) {
	return &model.NarrationResult{AudioPath: path, Duration: duration, Placeholder: true}, nil
}

func scriptFixture(n int) *model.Script {
	segments := make([]*model.Segment, 0, n)
	for i := 0; i < n; i++ {
		role := model.RoleBody
		if i == 0 {
			role = model.RoleIntro
		} else if i == n-1 {
			role = model.RoleOutro
		}
		segments = append(segments, &model.Segment{
			Sequence:    i,
			Role:        role,
			Heading:     fmt.Sprintf("Part %d", i+1),
			Narration:   fmt.Sprintf("narration for part %d", i+1),
			SearchTerms: []string{fmt.Sprintf("query %d", i+1)},
		})
	}
	return &model.Script{Title: "Test Video", Topic: "testing", Language: "english", Segments: segments, Origin: model.OriginModel}
}

type fixtures struct {
	generator *fakeGenerator
	narrator  *fakeNarrator
	fetcher   *fakeFetcher
	renderer  *fakeRenderer
}

func newTestOrchestrator(t *testing.T, f *fixtures, threshold float64) *Orchestrator {
	t.Helper()
	return NewOrchestrator(Options{
		Generator:         f.generator,
		Narrator:          f.narrator,
		NewVisualFetcher:  func() VisualFetcher { return f.fetcher },
		NewRenderer:       func(model.VideoKind) PlanRenderer { return f.renderer },
		Placeholder:       fakePlaceholder,
		Silence:           fakeSilence,
		Workers:           3,
		DegradedThreshold: threshold,
		BaseDir:           t.TempDir(),
	})
}

func defaultFixtures(n int) *fixtures {
	return &fixtures{
		generator: &fakeGenerator{script: scriptFixture(n)},
		narrator:  &fakeNarrator{},
		fetcher:   &fakeFetcher{},
		renderer:  &fakeRenderer{},
	}
}

func TestRunPreservesScriptOrder(t *testing.T) {
	f := defaultFixtures(5)
	// Early segments finish last.
	f.narrator.delaySeq = map[int]time.Duration{
		0: 40 * time.Millisecond,
		1: 30 * time.Millisecond,
		2: 20 * time.Millisecond,
	}
	o := newTestOrchestrator(t, f, 0)

	result, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)

	entries := result.Plan.Entries
	require.Len(t, entries, 5)
	var offset time.Duration
	for i, entry := range entries {
		assert.Equal(t, i, entry.Sequence)
		assert.Equal(t, offset, entry.StartOffset)
		offset += entry.Duration
	}
	assert.Equal(t, offset, result.Plan.TotalDuration)
	assert.Same(t, result.Plan, f.renderer.rendered)
	assert.NotEmpty(t, result.Plan.OutputPath)
}

func TestRunToleratesMinorityDegradation(t *testing.T) {
	f := defaultFixtures(5)
	f.fetcher.emptyTerms = map[string]bool{"query 2": true}
	o := newTestOrchestrator(t, f, 0)

	result, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Plan.DegradedCount)
	assert.True(t, result.Plan.Entries[1].Degraded)
	assert.True(t, result.Plan.Entries[1].Visual.Placeholder)
}

func TestRunFailsWhenMostSegmentsDegrade(t *testing.T) {
	f := defaultFixtures(4)
	f.fetcher.emptyTerms = map[string]bool{
		"query 1": true, "query 2": true, "query 3": true,
	}
	o := newTestOrchestrator(t, f, 0.5)

	_, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.Error(t, err)
	var pipeErr *model.PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, "degraded-policy", pipeErr.Stage)
	assert.Nil(t, f.renderer.rendered)
}

func TestRunDegradesSegmentOnNarrationError(t *testing.T) {
	f := defaultFixtures(5)
	f.narrator.failSeq = map[int]bool{1: true}
	o := newTestOrchestrator(t, f, 0)

	result, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Plan.DegradedCount)
	assert.True(t, result.Plan.Entries[1].Degraded)
	assert.True(t, result.Plan.Entries[1].Narration.Placeholder)
	assert.Positive(t, result.Plan.Entries[1].Narration.Duration)
}

func TestRunFailsWhenMostNarrationsFail(t *testing.T) {
	f := defaultFixtures(4)
	f.narrator.failSeq = map[int]bool{0: true, 1: true, 2: true}
	o := newTestOrchestrator(t, f, 0.5)

	req := &model.TopicRequest{ID: "run-x", Topic: "testing"}
	_, err := o.Run(context.Background(), req)
	require.Error(t, err)
	var pipeErr *model.PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, "degraded-policy", pipeErr.Stage)

	// The workspace is removed when a run fails.
	_, statErr := os.Stat(o.opts.BaseDir + "/vidgen-run-x")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunAttachesBackgroundMusic(t *testing.T) {
	f := defaultFixtures(3)
	o := newTestOrchestrator(t, f, 0)
	o.opts.Music = func(_ context.Context, destDir string) (string, error) {
		return destDir + "/music.mp3", nil
	}

	result, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)
	assert.Contains(t, result.Plan.MusicPath, "music.mp3")
}

func TestRunSurvivesMusicFailure(t *testing.T) {
	f := defaultFixtures(3)
	o := newTestOrchestrator(t, f, 0)
	o.opts.Music = func(context.Context, string) (string, error) {
		return "", errors.New("bucket unreachable")
	}

	result, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)
	assert.Empty(t, result.Plan.MusicPath)
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, defaultFixtures(3), 0)

	_, err := o.Run(context.Background(), &model.TopicRequest{Topic: "   "})
	var valErr *model.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newTestOrchestrator(t, defaultFixtures(3), 0)

	_, err := o.Run(ctx, &model.TopicRequest{Topic: "testing"})
	assert.Error(t, err)
}

func TestIdenticalNarrationSynthesizedOnce(t *testing.T) {
	s := scriptFixture(4)
	// Two body segments with identical narration text and role.
	s.Segments[1].Narration = "shared line"
	s.Segments[2].Narration = "shared line"
	s.Segments[1].Role = model.RoleBody
	s.Segments[2].Role = model.RoleBody

	f := defaultFixtures(4)
	f.generator.script = s
	o := newTestOrchestrator(t, f, 0)

	result, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)

	// Four segments but only three syntheses: the shared line is cached.
	assert.Equal(t, int32(3), f.narrator.calls.Load())
	assert.Equal(t, result.Plan.Entries[1].Narration.AudioPath, result.Plan.Entries[2].Narration.AudioPath)
}

func TestScriptGeneratedOncePerTopicShape(t *testing.T) {
	f := defaultFixtures(3)
	o := newTestOrchestrator(t, f, 0)

	_, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)
	_, err = o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.generator.calls.Load())
}

func TestScriptCacheKeyedByRequestDecorations(t *testing.T) {
	f := defaultFixtures(3)
	o := newTestOrchestrator(t, f, 0)

	_, err := o.Run(context.Background(), &model.TopicRequest{Topic: "testing"})
	require.NoError(t, err)

	// Multi-speaker alternation is baked into the generated script, so the
	// request cannot reuse a cached single-speaker script.
	_, err = o.Run(context.Background(), &model.TopicRequest{Topic: "testing", MultiSpeaker: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.generator.calls.Load())

	// So is the channel theme, which becomes each segment's last-resort
	// search term.
	_, err = o.Run(context.Background(), &model.TopicRequest{Topic: "testing", GeneralTopic: "travel"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.generator.calls.Load())
}

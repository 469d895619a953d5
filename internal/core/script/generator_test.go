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

package script

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// fakeBackend replays a fixed sequence of responses.
type fakeBackend struct {
	name      string
	responses []string
	errs      []error
	calls     int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) GenerateText(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		return "", errors.New("unexpected extra call")
	}
	return f.responses[i], f.errs[i]
}

func newTestGenerator(t *testing.T, primary, secondary TextBackend) *Generator {
	t.Helper()
	pacing := NewPacing(cloud.ScriptConfig{})
	prompts, err := NewPromptBuilder(cloud.PromptTemplates{}, pacing)
	require.NoError(t, err)
	return NewGenerator(primary, secondary, prompts, pacing)
}

func longRequest() *model.TopicRequest {
	req := &model.TopicRequest{Topic: "hidden beaches", Kind: model.KindLong, TargetDuration: 300}
	req.Normalize()
	return req
}

func validScriptJSON(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(model.GetExampleScript())
	require.NoError(t, err)
	return string(raw)
}

func TestSegmentCountLongForm(t *testing.T) {
	pacing := NewPacing(cloud.ScriptConfig{})

	// Five minutes at 150 wpm and 75 words per segment is ten body
	// segments, twelve total with intro and outro.
	assert.Equal(t, 12, pacing.SegmentCount(model.KindLong, 5*time.Minute))

	// Very short targets still get intro, one body, and outro.
	assert.Equal(t, 3, pacing.SegmentCount(model.KindLong, 20*time.Second))

	// Very long targets are capped.
	assert.Equal(t, MaxSegments, pacing.SegmentCount(model.KindLong, 30*time.Minute))
}

func TestSegmentCountShortBuckets(t *testing.T) {
	pacing := NewPacing(cloud.ScriptConfig{})
	assert.Equal(t, 4, pacing.SegmentCount(model.KindShort, 30*time.Second))
	assert.Equal(t, 6, pacing.SegmentCount(model.KindShort, 60*time.Second))
	assert.Equal(t, 8, pacing.SegmentCount(model.KindShort, 90*time.Second))
}

func TestTemplateScriptShape(t *testing.T) {
	req := longRequest()
	s := TemplateScript(req, 12)

	require.Len(t, s.Segments, 12)
	assert.Equal(t, model.OriginTemplate, s.Origin)
	assert.Equal(t, model.RoleIntro, s.Segments[0].Role)
	assert.Equal(t, model.RoleOutro, s.Segments[11].Role)
	for i, seg := range s.Segments {
		assert.Equal(t, i, seg.Sequence)
		assert.NotEmpty(t, seg.Narration)
		assert.NotEmpty(t, seg.SearchTerms)
	}
	// Body segments fall back to numbered topic queries for media search.
	assert.Equal(t, "hidden beaches 1", s.Segments[1].SearchTerms[0])
}

func TestGenerateUsesPrimaryModel(t *testing.T) {
	primary := &fakeBackend{
		name:      "gemini",
		responses: []string{validScriptJSON(t)},
		errs:      []error{nil},
	}
	g := newTestGenerator(t, primary, nil)

	s, err := g.Generate(context.Background(), longRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OriginModel, s.Origin)
	assert.Equal(t, 1, primary.calls)
	for i, seg := range s.Segments {
		assert.Equal(t, i, seg.Sequence)
	}
}

func TestGenerateRetriesStricterOnMalformedOutput(t *testing.T) {
	primary := &fakeBackend{
		name:      "gemini",
		responses: []string{"this is not json", "```json\n" + validScriptJSON(t) + "\n```"},
		errs:      []error{nil, nil},
	}
	g := newTestGenerator(t, primary, nil)

	s, err := g.Generate(context.Background(), longRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OriginModel, s.Origin)
	assert.Equal(t, 2, primary.calls)
}

func TestGenerateFallsBackToSecondary(t *testing.T) {
	primaryErr := &model.BackendUnavailableError{Backend: "gemini", Err: errors.New("down")}
	primary := &fakeBackend{
		name:      "gemini",
		responses: []string{"", ""},
		errs:      []error{primaryErr, primaryErr},
	}
	secondary := &fakeBackend{
		name:      "cohere",
		responses: []string{validScriptJSON(t)},
		errs:      []error{nil},
	}
	g := newTestGenerator(t, primary, secondary)

	s, err := g.Generate(context.Background(), longRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OriginSecondary, s.Origin)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestGenerateTemplateWhenEverythingFails(t *testing.T) {
	boom := errors.New("boom")
	primary := &fakeBackend{
		name:      "gemini",
		responses: []string{"", ""},
		errs:      []error{boom, boom},
	}
	g := newTestGenerator(t, primary, nil)

	req := longRequest()
	s, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.OriginTemplate, s.Origin)
	assert.Len(t, s.Segments, g.SegmentCount(req))
}

func TestGenerateStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeBackend{
		name:      "gemini",
		responses: []string{""},
		errs:      []error{nil},
	}
	g := newTestGenerator(t, primary, nil)

	_, err := g.Generate(ctx, longRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseScriptNormalizesRolesAndTerms(t *testing.T) {
	raw := `{"title":"","segments":[
		{"narration":"first part"},
		{"narration":"second part"},
		{"narration":"third part"}
	]}`
	req := longRequest()

	s, err := parseScript(raw, req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleIntro, s.Segments[0].Role)
	assert.Equal(t, model.RoleBody, s.Segments[1].Role)
	assert.Equal(t, model.RoleOutro, s.Segments[2].Role)
	// The channel theme is appended as each segment's last-resort query.
	assert.Equal(t, []string{"hidden beaches 2", "hidden beaches"}, s.Segments[1].SearchTerms)
	assert.Equal(t, "hidden beaches", s.Topic)
	assert.Equal(t, "english", s.Language)
}

func TestParseScriptAlternatesSpeakers(t *testing.T) {
	raw := `{"segments":[
		{"narration":"welcome"},
		{"narration":"first item"},
		{"narration":"second item"},
		{"narration":"third item"},
		{"narration":"goodbye"}
	]}`
	req := longRequest()
	req.MultiSpeaker = true

	s, err := parseScript(raw, req)
	require.NoError(t, err)

	// Only body segments alternate; intro and outro keep their own voices.
	assert.Empty(t, s.Segments[0].Speaker)
	assert.Equal(t, model.SpeakerA, s.Segments[1].Speaker)
	assert.Equal(t, model.SpeakerB, s.Segments[2].Speaker)
	assert.Equal(t, model.SpeakerA, s.Segments[3].Speaker)
	assert.Empty(t, s.Segments[4].Speaker)
}

func TestParseScriptRejectsEmptyNarration(t *testing.T) {
	raw := `{"segments":[{"narration":"  "}]}`
	_, err := parseScript(raw, longRequest())
	assert.Error(t, err)
}

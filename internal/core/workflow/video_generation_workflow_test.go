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

package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/core/commands"
	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
	testutil "github.com/unqtube/unqtube-go/internal/testutil"
)

// The publish and persistence commands need live GCP clients, so the chain
// tests here cover the request parsing and generation steps plus the
// chain's piping and skip semantics. The command-level behavior of the
// remaining steps is tested in the commands package.

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, req *model.TopicRequest) (*model.Script, error) {
	segments := make([]*model.Segment, 3)
	for i := range segments {
		segments[i] = &model.Segment{
			Sequence:    i,
			Role:        model.RoleBody,
			Narration:   fmt.Sprintf("line %d", i+1),
			SearchTerms: []string{fmt.Sprintf("term %d", i+1)},
		}
	}
	return &model.Script{Title: "Test", Topic: req.Topic, Language: req.Language, Segments: segments, Origin: model.OriginModel}, nil
}

type stubNarrator struct{}

func (stubNarrator) Synthesize(_ context.Context, seg *model.Segment, _ string, outPath string) (*model.NarrationResult, error) {
	return &model.NarrationResult{AudioPath: outPath, Duration: time.Second, Backend: model.BackendPrimary}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ []string, outPath string) (*model.VisualAsset, error) {
	return &model.VisualAsset{Path: outPath, MIMEType: "video/mp4"}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, _ *model.VideoPlan, _ string) error { return nil }

func newStubOrchestrator(t *testing.T) *pipeline.Orchestrator {
	t.Helper()
	return pipeline.NewOrchestrator(pipeline.Options{
		Generator:        stubGenerator{},
		Narrator:         stubNarrator{},
		NewVisualFetcher: func() pipeline.VisualFetcher { return stubFetcher{} },
		NewRenderer:      func(model.VideoKind) pipeline.PlanRenderer { return stubRenderer{} },
		Placeholder: func(path string, w, h int, _ time.Duration) (*model.VisualAsset, error) {
			return &model.VisualAsset{Path: path, Width: w, Height: h, Placeholder: true}, nil
		},
		BaseDir: t.TempDir(),
	})
}

func newGenerationChain(t *testing.T) cor.Chain {
	t.Helper()
	chain := cor.NewBaseChain("video-generation-test")
	chain.ContinueOnFailure(true)
	chain.AddCommand(commands.NewTopicRequestReader("read-topic-request"))
	chain.AddCommand(commands.NewVideoGenerate("generate-video", newStubOrchestrator(t)))
	return chain
}

func TestChainPipesRequestThroughGeneration(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, testutil.GetTestLongFormRequestText())

	newGenerationChain(t).Execute(ctx)
	require.False(t, ctx.HasErrors())

	result := ctx.Get(commands.GetRunResultName()).(*pipeline.RunResult)
	assert.Equal(t, "test-run-long-001", result.Plan.RunID)
	assert.Len(t, result.Plan.Entries, 3)

	// The workspace is registered for removal when the context closes.
	require.NotEmpty(t, ctx.GetTempFiles())
	assert.Contains(t, ctx.GetTempFiles(), result.WorkDir)
}

func TestChainSkipsGenerationOnParseFailure(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, `not json`)

	newGenerationChain(t).Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(commands.GetRunResultName()))
	assert.Empty(t, ctx.GetTempFiles())
}

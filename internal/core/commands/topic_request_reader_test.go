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

package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

func newChainContext(payload string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, payload)
	return ctx
}

func TestTopicRequestReaderParsesAndDefaults(t *testing.T) {
	ctx := newChainContext(`{"topic": "hidden beaches"}`)

	NewTopicRequestReader("read-topic-request").Execute(ctx)
	require.False(t, ctx.HasErrors())

	req := ctx.Get(GetTopicRequestName()).(*model.TopicRequest)
	assert.Equal(t, "hidden beaches", req.Topic)
	assert.Equal(t, model.KindLong, req.Kind)
	assert.Equal(t, 300, req.TargetDuration)
	assert.Equal(t, "english", req.Language)
	assert.NotEmpty(t, req.ID)
	assert.Same(t, req, ctx.Get(cor.CtxOut))
	assert.NotNil(t, ctx.Get(GetRunStartName()))
}

func TestTopicRequestReaderKeepsProducerRunID(t *testing.T) {
	ctx := newChainContext(`{"id": "run-7", "topic": "street food", "kind": "short"}`)

	NewTopicRequestReader("read-topic-request").Execute(ctx)
	require.False(t, ctx.HasErrors())

	req := ctx.Get(GetTopicRequestName()).(*model.TopicRequest)
	assert.Equal(t, "run-7", req.ID)
	assert.Equal(t, model.KindShort, req.Kind)
	assert.Equal(t, 45, req.TargetDuration)
}

func TestTopicRequestReaderRejectsMalformedJSON(t *testing.T) {
	ctx := newChainContext(`{"topic":`)

	NewTopicRequestReader("read-topic-request").Execute(ctx)
	assert.True(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(GetTopicRequestName()))
}

func TestTopicRequestReaderRejectsInvalidRequest(t *testing.T) {
	ctx := newChainContext(`{"topic": "   "}`)

	NewTopicRequestReader("read-topic-request").Execute(ctx)
	require.True(t, ctx.HasErrors())

	err := ctx.GetErrors()["read-topic-request"]
	var valErr *model.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
)

func runRecordFixtures() (*model.TopicRequest, *pipeline.RunResult) {
	req := &model.TopicRequest{
		ID:       "run-9",
		Topic:    "hidden beaches",
		Kind:     model.KindLong,
		Language: "english",
	}
	result := &pipeline.RunResult{
		Plan: &model.VideoPlan{
			RunID:        "run-9",
			ScriptOrigin: model.OriginModel,
			Entries: []*model.PlanEntry{
				{Sequence: 0, Duration: 4 * time.Second},
				{Sequence: 1, Duration: 6 * time.Second, Degraded: true},
			},
			TotalDuration: 10 * time.Second,
			DegradedCount: 1,
		},
	}
	return req, result
}

func TestBuildRunRecordDegraded(t *testing.T) {
	req, result := runRecordFixtures()
	created := time.Now().Add(-time.Minute)

	record := BuildRunRecord(req, result, "https://storage.mtls.cloud.google.com/out/run-9.mp4", created, nil)

	assert.Equal(t, "run-9", record.ID)
	assert.Equal(t, model.RunStatusDegraded, record.Status)
	assert.Equal(t, 2, record.SegmentCount)
	assert.Equal(t, 1, record.DegradedCount)
	assert.InDelta(t, 10.0, record.DurationSeconds, 0.001)
	assert.Equal(t, string(model.OriginModel), record.ScriptOrigin)
	assert.Equal(t, created, record.CreatedAt)
	assert.False(t, record.FinishedAt.IsZero())
}

func TestBuildRunRecordComplete(t *testing.T) {
	req, result := runRecordFixtures()
	result.Plan.DegradedCount = 0
	result.Plan.Entries[1].Degraded = false

	record := BuildRunRecord(req, result, "https://storage.mtls.cloud.google.com/out/run-9.mp4", time.Now(), nil)

	assert.Equal(t, model.RunStatusComplete, record.Status)
	assert.NotEmpty(t, record.VideoURL)
	assert.Empty(t, record.ErrorMessage)
}

func TestBuildRunRecordFailed(t *testing.T) {
	req, _ := runRecordFixtures()
	errs := map[string]error{"generate-video": errors.New("degraded-policy: too many placeholders")}

	record := BuildRunRecord(req, nil, "", time.Now(), errs)

	require.Equal(t, model.RunStatusFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "generate-video")
	assert.Zero(t, record.SegmentCount)
	assert.Empty(t, record.VideoURL)
}

func TestBuildRunRecordFailedAfterRender(t *testing.T) {
	// An upload failure still produces a failed record, but keeps the plan
	// metrics that were already computed.
	req, result := runRecordFixtures()
	errs := map[string]error{"publish-video": errors.New("bucket unavailable")}

	record := BuildRunRecord(req, result, "", time.Now(), errs)

	assert.Equal(t, model.RunStatusFailed, record.Status)
	assert.Equal(t, 2, record.SegmentCount)
	assert.Empty(t, record.VideoURL)
}

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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command responsible for persisting the run outcome to BigQuery.
//
// Logic Flow:
// This command is the final persistence step in the workflow and it runs for
// successful and failed runs alike (the chain is built with
// ContinueOnFailure so this command still executes after an upstream error).
// It condenses everything the chain produced into one `model.RunRecord` row:
//
//  1. It retrieves the validated request from its well-known context key.
//     Without a request there is no run ID, so nothing can be persisted and
//     the command skips itself via IsExecutable.
//  2. It reads the run result and published URL when present, and the
//     chain's error map when not, and derives the final run status from
//     them: FAILED when any command errored, DEGRADED when some segments
//     fell back to placeholders, COMPLETE otherwise.
//  3. It streams the record into the run history table through the run
//     service, which uses a BigQuery inserter rather than individual
//     `INSERT` statements.
package commands

import (
	"fmt"
	"log"
	"time"

	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
	"github.com/unqtube/unqtube-go/internal/core/services"
)

// RunPersistToBigQuery is a command that saves the run outcome to the run
// history table.
type RunPersistToBigQuery struct {
	cor.BaseCommand
	service *services.RunService // The data access layer for the run table.
}

// NewRunPersistToBigQuery is the constructor for the RunPersistToBigQuery command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - service: An initialized run service bound to the history table.
//
// Outputs:
//   - *RunPersistToBigQuery: A pointer to the newly instantiated command.
func NewRunPersistToBigQuery(name string, service *services.RunService) *RunPersistToBigQuery {
	return &RunPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), service: service}
}

// IsExecutable overrides the default behavior: the record needs a run ID,
// so the command only runs once the request reader has succeeded. It does
// not care about the chain's error state.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
//
// Outputs:
//   - bool: True if a parsed request exists in the context, otherwise false.
func (s *RunPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetTopicRequestName()) != nil
}

// Execute contains the core logic for writing the run record.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *RunPersistToBigQuery) Execute(context cor.Context) {
	req := context.Get(GetTopicRequestName()).(*model.TopicRequest)

	var result *pipeline.RunResult
	if v := context.Get(GetRunResultName()); v != nil {
		result = v.(*pipeline.RunResult)
	}
	videoURL := ""
	if v := context.Get(GetVideoURLName()); v != nil {
		videoURL = v.(string)
	}
	createdAt := time.Now()
	if v := context.Get(GetRunStartName()); v != nil {
		createdAt = v.(time.Time)
	}

	record := BuildRunRecord(req, result, videoURL, createdAt, context.GetErrors())

	if err := s.service.Insert(context.GetContext(), record); err != nil {
		log.Printf("failed to write run record for %s: %v\n", record.ID, err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("run history insert failed for '%s': %w", record.ID, err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, record)
	log.Printf("recorded run %s with status %s", record.ID, record.Status)
}

// BuildRunRecord condenses one chain execution into a run history row. The
// result and URL are optional; the error map decides between a failed and a
// successful record.
func BuildRunRecord(
	req *model.TopicRequest,
	result *pipeline.RunResult,
	videoURL string,
	createdAt time.Time,
	errs map[string]error) *model.RunRecord {

	record := &model.RunRecord{
		ID:         req.ID,
		Topic:      req.Topic,
		Kind:       string(req.Kind),
		Language:   req.Language,
		CreatedAt:  createdAt,
		FinishedAt: time.Now(),
	}

	if len(errs) > 0 || result == nil {
		record.Status = model.RunStatusFailed
		for name, err := range errs {
			record.ErrorMessage = fmt.Sprintf("%s: %v", name, err)
			break
		}
	}

	if result != nil {
		plan := result.Plan
		record.ScriptOrigin = string(plan.ScriptOrigin)
		record.SegmentCount = len(plan.Entries)
		record.DegradedCount = plan.DegradedCount
		record.DurationSeconds = plan.TotalDuration.Seconds()
		record.VideoURL = videoURL
		if record.Status == "" {
			if plan.DegradedCount > 0 {
				record.Status = model.RunStatusDegraded
			} else {
				record.Status = model.RunStatusComplete
			}
		}
	}

	return record
}

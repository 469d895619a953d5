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
// command that executes the full video generation pipeline for one request.
//
// Logic Flow:
// This command is the heart of the workflow. It hands the validated request
// to the pipeline orchestrator, which generates the script, fans the
// segments out for narration and visuals, assembles the time-aligned plan,
// and renders the final MP4 into the run workspace.
//
//  1. It retrieves the validated `model.TopicRequest` from the context.
//  2. It runs the orchestrator. All heavy lifting, including the degraded
//     run policy and workspace cleanup on failure, lives in the pipeline
//     package; this command only adapts it to the chain.
//  3. On success it registers the run workspace for removal when the chain
//     context closes, after the upload command has published the output.
//  4. The run result is stored under a well-known key and as the command
//     output, so the upload and persistence commands can reach it.
package commands

import (
	"log"

	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
)

// VideoGenerate is a command that runs the generation pipeline end to end.
type VideoGenerate struct {
	cor.BaseCommand
	orchestrator *pipeline.Orchestrator // Executes the actual run.
}

// NewVideoGenerate is the constructor for the VideoGenerate command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - orchestrator: The configured pipeline orchestrator.
//
// Outputs:
//   - *VideoGenerate: A pointer to the newly instantiated command.
func NewVideoGenerate(name string, orchestrator *pipeline.Orchestrator) *VideoGenerate {
	return &VideoGenerate{BaseCommand: *cor.NewBaseCommand(name), orchestrator: orchestrator}
}

// Execute contains the core logic for running the pipeline.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *VideoGenerate) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.TopicRequest)
	log.Printf("starting video run %s for topic '%s'", req.ID, req.Topic)

	result, err := c.orchestrator.Run(context.GetContext(), req)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)

	// The workspace holds the rendered MP4 until the upload command has
	// published it; closing the chain context removes the whole tree.
	context.AddTempFile(result.WorkDir)

	context.Add(GetRunResultName(), result)
	context.Add(c.GetOutputParam(), result)
	log.Printf("video run %s rendered %d segments (%.1fs total)",
		req.ID, len(result.Plan.Entries), result.Plan.TotalDuration.Seconds())
}

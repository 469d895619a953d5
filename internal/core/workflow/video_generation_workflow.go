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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the video generation workflow.
package workflow

import (
	"cloud.google.com/go/storage"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/commands"
	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
	"github.com/unqtube/unqtube-go/internal/core/services"
)

// VideoGenerationWorkflow orchestrates the entire process of turning a topic
// request into a published video. It's structured as a Chain of
// Responsibility (cor.Chain) that executes a sequence of commands for
// request parsing, pipeline execution, publication, and persistence.
//
// This workflow is triggered by a Pub/Sub message carrying a JSON-encoded
// topic request, and can equally be executed directly by the REST API.
type VideoGenerationWorkflow struct {
	cor.BaseCommand
	config        *cloud.Config
	storageClient *storage.Client
	orchestrator  *pipeline.Orchestrator // Runs the generation pipeline.
	runService    *services.RunService   // Persists the run outcome.
	chain         cor.Chain              // The underlying chain of commands to be executed.
}

// Execute runs the entire video generation workflow by invoking the
// underlying chain. It passes the context, which contains the initial
// trigger message and will be used to pass state between commands.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (m *VideoGenerationWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// initializeChain builds the sequence of commands that make up this
// workflow. Each command is an atomic unit of work. The output of one
// command serves as the input for the next, creating a processing pipeline.
// This method is called by the constructor.
func (m *VideoGenerationWorkflow) initializeChain() {
	// Create the chain that will hold all the command steps. The chain keeps
	// walking after a failure so the persistence step can record failed runs;
	// the commands' IsExecutable guards keep skipped steps inert.
	out := cor.NewBaseChain(m.GetName())
	out.ContinueOnFailure(true)

	// Step 1: Parse the incoming message (a JSON-encoded topic request),
	// normalize its defaults, validate it, and assign a run ID.
	out.AddCommand(commands.NewTopicRequestReader("read-topic-request"))

	// Step 2: Run the full generation pipeline: script, per-segment fan-out
	// for narration and visuals, plan assembly, and the ffmpeg render. The
	// rendered MP4 lands in the run workspace.
	out.AddCommand(commands.NewVideoGenerate("generate-video", m.orchestrator))

	// Step 3: Publish the rendered file to the output bucket, named after
	// the run ID so the history row and object can always be matched up.
	out.AddCommand(commands.NewVideoUpload("publish-video", m.storageClient, m.config.Storage.OutputBucket))

	// Step 4: Persist the run outcome, successful or not, to the run
	// history table in BigQuery.
	out.AddCommand(commands.NewRunPersistToBigQuery("write-run-history", m.runService))

	// Assign the fully constructed chain to the workflow instance.
	m.chain = out
}

// NewVideoGenerationPipeline is the constructor for the
// VideoGenerationWorkflow. It wires the shared clients and initializes the
// command chain.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for external services.
//   - orchestrator: The configured pipeline orchestrator.
//   - runService: The data access layer for the run history table.
//
// Returns:
//   - A pointer to a newly created and fully initialized VideoGenerationWorkflow.
func NewVideoGenerationPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	orchestrator *pipeline.Orchestrator,
	runService *services.RunService) *VideoGenerationWorkflow {

	workflow := &VideoGenerationWorkflow{
		BaseCommand:   *cor.NewBaseCommand("video-generation-pipeline"),
		config:        config,
		storageClient: serviceClients.StorageClient,
		orchestrator:  orchestrator,
		runService:    runService,
	}
	workflow.initializeChain()
	return workflow
}

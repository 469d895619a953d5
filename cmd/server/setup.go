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

// Package main contains the setup and initialization logic for the application's state.
// This file is responsible for creating and managing a centralized state manager
// that holds all shared dependencies, such as configuration, external service
// clients, the generation pipeline, and the run history service.
//
// It ensures that the application is configured correctly based on the environment,
// initializes all necessary clients (Storage, BigQuery, Vertex AI, etc.), builds
// the video generation pipeline from its parts, and starts the Pub/Sub listeners.
//
// Functions:
//   - SetupOS: Configures necessary environment variables for the application,
//     pointing to the correct configuration files.
//   - GetConfig: A singleton function that loads the application's configuration
//     from TOML files. It ensures the configuration is loaded only once.
//   - InitState: The core initialization function that creates all service clients,
//     assembles the pipeline orchestrator and generation workflow, and starts
//     the Pub/Sub listeners.
package main

import (
	"context"
	"log"
	"os"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/assembler"
	"github.com/unqtube/unqtube-go/internal/core/cache"
	"github.com/unqtube/unqtube-go/internal/core/media"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
	"github.com/unqtube/unqtube-go/internal/core/script"
	"github.com/unqtube/unqtube-go/internal/core/services"
	"github.com/unqtube/unqtube-go/internal/core/speech"
	"github.com/unqtube/unqtube-go/internal/core/workflow"
)

// StateManager holds all the shared dependencies for the application, acting as a
// centralized container for service clients and configurations. This avoids the
// need for global variables and makes dependency management cleaner.
type StateManager struct {
	config             *cloud.Config
	cloud              *cloud.ServiceClients
	runService         *services.RunService
	orchestrator       *pipeline.Orchestrator
	generationWorkflow *workflow.VideoGenerationWorkflow
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the necessary environment variables that the configuration loader
// uses to find the correct TOML files.
//
// This function sets the prefix for the configuration directory and specifies
// the runtime environment (e.g., "local", "test", "prod"), allowing for
// environment-specific overrides of the base configuration.
//
// Outputs:
//   - error: An error if setting any of the environment variables fails.
func SetupOS() (err error) {
	// Set the directory where configuration files are located, unless the
	// environment (or a .env file) already chose one.
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	// Default the runtime environment to "local". The config loader will
	// look for a ".env.local.toml" file to override base settings.
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// It ensures that the configuration is loaded from the file system only once.
// On the first call, it sets up the OS environment and loads the configuration
// from the TOML files. Subsequent calls return the cached configuration.
//
// Outputs:
//   - *cloud.Config: A pointer to the loaded application configuration struct.
func GetConfig() *cloud.Config {
	// If the config has not been loaded yet...
	if state.config == nil {
		// Set up the environment variables required for config loading.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the .toml files into the struct.
		cloud.LoadConfig(&config)
		// Store the loaded config in the state manager.
		state.config = config
	}
	// Return the cached config.
	return state.config
}

// InitState initializes the entire application state.
// It orchestrates the creation of all necessary services and clients based on the
// application configuration and wires them together.
//
// Inputs:
//   - ctx: The root context.Context for the application, used for managing
//     the lifecycle of client connections and background processes.
//
// This function performs the following steps:
//  1. Loads the application configuration.
//  2. Initializes all external service clients (Storage, Pub/Sub, GenAI,
//     BigQuery, IAM, Cohere, Redis).
//  3. Instantiates the run history service.
//  4. Assembles the generation pipeline: script generator with its escalation
//     ladder, narration synthesizer with its fallback, stock media fetcher,
//     and the renderer, all behind the orchestrator.
//  5. Builds the generation workflow and starts the Pub/Sub listeners.
func InitState(ctx context.Context) {
	// Get the application configuration.
	config := GetConfig()

	// Initialize all the base external service clients.
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}

	// Store the initialized clients in the global state.
	state.cloud = cloudClients

	// Initialize the run history service with its dependencies.
	state.runService = &services.RunService{
		BigqueryClient: cloudClients.BigQueryClient,
		StorageClient:  cloudClients.StorageClient,
		IAMClient:      cloudClients.IAMClient,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		RunTable:       config.BigQueryDataSource.RunTable,
	}

	// Build the script generator: the primary Vertex AI backend, the optional
	// Cohere fallback, and the prompt builder they share.
	pacing := script.NewPacing(config.Script)
	prompts, err := script.NewPromptBuilder(config.PromptTemplates, pacing)
	if err != nil {
		log.Fatalf("failed to compile script prompt templates: %v\n", err)
	}
	agentModel, ok := cloudClients.AgentModels["creative-pro"]
	if !ok {
		log.Fatalf("%v\n", &model.ConfigurationError{
			Field:  "agent_models.creative-pro",
			Reason: "no such agent model is configured",
		})
	}
	primaryText := script.NewGeminiBackend(agentModel, config.RetryPolicy())
	var secondaryText script.TextBackend
	if cloudClients.CohereClient != nil {
		secondaryText = script.NewCohereBackend(cloudClients.CohereClient, config.SecondaryText.Model)
	}
	generator := script.NewGenerator(primaryText, secondaryText, prompts, pacing)

	// Build the narration synthesizer: the Gemini TTS primary and, when an
	// endpoint is configured, the HTTP fallback service.
	primaryTTS := speech.NewGeminiTTS(cloudClients.GenAIClient, config.Speech.SampleRate, config.Speech.RateLimit)
	var fallbackTTS speech.TTSBackend
	if config.Speech.FallbackEndpoint != "" {
		fallbackTTS = speech.NewEdgeTTS(config.Speech.FallbackEndpoint, config.Speech.FallbackVoice, cloudClients.HTTPClient)
	}
	synthesizer := speech.NewSynthesizer(primaryTTS, fallbackTTS, config.Voices, config.RetryPolicy())

	// Build the stock media provider once; a fetcher wrapping it is created
	// per run because de-duplication is run-scoped.
	provider, err := media.NewPexelsProvider(config.Media, cloudClients.HTTPClient)
	if err != nil {
		log.Fatalf("failed to configure stock media provider: %v\n", err)
	}

	// Background music comes from the music bucket when one is configured;
	// the orchestrator picks a random track per run.
	var musicFn pipeline.MusicFunc
	if config.Storage.MusicBucket != "" {
		musicFn = func(ctx context.Context, destDir string) (string, error) {
			return cloud.PickMusicTrack(ctx, cloudClients.StorageClient, config.Storage.MusicBucket, destDir)
		}
	}

	// The segment cache persists across runs through Redis when configured,
	// and stays process-local otherwise.
	var cacheStore cache.Store
	if cloudClients.CacheStore != nil {
		cacheStore = cloudClients.CacheStore
	}
	segmentCache := cache.NewSegmentCache(cacheStore)

	// Assemble the orchestrator from the parts above.
	state.orchestrator = pipeline.NewOrchestrator(pipeline.Options{
		Generator: generator,
		Narrator:  synthesizer,
		NewVisualFetcher: func() pipeline.VisualFetcher {
			return media.NewFetcher(provider, cloudClients.HTTPClient, config.Media, segmentCache)
		},
		NewRenderer: func(kind model.VideoKind) pipeline.PlanRenderer {
			width, height := media.PlaceholderSize(kind)
			return assembler.NewRenderer(width, height)
		},
		Music:             musicFn,
		Cache:             segmentCache,
		Workers:           config.Application.ThreadPoolSize,
		DegradedThreshold: config.Pipeline.DegradedThreshold,
	})

	// Build the full generation workflow and start the request listeners.
	state.generationWorkflow = workflow.NewVideoGenerationPipeline(config, cloudClients, state.orchestrator, state.runService)
	SetupListeners(cloudClients, ctx)
}

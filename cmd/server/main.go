// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the video generation backend server.
//
// This application sets up and runs a web server using the Gin framework. It provides a REST API
// for submitting topic requests and inspecting run history. The server is instrumented with
// OpenTelemetry for logging, tracing, and metrics, providing observability into the
// application's performance.
//
// The main function initializes the application's configuration, sets up logging and telemetry,
// and initializes the application state, including clients for external services. It defines
// API routes for starting runs, retrieving run records, and generating signed download URLs.
//
// The server also sets up and manages a background listener for the request Pub/Sub topic, so
// other systems can trigger video generation by publishing a topic request instead of calling
// the REST API.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - VideoRouter: Sets up the API routes related to video runs, such as submitting a topic,
//     listing recent runs, fetching a run record, and generating signed download URLs.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/model"
	"github.com/unqtube/unqtube-go/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, external services,
// the web server, API routes, and background listeners. It also handles graceful
// shutdown of the server upon receiving an interrupt signal.
func main() {
	// Load a local .env file when present. It can set the runtime selector
	// and credentials (VIDGEN_RUNTIME, API keys) without touching the TOML
	// configuration; a missing file is not an error.
	_ = godotenv.Load()

	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service clients.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	// This will automatically create spans for each request.
	r.Use(otelgin.Middleware("video-generation-server"))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for development,
	// allowing requests from any origin.
	r.Use(cors.Default())

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		// Register the routes for video run functionality within the API group.
		VideoRouter(apiV1, ctx)
		Dashboard(apiV1)
	}

	// Configure the HTTP server with the address and handler.
	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	slog.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// startRun executes the generation workflow for one request in the
// background. It mirrors what the Pub/Sub listener does for published
// requests: the chain gets its own workflow context, and closing that
// context removes the run's temporary artifacts. The run is detached from
// the HTTP request's context on purpose; a client disconnect must not
// cancel a run that was already accepted.
func startRun(rootCtx context.Context, req *model.TopicRequest) {
	payload, err := json.Marshal(req)
	if err != nil {
		slog.Error("failed to serialize topic request", "run_id", req.ID, "error", err)
		return
	}

	go func() {
		chainCtx := cor.NewBaseContext()
		defer chainCtx.Close()
		chainCtx.SetContext(rootCtx)
		chainCtx.Add(cor.CtxIn, string(payload))

		state.generationWorkflow.Execute(chainCtx)

		if chainCtx.HasErrors() {
			for name, e := range chainCtx.GetErrors() {
				slog.Error("video run failed", "run_id", req.ID, "command", name, "error", e)
			}
		}
	}()
}

// VideoRouter sets up the API routes for video run actions.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the video routes will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//   - rootCtx: The application root context that background runs attach to.
//
// Outputs:
//   - This function does not return any values. It modifies the provided *gin.RouterGroup
//     by adding new route handlers.
//
// This function defines the following endpoints:
//   - POST /videos: Accepts a topic request and starts an asynchronous generation run.
//   - GET /videos: Lists the most recent run records.
//   - GET /videos/:id: Retrieves the run record for a specific run ID.
//   - GET /videos/:id/url: Generates a time-limited, signed URL for downloading the finished video.
func VideoRouter(r *gin.RouterGroup, rootCtx context.Context) {
	// Group all video-related routes under the "/videos" path.
	videos := r.Group("/videos")
	{
		// Handler for POST /videos
		// Accepts a JSON topic request, validates it, and starts the run in
		// the background. The response carries the run ID so the client can
		// poll GET /videos/:id for progress.
		videos.POST("", func(c *gin.Context) {
			req := &model.TopicRequest{}
			if err := c.ShouldBindJSON(req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			// Validate up front so the caller gets a synchronous rejection
			// instead of a run that is born failed.
			req.Normalize()
			if err := req.Validate(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.ID == "" {
				req.ID = uuid.New().String()
			}

			startRun(rootCtx, req)
			c.JSON(http.StatusAccepted, gin.H{"id": req.ID, "status": model.RunStatusRunning})
		})

		// Handler for GET /videos?count=<n>
		videos.GET("", func(c *gin.Context) {
			// Get the 'count' parameter, defaulting to 20 if not provided or invalid.
			count, err := strconv.Atoi(c.DefaultQuery("count", "20"))
			if err != nil {
				count = 20
			}
			records, err := state.runService.List(c, count)
			if err != nil {
				log.Printf("Error listing runs: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, records)
		})

		// Handler for GET /videos/:id
		videos.GET("/:id", func(c *gin.Context) {
			// Get the run ID from the URL path.
			id := c.Param("id")
			// Fetch the run record by its ID.
			out, err := state.runService.Get(c, id)
			if err != nil {
				// If not found, return a 404 status.
				c.Status(http.StatusNotFound)
				return
			}
			// Return the run record as JSON.
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /videos/:id/url
		// This endpoint provides a secure, time-limited URL for clients to download the finished video.
		videos.GET("/:id/url", func(c *gin.Context) {
			id := c.Param("id")
			// Fetch the run record to get the stored object URL.
			record, err := state.runService.Get(c, id)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
				return
			}
			// A run that never published a video has no URL to sign.
			if record.VideoURL == "" {
				c.JSON(http.StatusConflict, gin.H{"error": "Run has no published video"})
				return
			}

			// Generate a signed URL valid for 15 minutes for the video file.
			signedURL, err := state.runService.GenerateSignedURL(c, record.VideoURL, 15*time.Minute)
			if err != nil {
				log.Printf("Error generating signed URL: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate download URL"})
				return
			}
			// Return the signed URL in the JSON response.
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}
}

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

// Package script turns a topic request into a structured narration script.
// This file defines the text backend abstraction and its two
// implementations: the rate-limited Vertex AI model used first, and the
// Cohere chat API used when Vertex is unavailable.
package script

import (
	"context"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/retry"
)

// TextBackend produces raw text for a prompt. Implementations classify their
// transport failures so the retry policy can tell quota pressure from hard
// errors.
type TextBackend interface {
	// Name identifies the backend in logs and run records.
	Name() string
	// GenerateText executes one prompt and returns the raw response text.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiBackend drives the quota-aware Vertex AI model with retry-policy
// backoff and token accounting.
type GeminiBackend struct {
	model              *cloud.QuotaAwareGenerativeAIModel
	policy             retry.Policy
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGeminiBackend creates the primary text backend around an agent model.
func NewGeminiBackend(model *cloud.QuotaAwareGenerativeAIModel, policy retry.Policy) *GeminiBackend {
	meter := otel.Meter("github.com/unqtube/unqtube-go")
	inputTokenCounter, _ := meter.Int64Counter("script-generator-input-token-count")
	outputTokenCounter, _ := meter.Int64Counter("script-generator-output-token-count")
	retryCounter, _ := meter.Int64Counter("script-generator-retry-count")
	return &GeminiBackend{
		model:              model,
		policy:             policy,
		inputTokenCounter:  inputTokenCounter,
		outputTokenCounter: outputTokenCounter,
		retryCounter:       retryCounter,
	}
}

func (g *GeminiBackend) Name() string { return "gemini" }

// GenerateText sends the prompt to Vertex AI. Quota and transient failures
// are retried per the policy before the error surfaces to the generator.
func (g *GeminiBackend) GenerateText(ctx context.Context, prompt string) (string, error) {
	return cloud.GenerateTextResponse(
		ctx,
		g.policy,
		g.inputTokenCounter,
		g.outputTokenCounter,
		g.retryCounter,
		g.model,
		cloud.NewTextPart(prompt))
}

// CohereBackend is the secondary text backend, used when every Vertex
// attempt has failed.
type CohereBackend struct {
	client *cohereclient.Client
	model  string
}

// NewCohereBackend creates the secondary backend. The model name defaults
// to command-r when unset in configuration.
func NewCohereBackend(client *cohereclient.Client, modelName string) *CohereBackend {
	if modelName == "" {
		modelName = "command-r"
	}
	return &CohereBackend{client: client, model: modelName}
}

func (c *CohereBackend) Name() string { return "cohere" }

// GenerateText executes one chat turn against the Cohere API.
func (c *CohereBackend) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message: prompt,
		Model:   &c.model,
	})
	if err != nil {
		return "", cloud.ClassifyBackendError("cohere", err)
	}
	if resp == nil || resp.Text == "" {
		return "", fmt.Errorf("cohere returned an empty response")
	}
	return resp.Text, nil
}

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

// Package cloud provides components for interacting with external services.
// This file contains the hierarchical configuration loader and the resilient
// text-generation helper shared by every LLM caller.
//
// Functions:
//   - LoadConfig: Reads the base `.env.toml` and then overlays the
//     environment-specific `.env.<runtime>.toml`, with both paths derived
//     from environment variables.
//   - GenerateTextResponse: Executes a text request against a quota-aware
//     model with retry-policy backoff and OpenTelemetry token accounting.
//   - NewTextPart: Factory for single-part text content.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"

	"github.com/unqtube/unqtube-go/internal/core/retry"
)

// Configuration loading constants.
const (
	ConfigFileBaseName  = ".env"                  // Base name for configuration files.
	ConfigFileExtension = ".toml"                 // Extension for configuration files.
	ConfigSeparator     = "."                     // Separator in override file names.
	EnvConfigFilePrefix = "VIDGEN_CONFIG_PREFIX"  // Env var naming the config directory.
	EnvConfigRuntime    = "VIDGEN_RUNTIME"        // Env var naming the runtime ("local", "test", "prod").
)

// fileExists reports whether a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig from the base TOML file and then from the
// runtime-specific override file when present. Values in the override file
// win. Decoding failures are fatal: the process cannot run half-configured.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	log.Printf("loading configuration: base=%s overlay=%s", baseConfigFileName, envConfigFileName)

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// RetryPolicy builds the shared retry.Policy from configuration, falling
// back to sane defaults when the retry section is absent.
func (c *Config) RetryPolicy() retry.Policy {
	maxAttempts := c.Retry.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 4
	}
	initial := c.Retry.InitialBackoffMS
	if initial == 0 {
		initial = 500
	}
	maxBackoff := c.Retry.MaxBackoffMS
	if maxBackoff == 0 {
		maxBackoff = 30000
	}
	return retry.NewPolicy(maxAttempts,
		time.Duration(initial)*time.Millisecond,
		time.Duration(maxBackoff)*time.Millisecond)
}

// GenerateTextResponse executes a text request against a quota-aware model.
// Retryable failures (quota, transient network) are retried per the policy;
// token usage for successful calls is recorded on the provided counters.
// Markdown code fences around JSON payloads are stripped before returning.
//
// Inputs:
//   - ctx: The request context, carrying cancellation and trace state.
//   - policy: The retry policy governing backoff between attempts.
//   - inputTokenCounter, outputTokenCounter: OTel counters for token usage.
//   - retryCounter: OTel counter incremented once per retried attempt.
//   - model: The rate-limited model wrapper to call.
//   - content: The prompt content.
//
// Outputs:
//   - string: The concatenated text of the response candidates.
//   - error: The final attempt's error when all retries are exhausted.
func GenerateTextResponse(
	ctx context.Context,
	policy retry.Policy,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {

	var resp *genai.GenerateContentResponse
	attempt := 0
	err = policy.Do(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			retryCounter.Add(ctx, 1)
		}
		attempt++
		var callErr error
		resp, callErr = model.GenerateContent(ctx, content)
		return callErr
	})
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	value = ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				value += fmt.Sprint(part.Text)
			}
		}
	}
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}

// NewTextPart builds the content slice for a plain text prompt.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}

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
// This file wraps the Generative AI client with a rate limiter and error
// classification. The wrapper keeps the application inside its Vertex AI
// quota and translates provider failures into the shared error taxonomy so
// the retry policy and the fallback chain can act on them.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Decorator pairing a model configuration
//     with a token-bucket rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: Constructor for the wrapper.
//   - GenerateContent: Rate-limited, taxonomy-mapped content generation.
package cloud

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// QuotaAwareGenerativeAIModel decorates a Vertex AI model with a rate
// limiter. Callers never talk to genai.Models directly; every call flows
// through GenerateContent so quota is enforced in one place.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel wraps a configured model with a limiter allowing
// requestsPerSecond sustained calls with an equal burst.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSecond)), requestsPerSecond),
	}
}

// GenerateContent blocks until the limiter grants a slot, then issues the
// call. Provider failures come back classified: quota errors as
// RateLimitError, connectivity problems as TransientNetworkError. Retrying
// is left to the caller's retry policy.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	if err != nil {
		return nil, ClassifyBackendError(q.ModelName, err)
	}
	return resp, nil
}

// ClassifyBackendError maps a raw provider error onto the shared taxonomy.
// Classification is by status text because the SDKs surface quota and
// availability failures as opaque wrapped errors.
func ClassifyBackendError(backend string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"):
		return &model.RateLimitError{Backend: backend, Err: err}
	case strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "500"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"):
		return &model.TransientNetworkError{Op: backend, Err: err}
	default:
		return err
	}
}

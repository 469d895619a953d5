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
// This file initializes and holds every client the application talks
// through: Google Cloud (Storage, Pub/Sub, BigQuery, Vertex AI), the Cohere
// fallback text backend, the optional Redis cache store, and a shared HTTP
// client for the stock media and fallback speech services. It acts as the
// dependency injection container the rest of the application is wired from.
//
// Structs:
//   - ServiceClients: Container for all initialized external clients.
//
// Functions:
//   - Close: Releases all client connections.
//   - NewCloudServiceClients: Factory that builds the container from Config.
package cloud

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"google.golang.org/genai"

	"github.com/unqtube/unqtube-go/internal/core/cache"
)

// ServiceClients is the central container for all external service clients.
// One instance is created at startup and shared across the application.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BigQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	CohereClient    *cohereclient.Client // Nil when no Cohere key is configured.
	CacheStore      *cache.RedisStore    // Nil unless Redis persistence is explicitly configured.
	HTTPClient      *http.Client         // Shared client for media and fallback speech calls.
	PubSubListeners map[string]*PubSubListener
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

// Close releases the active client connections. Useful in tests and for
// controlled shutdowns; in the server the root context owns the lifecycle.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
	_ = c.IAMClient.Close()
	if c.CacheStore != nil {
		_ = c.CacheStore.Close()
	}
}

// NewCloudServiceClients initializes every external client named in the
// configuration. Optional backends (Cohere, Redis) are only created when
// configured; a Redis that is configured but unreachable is logged and
// skipped so the cache degrades to process-local instead of blocking boot.
//
// Inputs:
//   - ctx: The root context owning the client lifecycles.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The fully initialized container.
//   - error: The first client initialization failure.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for the stock media provider and the fallback
	// speech service. HTTP/1.1 is forced because the Cohere endpoint is
	// known to misbehave over HTTP/2 with this client stack.
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}

	var cohere *cohereclient.Client
	if config.SecondaryText.CohereAPIKey != "" {
		cohere = cohereclient.NewClient(
			cohereclient.WithToken(config.SecondaryText.CohereAPIKey),
			cohereclient.WithHTTPClient(httpClient),
		)
	}

	var cacheStore *cache.RedisStore
	if config.Cache.RedisAddress != "" {
		ttl := time.Duration(config.Cache.TTLHours) * time.Hour
		cacheStore, err = cache.NewRedisStore(
			config.Cache.RedisAddress,
			config.Cache.RedisPassword,
			config.Cache.RedisDB,
			config.Cache.KeyPrefix,
			ttl)
		if err != nil {
			slog.Warn("redis cache configured but unreachable; continuing process-local", "error", err)
			cacheStore = nil
			err = nil
		}
	}

	// One listener per configured subscription. Commands are attached later
	// once the workflows are built.
	subscriptions := make(map[string]*PubSubListener)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, lerr := NewPubSubListener(pc, values.Name, nil)
		if lerr != nil {
			return nil, lerr
		}
		subscriptions[subKey] = actual
	}

	// Build a quota-aware wrapper per configured agent model, applying the
	// model's sampling settings and safety defaults.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey := range config.AgentModels {
		values := config.AgentModels[amKey]
		modelConfig := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		agentModels[amKey] = NewQuotaAwareModel(modelConfig, values.Model, gc.Models, values.RateLimit)
	}

	cloud = &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		IAMClient:       ic,
		CohereClient:    cohere,
		CacheStore:      cacheStore,
		HTTPClient:      httpClient,
		PubSubListeners: subscriptions,
		AgentModels:     agentModels,
	}

	return cloud, nil
}

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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. Everything tunable about a video run lives here:
// the GCP project, the generative models and their rate limits, the stock
// media provider, the voice mapping, the retry policy, and the optional
// Redis cache layer.
//
// Structs:
//   - BigQueryDataSource: Configuration for the run history dataset and table.
//   - PromptTemplates: Text templates for the script generation prompts.
//   - VertexAiLLMModel: Configuration for a Vertex AI LLM used as a text backend.
//   - VoiceProfile: A named TTS voice bound to a segment role.
//   - TopicSubscription: Configuration for a Pub/Sub request subscription.
//   - Storage: Output bucket configuration.
//   - MediaProvider: Stock media provider credentials and filters.
//   - SpeechConfig: TTS backend settings including the fallback endpoint.
//   - CacheConfig: Optional Redis persistence for the segment cache.
//   - RetryConfig: The shared backoff policy for rate-limited backends.
//   - PipelineConfig: Fan-out sizing and the degraded-run threshold.
//   - ScriptConfig: Pacing constants that derive segment counts.
//   - Config: The top-level aggregate.
//
// Functions:
//   - NewConfig: Constructor that initializes a Config with empty maps.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the content safety thresholds for GenAI
// calls. Script prompts are machine-constructed from a plain topic string,
// so all categories pass through unblocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource identifies where run history rows are written.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`   // The BigQuery dataset name.
	RunTable    string `toml:"run_table"` // The table holding one row per finished run.
}

// PromptTemplates holds the Go text/template sources for the LLM prompts.
type PromptTemplates struct {
	ScriptPrompt string `toml:"script"` // The structured script generation prompt.
	StrictSuffix string `toml:"strict"` // Appended on the retry after malformed output.
}

// VertexAiLLMModel configures one Vertex AI model used as a text backend.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The Vertex AI model name.
	SystemInstructions string  `toml:"system_instructions"` // System prompt for the model.
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"` // Response MIME type, "application/json" for script calls.
	RateLimit          int     `toml:"rate_limit"`    // Requests per second allowed against this model.
}

// VoiceProfile binds a TTS voice to a segment role. Intro and outro
// segments typically map to a more expressive voice than body segments.
type VoiceProfile struct {
	Name  string `toml:"name"`  // The backend voice name (e.g. "Aoede").
	Model string `toml:"model"` // The TTS model serving this voice.
	Style string `toml:"style"` // Free-form style hint passed to the backend.
}

// TopicSubscription configures one Pub/Sub subscription the server listens on.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage names the bucket finished videos are uploaded to.
type Storage struct {
	OutputBucket string `toml:"output_bucket"` // Destination for rendered MP4s.
	MusicBucket  string `toml:"music_bucket"`  // Optional bucket holding background music tracks.
}

// MediaProvider configures the stock media adapter.
type MediaProvider struct {
	PexelsAPIKey string `toml:"pexels_api_key"`
	BaseURL      string `toml:"base_url"`    // Override for tests; empty means the public API.
	PerPage      int    `toml:"per_page"`    // Candidates requested per search.
	Orientation  string `toml:"orientation"` // "landscape" for long form, "portrait" for shorts.
	MinWidth     int    `toml:"min_width"`   // Assets below this resolution are dropped.
	MinHeight    int    `toml:"min_height"`
}

// SpeechConfig configures narration synthesis.
type SpeechConfig struct {
	SampleRate       int    `toml:"sample_rate"`       // PCM sample rate of the primary backend output.
	RateLimit        int    `toml:"rate_limit"`        // Requests per second allowed against the primary backend.
	FallbackEndpoint string `toml:"fallback_endpoint"` // HTTP endpoint of the fallback speech service.
	FallbackVoice    string `toml:"fallback_voice"`    // Voice name for the fallback backend.
}

// CacheConfig enables the optional Redis layer of the segment cache. An
// empty RedisAddress keeps the cache process-local.
type CacheConfig struct {
	RedisAddress  string `toml:"redis_address"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
	TTLHours      int    `toml:"ttl_hours"`
}

// RetryConfig is the shared backoff policy applied to rate-limited calls.
type RetryConfig struct {
	MaxAttempts      int `toml:"max_attempts"`
	InitialBackoffMS int `toml:"initial_backoff_ms"`
	MaxBackoffMS     int `toml:"max_backoff_ms"`
}

// PipelineConfig sizes the fan-out and sets the degraded-run policy.
type PipelineConfig struct {
	// DegradedThreshold is the fraction of degraded segments above which a
	// run fails outright instead of completing with placeholders. Zero
	// means "use the default of 0.5".
	DegradedThreshold float64 `toml:"degraded_threshold"`
}

// ScriptConfig holds the pacing constants that turn a target duration into
// a segment count.
type ScriptConfig struct {
	WordsPerMinute  int `toml:"words_per_minute"`  // Narration pace; default 150.
	WordsPerSegment int `toml:"words_per_segment"` // Average body segment length; default 75.
}

// SecondaryText configures the non-Vertex fallback text backend.
type SecondaryText struct {
	CohereAPIKey string `toml:"cohere_api_key"`
	Model        string `toml:"model"`
}

// Config is the root configuration aggregate, loaded from TOML files.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"` // Worker pool size for the per-segment fan-out.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
	Voices             map[string]VoiceProfile      `toml:"voices"` // Keyed by segment role: "intro", "body", "outro".
	Media              MediaProvider                `toml:"media"`
	Speech             SpeechConfig                 `toml:"speech"`
	Cache              CacheConfig                  `toml:"cache"`
	Retry              RetryConfig                  `toml:"retry"`
	Pipeline           PipelineConfig               `toml:"pipeline"`
	Script             ScriptConfig                 `toml:"script"`
	SecondaryText      SecondaryText                `toml:"secondary_text"`
}

// NewConfig creates an initialized Config. The maps must exist before the
// TOML decoder populates them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		Voices:             make(map[string]VoiceProfile),
	}
}

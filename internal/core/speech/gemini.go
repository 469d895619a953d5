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

// Package speech synthesizes narration audio for script segments.
// This file is the primary backend: Gemini native text-to-speech over
// Vertex AI. The model returns raw 16-bit linear PCM which is framed into
// WAV on disk.
package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// DefaultSampleRate is the PCM rate Gemini TTS produces.
const DefaultSampleRate = 24000

// GeminiTTS synthesizes narration with Gemini's speech generation models.
// Requests are throttled through a shared limiter because every segment of
// a run synthesizes concurrently.
type GeminiTTS struct {
	client     *genai.Client
	sampleRate int
	limiter    *rate.Limiter
}

// NewGeminiTTS creates the primary speech backend. requestsPerSecond guards
// the Vertex quota across the per-segment fan-out; values below one are
// raised to one.
func NewGeminiTTS(client *genai.Client, sampleRate int, requestsPerSecond int) *GeminiTTS {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &GeminiTTS{
		client:     client,
		sampleRate: sampleRate,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSecond)), requestsPerSecond),
	}
}

// Name identifies the backend in narration results and logs.
func (g *GeminiTTS) Name() model.Backend { return model.BackendPrimary }

// Synthesize speaks the text with the given voice profile and writes a WAV
// file to outPath. The style hint, when present, is prepended as a spoken
// direction the model honors.
func (g *GeminiTTS) Synthesize(ctx context.Context, text string, voice cloud.VoiceProfile, outPath string) (*model.NarrationResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := text
	if voice.Style != "" {
		prompt = fmt.Sprintf("Say in a %s tone: %s", voice.Style, text)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice.Name},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, voice.Model, genai.Text(prompt), config)
	if err != nil {
		return nil, cloud.ClassifyBackendError("gemini-tts", err)
	}

	pcm := extractAudio(resp)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("gemini-tts returned no audio data")
	}

	if err := writeWAV(outPath, pcm, g.sampleRate); err != nil {
		return nil, err
	}

	return &model.NarrationResult{
		AudioPath: outPath,
		Duration:  pcmDuration(pcm, g.sampleRate),
		Backend:   g.Name(),
		Voice:     voice.Name,
	}, nil
}

// extractAudio concatenates the inline audio blobs of a response.
func extractAudio(resp *genai.GenerateContentResponse) []byte {
	var pcm []byte
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			if strings.HasPrefix(part.InlineData.MIMEType, "audio/") || part.InlineData.MIMEType == "" {
				pcm = append(pcm, part.InlineData.Data...)
			}
		}
	}
	return pcm
}

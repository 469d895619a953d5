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
// This file is the fallback backend, a self-hosted edge-tts HTTP service
// that returns MP3 audio. The returned file's play time is measured with
// ffprobe because MP3 length cannot be derived from byte count alone.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// EdgeTTS calls an edge-tts sidecar over HTTP. It only exists so a run can
// finish narration when the primary backend is down or out of quota.
type EdgeTTS struct {
	endpoint     string
	defaultVoice string
	client       *http.Client
}

// NewEdgeTTS creates the fallback speech backend.
func NewEdgeTTS(endpoint, defaultVoice string, client *http.Client) *EdgeTTS {
	if client == nil {
		client = http.DefaultClient
	}
	return &EdgeTTS{endpoint: endpoint, defaultVoice: defaultVoice, client: client}
}

// Name identifies the backend in narration results and logs.
func (e *EdgeTTS) Name() model.Backend { return model.BackendFallback }

// edgeRequest is the sidecar's request body.
type edgeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize posts the text to the sidecar, saves the MP3 response to
// outPath, and probes its duration.
func (e *EdgeTTS) Synthesize(ctx context.Context, text string, voice cloud.VoiceProfile, outPath string) (*model.NarrationResult, error) {
	voiceName := e.defaultVoice
	if voiceName == "" {
		voiceName = voice.Name
	}

	body, err := json.Marshal(edgeRequest{Text: text, Voice: voiceName})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, cloud.ClassifyBackendError("edge-tts", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("edge-tts returned status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &model.RateLimitError{Backend: "edge-tts", Err: err}
		}
		if resp.StatusCode >= 500 {
			return nil, &model.TransientNetworkError{Op: "edge-tts", Err: err}
		}
		return nil, err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to save edge-tts audio: %w", err)
	}
	if closeErr != nil {
		return nil, closeErr
	}
	if written == 0 {
		return nil, fmt.Errorf("edge-tts returned an empty body")
	}

	duration, err := ProbeDuration(outPath)
	if err != nil {
		return nil, err
	}

	return &model.NarrationResult{
		AudioPath: outPath,
		Duration:  duration,
		Backend:   e.Name(),
		Voice:     voiceName,
	}, nil
}

// ProbeDuration reads a media file's play time via ffprobe.
func ProbeDuration(path string) (time.Duration, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", path)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

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

// Package media finds and downloads the stock footage shown behind each
// narrated segment. This file defines the provider abstraction and the
// Pexels implementation.
//
// A search that matches nothing is a normal outcome, not a failure: the
// provider returns an empty slice and the fetcher moves on to the next
// query or a placeholder. Only transport and authentication problems
// surface as errors.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// DefaultPexelsBaseURL is the public Pexels video search endpoint.
const DefaultPexelsBaseURL = "https://api.pexels.com/videos/search"

// Candidate is one downloadable asset a provider found for a query.
type Candidate struct {
	SourceURL   string        // The provider page for attribution.
	DownloadURL string        // The direct file link.
	MIMEType    string        // Declared type, verified again after download.
	Width       int
	Height      int
	Duration    time.Duration // Zero for still images.
	Relevance   int           // Position in the provider's result order; lower is more relevant.
}

// Provider searches a stock media catalog.
type Provider interface {
	// Search returns candidates for one query, best first. An empty result
	// is returned as an empty slice with a nil error.
	Search(ctx context.Context, query string) ([]*Candidate, error)
}

// PexelsProvider implements Provider against the Pexels video API.
type PexelsProvider struct {
	apiKey      string
	baseURL     string
	perPage     int
	orientation string
	client      *http.Client
}

// NewPexelsProvider builds a provider from configuration. The base URL is
// overridable for tests; perPage defaults to 10.
func NewPexelsProvider(cfg cloud.MediaProvider, client *http.Client) (*PexelsProvider, error) {
	if cfg.PexelsAPIKey == "" {
		return nil, &model.ConfigurationError{Field: "media.pexels_api_key", Reason: "missing API key"}
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultPexelsBaseURL
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &PexelsProvider{
		apiKey:      cfg.PexelsAPIKey,
		baseURL:     base,
		perPage:     perPage,
		orientation: cfg.Orientation,
		client:      client,
	}, nil
}

// pexelsResponse mirrors the subset of the Pexels search payload we read.
type pexelsResponse struct {
	Videos []struct {
		URL        string `json:"url"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		Duration   int    `json:"duration"`
		VideoFiles []struct {
			Link     string `json:"link"`
			FileType string `json:"file_type"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
		} `json:"video_files"`
	} `json:"videos"`
	TotalResults int `json:"total_results"`
}

// Search queries Pexels for one term. Every usable file variant of every
// hit becomes a candidate so the fetcher can rank across variants.
func (p *PexelsProvider) Search(ctx context.Context, query string) ([]*Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(p.perPage))
	if p.orientation != "" {
		params.Set("orientation", p.orientation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, cloud.ClassifyBackendError("pexels", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &model.RateLimitError{Backend: "pexels", Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return nil, &model.TransientNetworkError{Op: "pexels-search", Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("pexels search returned status %d", resp.StatusCode)
	}

	var payload pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pexels response: %w", err)
	}

	candidates := make([]*Candidate, 0, len(payload.Videos))
	for i, v := range payload.Videos {
		for _, f := range v.VideoFiles {
			if f.Link == "" {
				continue
			}
			width, height := f.Width, f.Height
			if width == 0 {
				width, height = v.Width, v.Height
			}
			candidates = append(candidates, &Candidate{
				SourceURL:   v.URL,
				DownloadURL: f.Link,
				MIMEType:    f.FileType,
				Width:       width,
				Height:      height,
				Duration:    time.Duration(v.Duration) * time.Second,
				Relevance:   i,
			})
		}
	}
	return candidates, nil
}

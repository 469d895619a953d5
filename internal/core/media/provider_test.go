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

package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

const pexelsFixture = `{
	"total_results": 2,
	"videos": [
		{
			"url": "https://www.pexels.com/video/1",
			"width": 3840, "height": 2160, "duration": 12,
			"video_files": [
				{"link": "https://cdn.example/1-uhd.mp4", "file_type": "video/mp4", "width": 3840, "height": 2160},
				{"link": "https://cdn.example/1-sd.mp4", "file_type": "video/mp4", "width": 640, "height": 360}
			]
		},
		{
			"url": "https://www.pexels.com/video/2",
			"width": 1920, "height": 1080, "duration": 8,
			"video_files": [
				{"link": "https://cdn.example/2-hd.mp4", "file_type": "video/mp4", "width": 1920, "height": 1080}
			]
		}
	]
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*PexelsProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewPexelsProvider(cloud.MediaProvider{
		PexelsAPIKey: "test-key",
		BaseURL:      server.URL,
		PerPage:      5,
		Orientation:  "landscape",
	}, server.Client())
	require.NoError(t, err)
	return provider, server
}

func TestPexelsSearchParsesResults(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "city at night", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))
		_, _ = w.Write([]byte(pexelsFixture))
	})

	candidates, err := provider.Search(context.Background(), "city at night")
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "https://cdn.example/1-uhd.mp4", candidates[0].DownloadURL)
	assert.Equal(t, 3840, candidates[0].Width)
	assert.Equal(t, "https://www.pexels.com/video/1", candidates[0].SourceURL)

	// Variants of one hit share its relevance position.
	assert.Equal(t, 0, candidates[0].Relevance)
	assert.Equal(t, 0, candidates[1].Relevance)
	assert.Equal(t, 1, candidates[2].Relevance)
}

func TestPexelsSearchEmptyResultsIsNotError(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"total_results": 0, "videos": []}`))
	})

	candidates, err := provider.Search(context.Background(), "nonexistent obscure query")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestPexelsSearchRateLimitClassified(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := provider.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, model.IsRateLimit(err))
}

func TestPexelsProviderRequiresAPIKey(t *testing.T) {
	_, err := NewPexelsProvider(cloud.MediaProvider{}, nil)
	var confErr *model.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

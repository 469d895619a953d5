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
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/cache"
)

// fakeProvider serves canned candidates per query and counts calls.
type fakeProvider struct {
	results map[string][]*Candidate
	err     error
	calls   int
}

func (f *fakeProvider) Search(_ context.Context, query string) ([]*Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

// mp4Payload returns bytes carrying a valid MP4 magic number so the
// integrity sniff accepts them. The filler byte makes payloads distinct.
func mp4Payload(filler byte) []byte {
	head := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
	return append(head, bytes.Repeat([]byte{filler}, 128)...)
}

// fileServer serves a fixed payload per path.
func fileServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func mediaConfig() cloud.MediaProvider {
	return cloud.MediaProvider{MinWidth: 1280, MinHeight: 720}
}

func TestFetchPrefersCompliantResolution(t *testing.T) {
	server := fileServer(t, map[string][]byte{
		"/hd.mp4": mp4Payload('a'),
		"/sd.mp4": mp4Payload('b'),
	})
	provider := &fakeProvider{results: map[string][]*Candidate{
		"sunset": {
			{DownloadURL: server.URL + "/sd.mp4", Width: 640, Height: 360},
			{DownloadURL: server.URL + "/hd.mp4", Width: 1920, Height: 1080, SourceURL: "https://example/hd"},
		},
	}}
	f := NewFetcher(provider, server.Client(), mediaConfig(), nil)

	asset, err := f.Fetch(context.Background(), []string{"sunset"}, filepath.Join(t.TempDir(), "v.mp4"))
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, 1920, asset.Width)
	assert.Equal(t, "https://example/hd", asset.SourceURL)
	assert.Equal(t, "video/mp4", asset.MIMEType)
	assert.NotEmpty(t, asset.ContentHash)
	assert.False(t, asset.Placeholder)
}

func TestFetchDeduplicatesByContentHash(t *testing.T) {
	server := fileServer(t, map[string][]byte{
		"/same.mp4":  mp4Payload('x'),
		"/other.mp4": mp4Payload('y'),
	})
	provider := &fakeProvider{results: map[string][]*Candidate{
		"first":  {{DownloadURL: server.URL + "/same.mp4", Width: 1920, Height: 1080}},
		"second": {
			{DownloadURL: server.URL + "/same.mp4", Width: 1920, Height: 1080},
			{DownloadURL: server.URL + "/other.mp4", Width: 1280, Height: 720},
		},
	}}
	f := NewFetcher(provider, server.Client(), mediaConfig(), nil)
	dir := t.TempDir()

	first, err := f.Fetch(context.Background(), []string{"first"}, filepath.Join(dir, "1.mp4"))
	require.NoError(t, err)
	require.NotNil(t, first)

	// The identical payload is rejected and the next candidate is used.
	second, err := f.Fetch(context.Background(), []string{"second"}, filepath.Join(dir, "2.mp4"))
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, 1280, second.Width)
}

func TestFetchRejectsNonMediaBytes(t *testing.T) {
	server := fileServer(t, map[string][]byte{
		"/fake.mp4": []byte("<html>definitely not a video</html>"),
	})
	provider := &fakeProvider{results: map[string][]*Candidate{
		"query": {{DownloadURL: server.URL + "/fake.mp4", Width: 1920, Height: 1080}},
	}}
	f := NewFetcher(provider, server.Client(), mediaConfig(), nil)

	asset, err := f.Fetch(context.Background(), []string{"query"}, filepath.Join(t.TempDir(), "v.mp4"))
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestFetchNothingFoundReturnsNilAsset(t *testing.T) {
	provider := &fakeProvider{results: map[string][]*Candidate{}}
	f := NewFetcher(provider, http.DefaultClient, mediaConfig(), nil)

	asset, err := f.Fetch(context.Background(), []string{"a", "b"}, filepath.Join(t.TempDir(), "v.mp4"))
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestFetchSharesSearchesThroughCache(t *testing.T) {
	server := fileServer(t, map[string][]byte{
		"/a.mp4": mp4Payload('a'),
		"/b.mp4": mp4Payload('b'),
	})
	provider := &fakeProvider{results: map[string][]*Candidate{
		"harbor": {
			{DownloadURL: server.URL + "/a.mp4", Width: 1920, Height: 1080},
			{DownloadURL: server.URL + "/b.mp4", Width: 1280, Height: 720},
		},
	}}
	f := NewFetcher(provider, server.Client(), mediaConfig(), cache.NewSegmentCache(nil))
	dir := t.TempDir()

	first, err := f.Fetch(context.Background(), []string{"harbor"}, filepath.Join(dir, "1.mp4"))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := f.Fetch(context.Background(), []string{"harbor"}, filepath.Join(dir, "2.mp4"))
	require.NoError(t, err)
	require.NotNil(t, second)

	// Both segments served from one provider search; dedup picked the
	// second candidate for the second segment.
	assert.Equal(t, 1, provider.calls)
	assert.NotEqual(t, first.ContentHash, second.ContentHash)
}

func TestRankOrdersByComplianceThenRelevance(t *testing.T) {
	candidates := []*Candidate{
		{DownloadURL: "first-sd", Width: 640, Height: 360, Relevance: 0},
		{DownloadURL: "first-hd", Width: 1280, Height: 720, Relevance: 0},
		{DownloadURL: "second-uhd", Width: 3840, Height: 2160, Relevance: 1},
	}
	ranked := rank(candidates, 1280, 720)

	// The most relevant compliant hit wins even against higher resolution
	// from a later hit; its undersized variant drops to the end.
	assert.Equal(t, "first-hd", ranked[0].DownloadURL)
	assert.Equal(t, "second-uhd", ranked[1].DownloadURL)
	assert.Equal(t, "first-sd", ranked[2].DownloadURL)
}

func TestRankOrdersVariantsOfOneHitByArea(t *testing.T) {
	candidates := []*Candidate{
		{DownloadURL: "hd", Width: 1280, Height: 720, Relevance: 0},
		{DownloadURL: "uhd", Width: 3840, Height: 2160, Relevance: 0},
	}
	ranked := rank(candidates, 1280, 720)
	assert.Equal(t, "uhd", ranked[0].DownloadURL)
	assert.Equal(t, "hd", ranked[1].DownloadURL)
}

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
// narrated segment. This file is the fetcher: it ranks a provider's
// candidates, downloads the best one, verifies the bytes really are media,
// and deduplicates by content hash so the same clip never appears behind
// two segments of one video.
//
// One Fetcher is created per run. The hash set is run-scoped state, which
// is what makes cross-segment deduplication work under the concurrent
// fan-out.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/h2non/filetype"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/cache"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// Fetcher downloads the best available visual for a segment.
type Fetcher struct {
	provider  Provider
	client    *http.Client
	searches  *cache.SegmentCache // Optional; nil queries the provider directly.
	minWidth  int
	minHeight int

	mu   sync.Mutex
	seen map[string]bool // Content hashes already used in this run.
}

// NewFetcher creates a run-scoped fetcher. When a segment cache is passed,
// provider searches go through it so concurrent segments asking for the
// same term issue a single provider call.
func NewFetcher(provider Provider, client *http.Client, cfg cloud.MediaProvider, searches *cache.SegmentCache) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		provider:  provider,
		client:    client,
		searches:  searches,
		minWidth:  cfg.MinWidth,
		minHeight: cfg.MinHeight,
		seen:      make(map[string]bool),
	}
}

// Fetch tries each search term in order and returns the first candidate
// that survives download, integrity, and dedup checks. A nil asset with a
// nil error means nothing usable was found; the caller substitutes a
// placeholder. Provider errors on one term are logged and the next term is
// tried, so a flaky search never fails a segment that has other queries.
func (f *Fetcher) Fetch(ctx context.Context, terms []string, outPath string) (*model.VisualAsset, error) {
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates, err := f.search(ctx, term)
		if err != nil {
			slog.WarnContext(ctx, "media search failed", "query", term, "error", err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		for _, candidate := range rank(candidates, f.minWidth, f.minHeight) {
			asset, err := f.download(ctx, candidate, outPath)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.WarnContext(ctx, "candidate rejected", "url", candidate.DownloadURL, "error", err)
				continue
			}
			return asset, nil
		}
	}
	return nil, nil
}

// search runs one provider query, de-duplicated through the segment cache
// when one is attached. With Redis behind the cache, result lists are also
// reused across runs.
func (f *Fetcher) search(ctx context.Context, term string) ([]*Candidate, error) {
	if f.searches == nil {
		return f.provider.Search(ctx, term)
	}

	fp := cache.NewFingerprint("media-search", term)
	value, err := f.searches.GetOrCreate(ctx, fp,
		func(ctx context.Context) (interface{}, []byte, error) {
			candidates, serr := f.provider.Search(ctx, term)
			if serr != nil {
				return nil, nil, serr
			}
			serialized, merr := json.Marshal(candidates)
			if merr != nil {
				serialized = nil
			}
			return candidates, serialized, nil
		},
		func(data []byte) (interface{}, error) {
			var candidates []*Candidate
			if uerr := json.Unmarshal(data, &candidates); uerr != nil {
				return nil, uerr
			}
			return candidates, nil
		})
	if err != nil {
		return nil, err
	}
	return value.([]*Candidate), nil
}

// rank orders candidates best first: resolution-compliant before
// undersized, provider relevance within a bucket, and pixel area
// descending among variants of the same hit. Undersized candidates stay
// in the list as a last resort before the placeholder.
func rank(candidates []*Candidate, minWidth, minHeight int) []*Candidate {
	ranked := make([]*Candidate, len(candidates))
	copy(ranked, candidates)
	meets := func(c *Candidate) bool {
		return c.Width >= minWidth && c.Height >= minHeight
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		mi, mj := meets(ranked[i]), meets(ranked[j])
		if mi != mj {
			return mi
		}
		if ranked[i].Relevance != ranked[j].Relevance {
			return ranked[i].Relevance < ranked[j].Relevance
		}
		return ranked[i].Width*ranked[i].Height > ranked[j].Width*ranked[j].Height
	})
	return ranked
}

// download retrieves one candidate to outPath and validates it. The file
// is removed again on any rejection so a failed candidate leaves nothing
// behind.
func (f *Fetcher) download(ctx context.Context, candidate *Candidate, outPath string) (*model.VisualAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate.DownloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, cloud.ClassifyBackendError("media-download", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), resp.Body)
	closeErr := out.Close()
	if err != nil {
		_ = os.Remove(outPath)
		return nil, fmt.Errorf("failed to save download: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(outPath)
		return nil, closeErr
	}
	if size == 0 {
		_ = os.Remove(outPath)
		return nil, fmt.Errorf("download was empty")
	}

	mimeType, err := sniff(outPath)
	if err != nil {
		_ = os.Remove(outPath)
		return nil, err
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	f.mu.Lock()
	duplicate := f.seen[hash]
	if !duplicate {
		f.seen[hash] = true
	}
	f.mu.Unlock()
	if duplicate {
		_ = os.Remove(outPath)
		return nil, fmt.Errorf("duplicate of an asset already used in this run")
	}

	return &model.VisualAsset{
		Path:        outPath,
		SourceURL:   candidate.SourceURL,
		MIMEType:    mimeType,
		Width:       candidate.Width,
		Height:      candidate.Height,
		ContentHash: hash,
	}, nil
}

// sniff checks the magic bytes of a downloaded file and returns the real
// MIME type. Anything that is not video or image is rejected regardless of
// what the provider declared.
func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return "", err
	}
	mime := kind.MIME.Value
	if !strings.HasPrefix(mime, "video/") && !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("downloaded file is not media (detected %q)", mime)
	}
	return mime, nil
}

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

// Package cache implements the segment cache that de-duplicates expensive
// component work across the fan-out workers. Results are keyed by a content
// fingerprint of the producing component and its parameters, so two segments
// asking for the same narration text (or the same media query) share one
// producer invocation and one result.
//
// Semantics:
//   - Exactly one producer runs per fingerprint while concurrent callers for
//     the same fingerprint block and share the outcome, success or failure.
//   - A failed entry is forgotten once its waiters have been served; the
//     next caller re-invokes the producer rather than re-observing the old
//     failure.
//   - Entries are process-local. When a Store is attached, ready values are
//     written through and consulted before the producer runs, giving
//     cross-run reuse. Store failures degrade to local-only behavior.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Fingerprint identifies one unit of cacheable work. It is a hex-encoded
// SHA-256 and safe to use as a file name or Redis key.
type Fingerprint string

// NewFingerprint computes the fingerprint for a component kind (such as
// "narration" or "media-search") and its parameters. Parameters are
// normalized first: trimmed, lower-cased, inner whitespace collapsed. Two
// requests differing only in casing or spacing intentionally collide.
func NewFingerprint(kind string, params ...string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(normalize(kind)))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(normalize(p)))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

func normalize(in string) string {
	return strings.Join(strings.Fields(strings.ToLower(in)), " ")
}

// Store is an optional persistence layer for ready cache values. Only
// byte-serializable results pass through it; in-memory results that cannot
// serialize simply skip the store.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) ([]byte, bool, error)
	Put(ctx context.Context, fp Fingerprint, value []byte) error
}

// Producer computes the value for a fingerprint. The optional byte slice is
// the serialized form handed to the Store; return nil to keep the result
// process-local.
type Producer func(ctx context.Context) (value interface{}, serialized []byte, err error)

// Decoder rebuilds a value from its stored serialized form.
type Decoder func(data []byte) (interface{}, error)

type entry struct {
	done  chan struct{}
	value interface{}
	err   error
}

// SegmentCache is the in-process singleflight cache. The zero value is not
// usable; construct with NewSegmentCache.
type SegmentCache struct {
	mu      sync.Mutex
	entries map[Fingerprint]*entry
	store   Store // Optional; nil means process-local only.
}

// NewSegmentCache creates an empty cache. Pass a nil store unless cross-run
// persistence has been explicitly configured.
func NewSegmentCache(store Store) *SegmentCache {
	return &SegmentCache{
		entries: make(map[Fingerprint]*entry),
		store:   store,
	}
}

// GetOrCreate returns the cached value for fp, or runs producer to create
// it. Concurrent callers with the same fingerprint share a single producer
// invocation and all receive its result or its error. The decoder is used
// to revive values found in the attached store and may be nil when no store
// is configured.
func (c *SegmentCache) GetOrCreate(ctx context.Context, fp Fingerprint, producer Producer, decoder Decoder) (interface{}, error) {
	c.mu.Lock()
	if e, ok := c.entries[fp]; ok {
		c.mu.Unlock()
		select {
		case <-e.done:
			return e.value, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e := &entry{done: make(chan struct{})}
	c.entries[fp] = e
	c.mu.Unlock()

	e.value, e.err = c.produce(ctx, fp, producer, decoder)
	close(e.done)

	// Failed entries are not reusable: drop the entry so the next caller
	// invokes the producer again. Waiters already holding the entry still
	// observe this failure through the closed channel.
	if e.err != nil {
		c.mu.Lock()
		if c.entries[fp] == e {
			delete(c.entries, fp)
		}
		c.mu.Unlock()
	}
	return e.value, e.err
}

func (c *SegmentCache) produce(ctx context.Context, fp Fingerprint, producer Producer, decoder Decoder) (interface{}, error) {
	// Consult the persistent store first when one is attached. Store errors
	// are swallowed on purpose: a down Redis must not fail the pipeline.
	if c.store != nil && decoder != nil {
		if data, ok, err := c.store.Get(ctx, fp); err == nil && ok {
			if v, derr := decoder(data); derr == nil {
				return v, nil
			}
		}
	}

	value, serialized, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if c.store != nil && serialized != nil {
		_ = c.store.Put(ctx, fp, serialized)
	}
	return value, nil
}

// Len reports the number of live entries, for tests and metrics.
func (c *SegmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

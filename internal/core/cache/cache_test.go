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

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintNormalization(t *testing.T) {
	a := NewFingerprint("narration", "Hello   World", "en")
	b := NewFingerprint("narration", "  hello world ", "EN")
	assert.Equal(t, a, b, "casing and whitespace must not change the fingerprint")

	c := NewFingerprint("narration", "hello world", "fr")
	assert.NotEqual(t, a, c)

	d := NewFingerprint("media-search", "hello world", "en")
	assert.NotEqual(t, a, d, "different component kinds must not collide")
}

func TestGetOrCreateSingleFlight(t *testing.T) {
	c := NewSegmentCache(nil)
	var calls int32

	producer := func(ctx context.Context) (interface{}, []byte, error) {
		atomic.AddInt32(&calls, 1)
		// Hold the entry open long enough for every goroutine to pile up.
		time.Sleep(50 * time.Millisecond)
		return "result", nil, nil
	}

	fp := NewFingerprint("narration", "same text")
	const waiters = 16
	var wg sync.WaitGroup
	results := make([]interface{}, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCreate(context.Background(), fp, producer, nil)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one producer invocation")
	for _, v := range results {
		assert.Equal(t, "result", v)
	}
}

func TestGetOrCreateFailureSharedThenRetried(t *testing.T) {
	c := NewSegmentCache(nil)
	var calls int32
	boom := errors.New("backend exploded")

	failing := func(ctx context.Context) (interface{}, []byte, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return nil, nil, boom
	}

	fp := NewFingerprint("media-search", "volcano drone footage")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCreate(context.Background(), fp, failing, nil)
			assert.ErrorIs(t, err, boom, "all concurrent waiters share the failure")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// A failed entry must not be served again: the next caller re-invokes
	// the producer.
	ok := func(ctx context.Context) (interface{}, []byte, error) {
		atomic.AddInt32(&calls, 1)
		return "recovered", nil, nil
	}
	v, err := c.GetOrCreate(context.Background(), fp, ok, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

type fakeStore struct {
	mu   sync.Mutex
	data map[Fingerprint][]byte
	gets int
	puts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[Fingerprint][]byte)}
}

func (f *fakeStore) Get(_ context.Context, fp Fingerprint) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.data[fp]
	return v, ok, nil
}

func (f *fakeStore) Put(_ context.Context, fp Fingerprint, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.data[fp] = value
	return nil
}

func TestGetOrCreateWriteThroughStore(t *testing.T) {
	store := newFakeStore()
	c := NewSegmentCache(store)

	fp := NewFingerprint("script", "top 5 deserts", "english")
	producer := func(ctx context.Context) (interface{}, []byte, error) {
		return "script-body", []byte("script-body"), nil
	}
	decoder := func(data []byte) (interface{}, error) { return string(data), nil }

	v, err := c.GetOrCreate(context.Background(), fp, producer, decoder)
	require.NoError(t, err)
	assert.Equal(t, "script-body", v)
	assert.Equal(t, 1, store.puts, "ready value written through")

	// A fresh cache (new process) finds the value in the store and never
	// runs the producer.
	c2 := NewSegmentCache(store)
	v2, err := c2.GetOrCreate(context.Background(), fp, func(ctx context.Context) (interface{}, []byte, error) {
		t.Fatal("producer must not run when the store has the value")
		return nil, nil, nil
	}, decoder)
	require.NoError(t, err)
	assert.Equal(t, "script-body", v2)
}

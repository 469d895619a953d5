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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

func TestDoRetriesRateLimitUntilSuccess(t *testing.T) {
	p := NewPolicy(4, time.Millisecond, 10*time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &model.RateLimitError{Backend: "tts", Err: errors.New("429")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := NewPolicy(5, time.Millisecond, 10*time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &model.ValidationError{Field: "duration", Reason: "non-positive"}
	})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, calls, "validation errors are never retried")
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	p := NewPolicy(3, time.Millisecond, 5*time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &model.TransientNetworkError{Op: "download", Err: errors.New("timeout")}
	})
	var tn *model.TransientNetworkError
	require.ErrorAs(t, err, &tn)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	p := NewPolicy(10, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func(ctx context.Context) error {
		return &model.RateLimitError{Backend: "tts", Err: errors.New("429")}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

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

// Package retry provides a single, explicit retry policy shared by every
// backend caller in the pipeline. Components that talk to rate-limited
// services (script generation, narration synthesis, media search) construct
// a Policy from configuration instead of scattering retry constants through
// their own code.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// Policy describes how an operation is retried. The zero value is not
// usable; construct with NewPolicy or populate every field.
type Policy struct {
	MaxAttempts    int           // Total attempts including the first call. Minimum 1.
	InitialBackoff time.Duration // Wait before the second attempt.
	MaxBackoff     time.Duration // Ceiling for the backoff curve.
	Multiplier     float64       // Growth factor applied after each failed attempt.
}

// NewPolicy returns a Policy with the given attempt budget and a doubling
// backoff curve starting at initial and capped at max.
func NewPolicy(maxAttempts int, initial, max time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		MaxAttempts:    maxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     max,
		Multiplier:     2.0,
	}
}

// Do runs op until it succeeds, the attempt budget is exhausted, a
// non-retryable error occurs, or ctx is cancelled. Only errors classified
// retryable by model.IsRetryable are retried. When a RateLimitError carries
// a RetryAfter hint larger than the computed backoff, the hint wins.
//
// The returned error is the one from the final attempt.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := p.InitialBackoff
	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxAttempts || !model.IsRetryable(err) {
			return err
		}

		wait := backoff
		var rl *model.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > wait {
			wait = rl.RetryAfter
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * p.Multiplier)
		if backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

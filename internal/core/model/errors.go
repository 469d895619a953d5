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

// Package model defines the core data structures for the application.
// This file contains the error taxonomy shared by every component. Backends
// translate their transport- or provider-specific failures into one of these
// types so callers can make retry and fallback decisions without inspecting
// provider error strings.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ConfigurationError indicates that the loaded configuration is unusable,
// for example an agent model name that does not resolve to a known model.
// These errors are raised at construction time, never mid-run.
type ConfigurationError struct {
	Field  string // The configuration field that failed validation.
	Reason string // A human-readable description of the problem.
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// RateLimitError indicates the upstream service rejected a call because of
// quota exhaustion. It is retryable with backoff.
type RateLimitError struct {
	Backend    string        // The logical backend name (e.g. "gemini-tts", "pexels").
	RetryAfter time.Duration // Optional server-provided wait hint; zero when unknown.
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: %v", e.Backend, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientNetworkError indicates a failure that is expected to clear on its
// own, such as a timeout, a dropped connection, or an upstream 5xx response.
type TransientNetworkError struct {
	Op  string // The operation that failed (e.g. "pexels search", "asset download").
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error during %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// BackendUnavailableError indicates a backend cannot serve requests at all.
// Callers should switch to their fallback rather than retry.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// ValidationError indicates that an input or an intermediate result violated
// an invariant, such as a narration clip with a non-positive duration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// PipelineError wraps a failure that aborts an entire run. The Stage names
// the phase that failed so operators can locate the problem from a single
// log line.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is worth retrying with backoff.
// Rate limits and transient network failures qualify; everything else
// (validation, configuration, unavailable backends) does not.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var tn *TransientNetworkError
	return errors.As(err, &rl) || errors.As(err, &tn)
}

// IsRateLimit reports whether the error chain contains a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

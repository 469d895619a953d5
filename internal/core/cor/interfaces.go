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

// Package cor (Chain of Responsibility) is the small workflow framework the
// video generation pipelines are built on. A workflow is a Chain of Commands
// sharing one Context; the chain pipes each command's primary output into
// the next command's primary input and instruments every step with
// OpenTelemetry spans and counters.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the well-known context keys the chain uses to pipe
// data between commands.
const (
	// CtxIn holds the primary input of the command about to run. The chain
	// fills it with the previous command's CtxOut value.
	CtxIn = "__IN__"
	// CtxOut is where a command leaves its primary output for the chain to
	// forward.
	CtxOut = "__OUT__"
)

// Context is the shared state bag for one workflow execution. Commands read
// their inputs from it, record results and errors into it, and register any
// temporary files they create so Close can clean them up.
type Context interface {
	// SetContext stores the Go context carrying cancellation and the active
	// OpenTelemetry span.
	SetContext(context context.Context)

	// GetContext returns the stored Go context.
	GetContext() context.Context

	// Add stores a key-value pair and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records a failure, keyed by the name of the command that
	// produced it.
	AddError(key string, err error)

	// GetErrors returns every error recorded so far.
	GetErrors() map[string]error

	// Get retrieves a stored value, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a stored value.
	Remove(key string)

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile registers a file for removal when the context closes.
	AddTempFile(file string)

	// GetTempFiles lists every registered temporary file.
	GetTempFiles() []string

	// Close removes registered temporary files. Defer it where the workflow
	// starts so artifacts are cleaned on every exit path.
	Close()
}

// Executable is anything with a single execution entry point.
type Executable interface {
	// Execute runs the business logic against the shared Context.
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of work and the building block of
// every workflow.
type Command interface {
	Executable

	// GetName returns the command name used in spans, metrics, and error keys.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable reports whether the context holds everything the command
	// needs to run.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter counts successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter counts failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest inside other chains.
type Chain interface {
	Command

	// ContinueOnFailure controls whether later commands still run after an
	// earlier one records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}

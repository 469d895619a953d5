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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// initial command in the video generation workflow.
//
// Logic Flow:
// This command is the entry point for any workflow triggered by a message on
// the request topic. Producers publish a JSON-encoded topic request; this
// command is responsible for parsing and validating that message.
//
//  1. The command receives the raw message data as a JSON string from the context.
//  2. It unmarshals the JSON into a `model.TopicRequest`.
//  3. It normalizes the request (filling defaults for kind, duration, and
//     language) and validates it, rejecting requests that could never run.
//  4. It assigns a run ID when the producer did not supply one, so every
//     downstream artifact and log line can be correlated.
//  5. The validated request is placed back into the context under a
//     well-known key, making it available to every later command in the
//     chain, and under the default output parameter so it becomes the next
//     command's input.
package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// TopicRequestReader is a command that parses a request topic message into
// a validated TopicRequest.
type TopicRequestReader struct {
	cor.BaseCommand // Embeds the BaseCommand for common functionality.
}

// NewTopicRequestReader is the constructor for the TopicRequestReader command.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *TopicRequestReader: A pointer to the newly instantiated command.
func NewTopicRequestReader(name string) *TopicRequestReader {
	return &TopicRequestReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute contains the core logic for parsing the request message.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution, containing
//     the raw message data in the input parameter.
func (c *TopicRequestReader) Execute(context cor.Context) {
	// Retrieve the raw JSON message string from the context.
	in := context.Get(c.GetInputParam()).(string)

	req := &model.TopicRequest{}
	if err := json.Unmarshal([]byte(in), req); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal topic request: %w", err))
		return
	}

	// Fill defaults before validating so a minimal {"topic": ...} payload
	// passes, then reject anything that could never run.
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)

	// Record when the run was accepted; the persistence command uses this as
	// the run record's creation time.
	context.Add(GetRunStartName(), time.Now())

	// Store the request under a well-known key for the whole chain, and as
	// the output so it becomes the generation command's input.
	context.Add(GetTopicRequestName(), req)
	context.Add(c.GetOutputParam(), req)
}

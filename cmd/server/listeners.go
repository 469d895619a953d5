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

// Package main contains the logic for setting up and starting the Pub/Sub message listeners.
// These listeners are responsible for initiating video generation runs in response to
// topic requests published by other systems.
//
// Functions:
//   - SetupListeners: Attaches the generation workflow to the request
//     subscription and starts receiving.
package main

import (
	"context"

	"github.com/unqtube/unqtube-go/internal/cloud"
)

// SetupListeners configures and starts the background Pub/Sub listeners.
// It attaches the video generation workflow to the request topic listener.
//
// Inputs:
//   - cloudClients: A struct containing all the initialized service clients.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
//
// Outputs:
//   - This function does not return any value. It starts the listeners as background goroutines.
func SetupListeners(cloudClients *cloud.ServiceClients, ctx context.Context) {
	// Assign the generation workflow as the command to be executed by the
	// listener for the request topic. The key matches the
	// [topic_subscriptions.VideoRequests] section of the configuration.
	cloudClients.PubSubListeners["VideoRequests"].SetCommand(state.generationWorkflow)
	// Start the listener in a background goroutine. It will now begin
	// receiving and processing messages from its subscription. Messages are
	// only acknowledged when the whole chain succeeds, so failed runs are
	// redelivered per the subscription's retry policy.
	cloudClients.PubSubListeners["VideoRequests"].Listen(ctx)
}

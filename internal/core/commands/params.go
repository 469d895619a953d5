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
// well-known context keys the video generation commands share. Several
// commands need the same values regardless of their position in the chain
// (the parsed request, the run result, the published URL), so those are
// stored under fixed keys instead of the chain's input/output piping.
package commands

// GetTopicRequestName returns the context key holding the parsed
// *model.TopicRequest for the whole chain.
func GetTopicRequestName() string {
	return "__topic_request__"
}

// GetRunResultName returns the context key holding the *pipeline.RunResult
// of a successful generation.
func GetRunResultName() string {
	return "__run_result__"
}

// GetVideoURLName returns the context key holding the canonical URL of the
// published video.
func GetVideoURLName() string {
	return "__video_url__"
}

// GetRunStartName returns the context key holding the time.Time the run
// was accepted, recorded by the request reader.
func GetRunStartName() string {
	return "__run_start__"
}

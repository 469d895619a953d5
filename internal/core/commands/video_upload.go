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
// command that publishes a rendered video to Google Cloud Storage.
//
// Logic Flow:
// This command follows the generation command. Its purpose is to take the
// rendered MP4 out of the run workspace and persist it to the output bucket,
// where the signed URL service can later hand it to clients.
//
//  1. Get the run result from the COR context.
//  2. Stream the rendered file to the output bucket. The object is named
//     after the run ID so the run history row and the stored object can
//     always be matched up.
//  3. Store the canonical object URL under a well-known key for the
//     persistence command, and as the command output.
package commands

import (
	"fmt"
	"log"

	"cloud.google.com/go/storage"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/cor"
	"github.com/unqtube/unqtube-go/internal/core/pipeline"
)

// VideoUpload is a command implementation responsible for uploading a
// rendered video from the run workspace to a Google Cloud Storage bucket.
type VideoUpload struct {
	cor.BaseCommand                 // Embeds the BaseCommand for common functionality like naming and metrics.
	client          *storage.Client // The GCS client for interacting with the storage service.
	bucket          string          // The name of the destination GCS bucket.
}

// NewVideoUpload is the constructor for creating a new VideoUpload command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - client: An initialized *storage.Client for communicating with GCS.
//   - bucket: The name of the target GCS bucket for the upload.
//
// Outputs:
//   - *VideoUpload: A pointer to the newly instantiated command.
func NewVideoUpload(name string, client *storage.Client, bucket string) *VideoUpload {
	return &VideoUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// Execute contains the core logic for the command. It streams the rendered
// file to the output bucket.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *VideoUpload) Execute(context cor.Context) {
	result := context.Get(c.GetInputParam()).(*pipeline.RunResult)
	object := fmt.Sprintf("%s.mp4", result.Plan.RunID)

	url, err := cloud.UploadFile(
		context.GetContext(), c.client, c.bucket, object,
		result.Plan.OutputPath, "video/mp4")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoURLName(), url)
	context.Add(c.GetOutputParam(), url)
	log.Printf("published run %s to gs://%s/%s", result.Plan.RunID, c.bucket, object)
}

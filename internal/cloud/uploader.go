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

// Package cloud provides components for interacting with external services.
// This file holds the Google Cloud Storage upload helper used to publish
// rendered videos, and the canonical GCS URL format shared with the signed
// URL generation in the run service.
package cloud

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GCSURLPrefix is the scheme-qualified host every stored object URL starts
// with. Signed URL generation parses bucket and object back out of it.
const GCSURLPrefix = "https://storage.mtls.cloud.google.com/"

// ObjectURL returns the canonical URL for an object in a bucket.
func ObjectURL(bucket, object string) string {
	return fmt.Sprintf("%s%s/%s", GCSURLPrefix, bucket, object)
}

// UploadFile streams a local file into a GCS bucket and returns the
// canonical URL of the created object.
//
// Inputs:
//   - ctx: The request context.
//   - client: The storage client.
//   - bucket: Destination bucket name.
//   - object: Destination object name.
//   - localPath: Path of the file to upload.
//   - contentType: MIME type recorded on the object (e.g. "video/mp4").
//
// Outputs:
//   - string: The canonical object URL.
//   - error: Any failure opening, writing, or finalizing the object.
func UploadFile(ctx context.Context, client *storage.Client, bucket, object, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	wc := client.Bucket(bucket).Object(object).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, f); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to write object %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", object, err)
	}
	return ObjectURL(bucket, object), nil
}

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
// This file selects and downloads background music tracks from the music
// bucket. Tracks are plain audio objects; the pipeline picks one at random
// per run and mixes it under the narration during the final render.
package cloud

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// DownloadObject streams a GCS object to a local file.
//
// Inputs:
//   - ctx: The request context.
//   - client: The storage client.
//   - bucket: Source bucket name.
//   - object: Source object name.
//   - destPath: Local path to write.
//
// Outputs:
//   - error: Any failure reading the object or writing the file.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to open object %s/%s: %w", bucket, object, err)
	}
	defer func() { _ = rc.Close() }()

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, rc)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("failed to download %s/%s: %w", bucket, object, err)
	}
	return closeErr
}

// PickMusicTrack lists the music bucket, picks one track at random, and
// downloads it into destDir. An empty bucket returns an empty path with a
// nil error so the caller renders without music.
func PickMusicTrack(ctx context.Context, client *storage.Client, bucket, destDir string) (string, error) {
	var names []string
	itr := client.Bucket(bucket).Objects(ctx, nil)
	for {
		attrs, err := itr.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to list music bucket %s: %w", bucket, err)
		}
		names = append(names, attrs.Name)
	}
	if len(names) == 0 {
		return "", nil
	}

	object := names[rand.Intn(len(names))]
	destPath := filepath.Join(destDir, "music"+filepath.Ext(object))
	if err := DownloadObject(ctx, client, bucket, object, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

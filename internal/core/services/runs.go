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

// Package services contains the business logic for interacting with data
// sources. This file defines the RunService, the data access layer for the
// run history table in BigQuery and for generating secure, time-limited
// download URLs for finished videos in Google Cloud Storage.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// RunService reads and writes the durable run history.
type RunService struct {
	BigqueryClient *bigquery.Client                  // Client for the run history dataset.
	StorageClient  *storage.Client                   // Client for the output bucket.
	IAMClient      *credentials.IamCredentialsClient // Used when signing runs on GCP infrastructure.
	SignerEmail    string                            // Service account email used to sign URLs.
	DatasetName    string                            // BigQuery dataset holding the run table.
	RunTable       string                            // Table with one row per finished run.
}

// GetFQN returns the fully qualified, query-ready name of the run table.
func (s *RunService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RunTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Insert streams one run record into the history table.
func (s *RunService) Insert(ctx context.Context, record *model.RunRecord) error {
	inserter := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RunTable).Inserter()
	if err := inserter.Put(ctx, record); err != nil {
		return fmt.Errorf("bigquery insert failed for run %s: %w", record.ID, err)
	}
	return nil
}

// Get retrieves a single run record by its ID.
func (s *RunService) Get(ctx context.Context, id string) (*model.RunRecord, error) {
	queryText := fmt.Sprintf(QryFindRunById, s.GetFQN(), id)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	record := &model.RunRecord{}
	if err := itr.Next(record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the most recent runs, newest first.
func (s *RunService) List(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	queryText := fmt.Sprintf(QryListRecentRuns, s.GetFQN(), limit)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*model.RunRecord, 0, limit)
	for {
		record := &model.RunRecord{}
		err := itr.Next(record)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// parseObjectURL splits a canonical object URL back into bucket and object.
func parseObjectURL(objectURL string) (bucket, object string, err error) {
	if !strings.HasPrefix(objectURL, cloud.GCSURLPrefix) {
		return "", "", fmt.Errorf("invalid object URL format: %s", objectURL)
	}
	path := strings.TrimPrefix(objectURL, cloud.GCSURLPrefix)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unable to determine bucket and object from %s", objectURL)
	}
	return parts[0], parts[1], nil
}

// GenerateSignedURL creates a time-limited download URL for a finished
// video so clients can fetch it without GCP credentials. The input is the
// canonical object URL recorded on the run.
func (s *RunService) GenerateSignedURL(_ context.Context, objectURL string, expires time.Duration) (string, error) {
	bucketName, objectName, err := parseObjectURL(objectURL)
	if err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucketName, objectName, err)
	}
	return u, nil
}

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
// This file holds the models persisted to BigQuery. The `bigquery` tags map
// struct fields to table columns; the run table schema must stay in sync
// with this struct.
package model

import "time"

// Run status values persisted with each RunRecord.
const (
	RunStatusRunning  = "RUNNING"
	RunStatusComplete = "COMPLETE"
	RunStatusDegraded = "DEGRADED"
	RunStatusFailed   = "FAILED"
)

// RunRecord is the durable summary of one video generation run. One row is
// written when the run finishes, successfully or not.
type RunRecord struct {
	ID              string    `json:"id" bigquery:"id"`
	Topic           string    `json:"topic" bigquery:"topic"`
	Kind            string    `json:"kind" bigquery:"kind"`
	Language        string    `json:"language" bigquery:"language"`
	Status          string    `json:"status" bigquery:"status"`
	ScriptOrigin    string    `json:"script_origin" bigquery:"script_origin"`
	SegmentCount    int       `json:"segment_count" bigquery:"segment_count"`
	DegradedCount   int       `json:"degraded_count" bigquery:"degraded_count"`
	DurationSeconds float64   `json:"duration_seconds" bigquery:"duration_seconds"`
	VideoURL        string    `json:"video_url" bigquery:"video_url"`
	ErrorMessage    string    `json:"error_message,omitempty" bigquery:"error_message"`
	CreatedAt       time.Time `json:"created_at" bigquery:"created_at"`
	FinishedAt      time.Time `json:"finished_at" bigquery:"finished_at"`
}

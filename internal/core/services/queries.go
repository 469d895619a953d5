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

// Package services contains the business logic for interacting with data sources.
// This file, `queries.go`, centralizes all the BigQuery SQL query strings used
// by the application's services. Storing queries as constants in a dedicated
// file improves maintainability, readability, and reusability. The queries use
// `fmt.Sprintf` format verbs (e.g., %s, %d) as placeholders for dynamic values
// that will be injected at runtime.
package services

const (
	// QryFindRunById defines a simple lookup query to retrieve a complete run
	// record from the run history table using its unique ID.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the run table.
	// - `%s`: The unique ID of the run to find.
	QryFindRunById = "SELECT * from `%s` WHERE id = '%s'"

	// QryListRecentRuns returns the newest runs first. Used by the status API
	// to show recent activity without scanning the full history.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the run table.
	// - `%d`: The maximum number of rows to return.
	QryListRecentRuns = "SELECT * from `%s` ORDER BY created_at desc LIMIT %d"
)

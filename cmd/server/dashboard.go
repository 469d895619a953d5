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

// Package main contains the API route definitions for the server. This file
// defines a small statistics endpoint summarizing recent run activity.
//
// Functions:
//   - Dashboard: Sets up a route group for statistics-related endpoints.
package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the API routes for run statistics.
// It creates a new route group "/stats" nested under the main API router group.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the new "/stats" route group will be added.
//
// Outputs:
//   - This function does not return any value. It modifies the provided *gin.RouterGroup
//     by adding a new route handler.
//
// The GET endpoint at the root of the "/stats" group (e.g., /api/v1/stats)
// summarizes the most recent runs: a count per status plus the degraded
// segment total, so a dashboard can show pipeline health at a glance. The
// window defaults to the last 100 runs and can be changed with ?window=<n>.
func Dashboard(r *gin.RouterGroup) {
	// Create a new router group for any statistics-related endpoints, prefixed with "/stats".
	stats := r.Group("/stats")
	{
		// Register a handler for a GET request to the "/stats" endpoint.
		stats.GET("", func(c *gin.Context) {
			window, err := strconv.Atoi(c.DefaultQuery("window", "100"))
			if err != nil {
				window = 100
			}
			records, err := state.runService.List(c, window)
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}

			statusCounts := make(map[string]int)
			degradedSegments := 0
			totalSeconds := 0.0
			for _, record := range records {
				statusCounts[record.Status]++
				degradedSegments += record.DegradedCount
				totalSeconds += record.DurationSeconds
			}

			c.JSON(http.StatusOK, gin.H{
				"window":            len(records),
				"statuses":          statusCounts,
				"degraded_segments": degradedSegments,
				"video_seconds":     totalSeconds,
			})
		})
	}
}

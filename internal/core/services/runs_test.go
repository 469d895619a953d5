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

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	bucket, object, err := parseObjectURL("https://storage.mtls.cloud.google.com/output-bucket/run-42.mp4")
	require.NoError(t, err)
	assert.Equal(t, "output-bucket", bucket)
	assert.Equal(t, "run-42.mp4", object)
}

func TestParseObjectURLNestedObject(t *testing.T) {
	bucket, object, err := parseObjectURL("https://storage.mtls.cloud.google.com/output-bucket/runs/2026/run-42.mp4")
	require.NoError(t, err)
	assert.Equal(t, "output-bucket", bucket)
	assert.Equal(t, "runs/2026/run-42.mp4", object)
}

func TestParseObjectURLRejectsForeignScheme(t *testing.T) {
	_, _, err := parseObjectURL("gs://output-bucket/run-42.mp4")
	assert.Error(t, err)
}

func TestParseObjectURLRejectsMissingObject(t *testing.T) {
	_, _, err := parseObjectURL("https://storage.mtls.cloud.google.com/output-bucket")
	assert.Error(t, err)
}

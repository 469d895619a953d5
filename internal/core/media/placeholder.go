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

// Package media finds and downloads the stock footage shown behind each
// narrated segment. This file generates the solid-color placeholder clip
// used when no stock footage survives the search for a segment. The run
// degrades instead of failing.
package media

import (
	"fmt"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// Placeholder dimensions for the two output formats.
const (
	LandscapeWidth  = 1920
	LandscapeHeight = 1080
	PortraitWidth   = 1080
	PortraitHeight  = 1920
)

// PlaceholderSize returns the placeholder dimensions for a video kind.
func PlaceholderSize(kind model.VideoKind) (width, height int) {
	if kind == model.KindShort {
		return PortraitWidth, PortraitHeight
	}
	return LandscapeWidth, LandscapeHeight
}

// Placeholder renders a black clip of the given size and length to path.
func Placeholder(path string, width, height int, duration time.Duration) (*model.VisualAsset, error) {
	seconds := duration.Seconds()
	if seconds <= 0 {
		seconds = 5
	}

	source := fmt.Sprintf("color=c=black:s=%dx%d:d=%.2f", width, height, seconds)
	err := ffmpeg.Input(source, ffmpeg.KwArgs{"f": "lavfi"}).
		Output(path, ffmpeg.KwArgs{"pix_fmt": "yuv420p", "r": 30}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return nil, fmt.Errorf("failed to render placeholder: %w", err)
	}

	return &model.VisualAsset{
		Path:        path,
		MIMEType:    "video/mp4",
		Width:       width,
		Height:      height,
		Placeholder: true,
	}, nil
}

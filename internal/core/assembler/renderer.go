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

// Package assembler turns per-segment narration and visuals into the final
// video. This file drives ffmpeg: each plan entry is rendered to a
// normalized clip whose length matches its narration, and the clips are
// joined with the concat demuxer. Normalizing every clip to one codec,
// frame rate, and resolution first is what makes the cheap stream-copy
// concat safe.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// Renderer renders a VideoPlan to an MP4 file.
type Renderer struct {
	width     int
	height    int
	frameRate int
}

// NewRenderer creates a renderer for the given output resolution.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{width: width, height: height, frameRate: 30}
}

// Render produces plan.OutputPath from the plan entries, using workDir for
// the intermediate clips. The caller owns workDir cleanup.
func (r *Renderer) Render(ctx context.Context, plan *model.VideoPlan, workDir string) error {
	if len(plan.Entries) == 0 {
		return fmt.Errorf("plan has no entries to render")
	}

	clipPaths := make([]string, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		clipPath := filepath.Join(workDir, fmt.Sprintf("clip-%03d.mp4", entry.Sequence))
		if err := r.renderClip(entry, clipPath); err != nil {
			return fmt.Errorf("failed to render segment %d: %w", entry.Sequence, err)
		}
		clipPaths = append(clipPaths, clipPath)
		slog.InfoContext(ctx, "rendered segment clip",
			"run_id", plan.RunID,
			"segment", entry.Sequence,
			"duration", entry.Duration)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if plan.MusicPath == "" {
		return r.concat(clipPaths, workDir, plan.OutputPath)
	}
	joined := filepath.Join(workDir, "joined.mp4")
	if err := r.concat(clipPaths, workDir, joined); err != nil {
		return err
	}
	return r.mixMusic(joined, plan.MusicPath, plan.OutputPath)
}

// renderClip builds one normalized clip: the visual looped and cropped to
// the output frame, trimmed to the narration length, with the narration as
// the audio track.
func (r *Renderer) renderClip(entry *model.PlanEntry, outPath string) error {
	seconds := entry.Duration.Seconds()

	videoIn := ffmpeg.Input(entry.Visual.Path, ffmpeg.KwArgs{"stream_loop": -1})
	video := videoIn.Video().
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d:force_original_aspect_ratio=increase", r.width, r.height)}).
		Filter("crop", ffmpeg.Args{fmt.Sprintf("%d:%d", r.width, r.height)}).
		Filter("setsar", ffmpeg.Args{"1"}).
		Filter("fps", ffmpeg.Args{fmt.Sprintf("%d", r.frameRate)})
	audio := ffmpeg.Input(entry.Narration.AudioPath).Audio()

	return ffmpeg.Output(
		[]*ffmpeg.Stream{video, audio},
		outPath,
		ffmpeg.KwArgs{
			"t":       fmt.Sprintf("%.3f", seconds),
			"c:v":     "libx264",
			"preset":  "veryfast",
			"pix_fmt": "yuv420p",
			"c:a":     "aac",
			"ar":      44100,
			"ac":      2,
		}).
		OverWriteOutput().
		Silent(true).
		Run()
}

// concat joins the normalized clips with the concat demuxer and a stream
// copy.
func (r *Renderer) concat(clipPaths []string, workDir, outPath string) error {
	var list strings.Builder
	for _, p := range clipPaths {
		list.WriteString(fmt.Sprintf("file '%s'\n", p))
	}
	listPath := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}

	err := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(outPath, ffmpeg.KwArgs{"c": "copy", "movflags": "+faststart"}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return fmt.Errorf("failed to join segment clips: %w", err)
	}
	return nil
}

// mixMusic lays the background track under the narration at reduced volume.
// The track loops for the length of the video and the video stream is copied
// untouched.
func (r *Renderer) mixMusic(videoPath, musicPath, outPath string) error {
	video := ffmpeg.Input(videoPath)
	music := ffmpeg.Input(musicPath, ffmpeg.KwArgs{"stream_loop": -1}).
		Audio().
		Filter("volume", ffmpeg.Args{"0.2"})
	mixed := ffmpeg.Filter(
		[]*ffmpeg.Stream{video.Audio(), music},
		"amix",
		ffmpeg.Args{},
		ffmpeg.KwArgs{"inputs": 2, "duration": "first"})

	err := ffmpeg.Output(
		[]*ffmpeg.Stream{video.Video(), mixed},
		outPath,
		ffmpeg.KwArgs{"c:v": "copy", "c:a": "aac", "movflags": "+faststart"}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return fmt.Errorf("failed to mix background music: %w", err)
	}
	return nil
}

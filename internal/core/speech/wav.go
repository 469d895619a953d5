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

// Package speech synthesizes narration audio for script segments.
// This file frames raw PCM from the primary backend into a WAV container so
// the renderer can consume it without extra format hints.
package speech

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

const (
	pcmBytesPerSample = 2 // Signed 16-bit little-endian samples.
	pcmChannels       = 1
)

// Silence writes a silent WAV clip of the given length to path. It backs a
// degraded segment whose narration failed on every backend, so the run can
// finish with the segment marked instead of aborting.
func Silence(path string, duration time.Duration) (*model.NarrationResult, error) {
	if duration <= 0 {
		duration = 3 * time.Second
	}
	samples := int(duration.Seconds() * float64(DefaultSampleRate))
	pcm := make([]byte, samples*pcmBytesPerSample)
	if err := writeWAV(path, pcm, DefaultSampleRate); err != nil {
		return nil, err
	}
	return &model.NarrationResult{
		AudioPath:   path,
		Duration:    pcmDuration(pcm, DefaultSampleRate),
		Placeholder: true,
	}, nil
}

// pcmDuration computes the play time of a raw mono 16-bit PCM buffer.
func pcmDuration(data []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(data) / pcmBytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// writeWAV writes a raw PCM buffer to path inside a minimal RIFF/WAVE
// wrapper. The 44 byte header is fixed for mono 16-bit linear PCM.
func writeWAV(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	byteRate := sampleRate * pcmChannels * pcmBytesPerSample
	blockAlign := pcmChannels * pcmBytesPerSample

	header := make([]byte, 0, 44)
	header = append(header, []byte("RIFF")...)
	header = binary.LittleEndian.AppendUint32(header, uint32(36+len(pcm)))
	header = append(header, []byte("WAVE")...)
	header = append(header, []byte("fmt ")...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, 1) // PCM format.
	header = binary.LittleEndian.AppendUint16(header, pcmChannels)
	header = binary.LittleEndian.AppendUint32(header, uint32(sampleRate))
	header = binary.LittleEndian.AppendUint32(header, uint32(byteRate))
	header = binary.LittleEndian.AppendUint16(header, uint16(blockAlign))
	header = binary.LittleEndian.AppendUint16(header, pcmBytesPerSample*8)
	header = append(header, []byte("data")...)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(pcm)))

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	if _, err := f.Write(pcm); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return nil
}

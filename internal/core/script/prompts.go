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

// Package script turns a topic request into a structured narration script.
// This file renders the LLM prompts. The templates are overridable from
// configuration so prompt tuning never requires a rebuild; the compiled-in
// defaults below are what ships.
package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/unqtube/unqtube-go/internal/cloud"
	"github.com/unqtube/unqtube-go/internal/core/model"
)

// defaultScriptPrompt is the structured generation prompt. The example JSON
// block is the few-shot anchor: the model is asked to mirror its exact shape.
const defaultScriptPrompt = `You are a scriptwriter for narrated online videos.

Write a script about the topic "{{.Topic}}" in {{.Language}}.
{{if .GeneralTopic}}The video belongs to a channel about {{.GeneralTopic}}; keep the framing consistent with that theme.
{{end}}The script must contain exactly {{.SegmentCount}} segments.
{{if .LongForm}}The first segment has role "intro", the last segment has role "outro", and the {{.BodyCount}} segments between them have role "body". Each body segment covers one distinct item or idea and opens with its number, for example "Number one, ...".
{{else}}Every segment has role "body". Keep each narration to one or two punchy sentences suitable for a vertical short.
{{end}}
Each segment needs:
- "heading": a short on-screen title.
- "narration": the spoken text, roughly {{.WordsPerSegment}} words for body segments.
- "search_terms": one to three stock footage queries that visually match the narration.

Respond with a single JSON object and nothing else. Use exactly this shape:

{{.ExampleJSON}}
`

// defaultStrictSuffix is appended for the retry after a malformed response.
const defaultStrictSuffix = `

Your previous answer could not be parsed. Respond again with ONLY the JSON
object. No markdown fences, no commentary, no trailing text. Every field in
the example must be present and "segments" must contain exactly the number
of entries requested.`

// promptData is the template input for one prompt rendering.
type promptData struct {
	Topic           string
	GeneralTopic    string // Empty when it matches the topic; the prompt omits the line.
	Language        string
	SegmentCount    int
	BodyCount       int
	WordsPerSegment int
	LongForm        bool
	ExampleJSON     string
}

// PromptBuilder renders the script generation prompts for a request.
type PromptBuilder struct {
	scriptTemplate *template.Template
	strictSuffix   string
	pacing         Pacing
}

// NewPromptBuilder compiles the prompt templates from configuration,
// substituting the built-in defaults where the configuration is empty.
// A template that fails to compile is a configuration error.
func NewPromptBuilder(templates cloud.PromptTemplates, pacing Pacing) (*PromptBuilder, error) {
	source := templates.ScriptPrompt
	if source == "" {
		source = defaultScriptPrompt
	}
	tmpl, err := template.New("script").Parse(source)
	if err != nil {
		return nil, &model.ConfigurationError{Field: "prompt_templates.script", Reason: err.Error()}
	}
	suffix := templates.StrictSuffix
	if suffix == "" {
		suffix = defaultStrictSuffix
	}
	return &PromptBuilder{scriptTemplate: tmpl, strictSuffix: suffix, pacing: pacing}, nil
}

// Render produces the prompt for a request. When strict is true the
// stricter formatting suffix is appended, used on the retry after the first
// response failed to parse.
func (b *PromptBuilder) Render(req *model.TopicRequest, segmentCount int, strict bool) (string, error) {
	example, err := json.MarshalIndent(model.GetExampleScript(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize example script: %w", err)
	}

	generalTopic := req.GeneralTopic
	if generalTopic == req.Topic {
		generalTopic = ""
	}
	data := promptData{
		Topic:           req.Topic,
		GeneralTopic:    generalTopic,
		Language:        req.Language,
		SegmentCount:    segmentCount,
		BodyCount:       BodyCount(req.Kind, segmentCount),
		WordsPerSegment: b.pacing.WordsPerSegment,
		LongForm:        req.Kind == model.KindLong,
		ExampleJSON:     string(example),
	}

	var out bytes.Buffer
	if err := b.scriptTemplate.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render script prompt: %w", err)
	}
	if strict {
		out.WriteString(b.strictSuffix)
	}
	return out.String(), nil
}

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
// This file holds the deterministic template used when every model path has
// failed. It builds from nothing but the request itself, so a run can always
// proceed to the media and narration stages.
package script

import (
	"fmt"
	"strings"

	"github.com/unqtube/unqtube-go/internal/core/model"
)

// englishTitle upper-cases the first rune of each word for the video title.
func englishTitle(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// TemplateScript builds a generic countdown-style script for the request.
// It cannot fail: every field is derived from the topic string and the
// segment count, and the search terms are the topic itself suffixed with
// the item number so the media lookup still has distinct queries.
func TemplateScript(req *model.TopicRequest, segmentCount int) *model.Script {
	topic := strings.TrimSpace(req.Topic)
	title := fmt.Sprintf("Top %d %s", BodyCount(req.Kind, segmentCount), englishTitle(topic))

	segments := make([]*model.Segment, 0, segmentCount)

	if req.Kind == model.KindShort {
		for i := 0; i < segmentCount; i++ {
			segments = append(segments, &model.Segment{
				Sequence:    i,
				Role:        model.RoleBody,
				Heading:     fmt.Sprintf("%s %d", englishTitle(topic), i+1),
				Narration:   fmt.Sprintf("Number %d. A standout pick for %s that deserves a closer look.", i+1, topic),
				SearchTerms: []string{fmt.Sprintf("%s %d", topic, i+1)},
			})
		}
		return &model.Script{
			Title:    title,
			Topic:    topic,
			Language: req.Language,
			Segments: segments,
			Origin:   model.OriginTemplate,
		}
	}

	segments = append(segments, &model.Segment{
		Sequence:    0,
		Role:        model.RoleIntro,
		Heading:     "Introduction",
		Narration:   fmt.Sprintf("Welcome. Today we are counting down the top picks for %s. Stay until the end, because the last one might surprise you.", topic),
		SearchTerms: []string{topic},
	})

	bodyCount := segmentCount - 2
	for i := 0; i < bodyCount; i++ {
		segments = append(segments, &model.Segment{
			Sequence:    i + 1,
			Role:        model.RoleBody,
			Heading:     fmt.Sprintf("%s %d", englishTitle(topic), i+1),
			Narration:   fmt.Sprintf("Number %d. This entry is one of the most talked about when it comes to %s, and it earns its place on this list.", i+1, topic),
			SearchTerms: []string{fmt.Sprintf("%s %d", topic, i+1)},
		})
	}

	segments = append(segments, &model.Segment{
		Sequence:    segmentCount - 1,
		Role:        model.RoleOutro,
		Heading:     "Wrap Up",
		Narration:   fmt.Sprintf("That wraps up our countdown for %s. If you enjoyed this one, subscribe for more, and let us know your own favorites in the comments.", topic),
		SearchTerms: []string{topic},
	})

	return &model.Script{
		Title:    title,
		Topic:    topic,
		Language: req.Language,
		Segments: segments,
		Origin:   model.OriginTemplate,
	}
}

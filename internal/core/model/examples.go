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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models.
//
// These example objects are used for "few-shot" prompting with the
// generative AI models. Embedding a concrete example of the desired JSON
// output in the prompt keeps the model's responses consistent, correctly
// formatted, and parsable.
package model

// GetExampleScript creates a sample Script object. It is serialized into the
// script generation prompt so the model sees the exact JSON shape expected
// back, including the role values and the search term arrays.
//
// Outputs:
//   - *Script: A pointer to a hardcoded Script object.
func GetExampleScript() *Script {
	return &Script{
		Title:    "Top 3 Hidden Beaches You Must Visit",
		Topic:    "hidden beaches",
		Language: "english",
		Segments: []*Segment{
			{
				Sequence:    0,
				Role:        RoleIntro,
				Heading:     "Introduction",
				Narration:   "Crystal water, empty sand, and not a tour bus in sight. These are the beaches the guidebooks forgot.",
				SearchTerms: []string{"tropical beach aerial", "turquoise ocean waves"},
			},
			{
				Sequence:    1,
				Role:        RoleBody,
				Heading:     "Playa del Amor, Mexico",
				Narration:   "Number one, Playa del Amor. Hidden inside a collapsed volcanic crater, this beach is only reachable by swimming through a short tunnel at low tide.",
				SearchTerms: []string{"hidden beach crater mexico", "marieta islands"},
			},
			{
				Sequence:    2,
				Role:        RoleOutro,
				Heading:     "Wrap Up",
				Narration:   "Which of these would you visit first? Tell us in the comments, and subscribe for more travel finds.",
				SearchTerms: []string{"sunset beach silhouette"},
			},
		},
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

import (
	"iter"
	"strings"
)

const (
	beginActor  = "Begin Actor"
	endActor    = "End Actor"
	beginObject = "Begin Object"
	endObject   = "End Object"
)

// Block is one actor region of a larger buffer. Text starts at "Begin Actor"
// and stops before the matching "End Actor".
type Block struct {
	Offset int
	Text   string
}

// ActorBlocks yields the actor regions of text from left to right.
// Blocks never overlap: scanning resumes at the "End Actor" that closed the
// previous block, so a whole buffer is searched once. A "Begin Actor" with no
// later "End Actor" yields the rest of the buffer.
// Nesting is not tracked.
func ActorBlocks(text string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		cursor := 0
		for cursor < len(text) {
			b := strings.Index(text[cursor:], beginActor)
			if b < 0 {
				return
			}
			start := cursor + b
			e := strings.Index(text[start+len(beginActor):], endActor)
			end := len(text)
			next := len(text)
			if e >= 0 {
				end = start + len(beginActor) + e
				next = end + len(endActor)
			}
			if !yield(Block{Offset: start, Text: text[start:end]}) {
				return
			}
			cursor = next
		}
	}
}

// SplitActors collects ActorBlocks into a slice of block texts.
func SplitActors(text string) []string {
	var out []string
	for b := range ActorBlocks(text) {
		out = append(out, b.Text)
	}
	return out
}

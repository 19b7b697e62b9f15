/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

import (
	"strings"
	"testing"
)

func TestSplitActorsTwoBlocks(t *testing.T) {
	text := "Begin Actor A Class=X Name=A \n x=1\nEnd Actor Begin Actor B Class=Y Name=B \n y=2\nEnd Actor"
	blocks := SplitActors(text)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks: %q", len(blocks), blocks)
	}
	if !strings.HasPrefix(blocks[0], "Begin Actor A") || !strings.HasPrefix(blocks[1], "Begin Actor B") {
		t.Fatalf("unexpected order: %q", blocks)
	}
	for _, b := range blocks {
		if strings.Contains(b, "End Actor") {
			t.Fatalf("block includes its terminator: %q", b)
		}
		if _, err := ParseActor(b, true); err != nil {
			t.Fatalf("block %q not parseable: %v", b, err)
		}
	}
}

func TestSplitActorsMissingEnd(t *testing.T) {
	text := "Begin Map\nBegin Actor Class=X Name=A \nLocation=(X=1,Y=2,Z=3)\nEnd Level"
	blocks := SplitActors(text)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	if !strings.HasSuffix(blocks[0], "End Level") {
		t.Fatalf("unterminated block should run to the end of the buffer: %q", blocks[0])
	}
}

func TestSplitActorsNoBlocks(t *testing.T) {
	for _, text := range []string{"", "Begin Map\nEnd Map\n", "End Actor End Actor", "Begin Acto"} {
		if got := SplitActors(text); len(got) != 0 {
			t.Fatalf("SplitActors(%q) = %q", text, got)
		}
	}
}

func TestSplitActorsNeverOverlaps(t *testing.T) {
	// the second Begin Actor sits inside the first block, so it is not a block of its own
	text := "Begin Actor 1\nBegin Actor 2\nEnd Actor\nBegin Actor 3\nEnd Actor\n"
	var offsets []int
	for b := range ActorBlocks(text) {
		offsets = append(offsets, b.Offset)
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != strings.Index(text, "Begin Actor 3") {
		t.Fatalf("offsets = %v", offsets)
	}
}

func TestActorBlocksStopsEarly(t *testing.T) {
	text := strings.Repeat("Begin Actor Class=X Name=A \nEnd Actor\n", 10)
	n := 0
	for range ActorBlocks(text) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("n = %d", n)
	}
}

func TestSplitActorsLargeBuffer(t *testing.T) {
	const count = 20000
	text := wrapLevel()
	var b strings.Builder
	for i := 0; i < count; i++ {
		b.WriteString("Begin Actor Class=StaticMeshActor Name=A \n  Location=(X=1,Y=2,Z=3)\nEnd Actor\n")
	}
	text += b.String()
	if got := len(SplitActors(text)); got != count {
		t.Fatalf("got %d blocks, want %d", got, count)
	}
}

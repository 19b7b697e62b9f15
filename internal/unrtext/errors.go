/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity means the header line carried no Class=/Name= pair.
	ErrNoIdentity = errors.New("unrtext: no name and type found for object")
	// ErrBadTriplet means an assignment line is not of the Key=(a=x,b=y,c=z) shape.
	ErrBadTriplet = errors.New("unrtext: malformed float triple")
)

// IssueKind classifies a recoverable problem found while parsing.
type IssueKind string

const (
	// IssueBadComponent: one value of a triple did not parse and was set to 0.
	IssueBadComponent IssueKind = "bad_component"
	// IssueBadTriplet: a Location/Rotation/DrawScale3D line was unreadable;
	// the attribute keeps its default.
	IssueBadTriplet IssueKind = "bad_triplet"
)

// Issue is a soft failure attached to a Record. Line is 1-based within the
// normalized lines of the actor block, 0 when unknown.
type Issue struct {
	Kind    IssueKind `json:"kind" yaml:"kind"`
	Line    int       `json:"line,omitempty" yaml:"line,omitempty"`
	Message string    `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", i.Line, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// BlockError reports an actor block that produced no record.
// Offset is the byte offset of the block's "Begin Actor" marker in the batch input.
type BlockError struct {
	Offset int
	Err    error
}

func (e BlockError) Error() string {
	return fmt.Sprintf("actor block at offset %d: %v", e.Offset, e.Err)
}

func (e BlockError) Unwrap() error { return e.Err }

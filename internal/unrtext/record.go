/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package unrtext converts UnrealText, the block-delimited text the Unreal
// editor produces on copy, into Records.
//
// An average UnrealText buffer looks like this:
//
//	Begin Map
//	    Begin Level
//	        Begin Actor Class=StaticMeshActor Name=StaticMeshActor_0 Archetype=...
//	            Begin Object Class=StaticMeshComponent Name=StaticMeshComponent0
//	                ...
//	            End Object
//	            Location=(X=0.0,Y=0.0,Z=0.0)
//	            ...
//	        End Actor
//	    End Level
//	End Map
//
// Only the actors are modeled. Name and class come from the header line and
// always take precedence over same-named assignments in the body. Location,
// Rotation and DrawScale3D are read from the body. Every other line is kept
// verbatim in the record's text block so it can be written back later.
package unrtext

import "strings"

// TextBlockAttr is the Attrs key holding the opaque, order-preserved payload.
const TextBlockAttr = "textblock"

// Vec3 is an ordered float triple (X, Y, Z or Pitch, Yaw, Roll).
type Vec3 [3]float64

// Record is the structured representation of one actor.
// Name is unique only inside the namespace of its level.
type Record struct {
	Name         string            `json:"name" yaml:"name"`
	TypeInternal string            `json:"type_internal" yaml:"type_internal"`
	TypeCommon   string            `json:"type_common" yaml:"type_common"`
	Position     Vec3              `json:"position" yaml:"position,flow"`
	Rotation     Vec3              `json:"rotation" yaml:"rotation,flow"` // degrees
	Scale        Vec3              `json:"scale" yaml:"scale,flow"`
	Attrs        map[string]string `json:"attrs" yaml:"attrs"`
	Issues       []Issue           `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// NewRecord returns a record at the origin, unrotated, with identity scale.
func NewRecord(name, typeInternal, typeCommon string) *Record {
	return &Record{
		Name:         strings.Clone(name),
		TypeInternal: strings.Clone(typeInternal),
		TypeCommon:   typeCommon,
		Scale:        Vec3{1, 1, 1},
		Attrs:        map[string]string{},
	}
}

// TextBlock returns the opaque payload: every unmodeled line, each prefixed
// with a newline, in input order.
func (r *Record) TextBlock() string {
	if r == nil || r.Attrs == nil {
		return ""
	}
	return r.Attrs[TextBlockAttr]
}

// TextLines returns the payload split back into its lines.
func (r *Record) TextLines() []string {
	tb := r.TextBlock()
	if tb == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(tb, "\n"), "\n")
}

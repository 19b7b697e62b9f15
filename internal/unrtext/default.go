/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

import "unrtext/internal/types"

var std = New(WithTypeMapper(types.Default()))

// ParseActor parses one actor with the built-in type mapping and no logging.
func ParseActor(text string, isolated bool) (*Record, error) {
	return std.ParseActor(text, isolated)
}

// ParseActors parses every actor in text with the built-in type mapping.
func ParseActors(text string) []*Record {
	return std.ParseActors(text)
}

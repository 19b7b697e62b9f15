/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage keeps parsed actors in a queryable index.
// Each import of a level or selection gets its own batch id; the actors of a
// batch are stored in source order together with their text block so that a
// composer can rebuild the UnrealText later. The index runs on an embedded
// SQLite file or, for shared setups, on PostgreSQL.
package storage

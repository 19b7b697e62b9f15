/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package types maps native Unreal class names to the common object types
// shared with other editors. The table is read-mostly and safe for concurrent
// use; Replace swaps it atomically, e.g. when a mapping file is reloaded.
package types

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Unknown is returned for classes without a mapping.
const Unknown = "Unknown"

// File is the YAML layout of a mapping file:
//
//	default: Unknown
//	exact:
//	  StaticMeshActor: ObjectMesh
//	prefix:
//	  PointLight: ObjectPointLight
type File struct {
	Default string            `yaml:"default"`
	Exact   map[string]string `yaml:"exact"`
	Prefix  map[string]string `yaml:"prefix"`
}

// Table resolves internal class names. Exact entries win over prefix entries;
// among prefixes the longest match wins.
type Table struct {
	mu       sync.RWMutex
	def      string
	exact    map[string]string
	prefixes []prefixRule
}

type prefixRule struct {
	prefix string
	common string
}

// builtin mirrors the mapping used by the UDK editor bridge.
var builtin = File{
	Default: Unknown,
	Exact: map[string]string{
		"StaticMeshActor":   "ObjectMesh",
		"InterpActor":       "ObjectMesh",
		"KActor":            "ObjectMesh",
		"CameraActor":       "ObjectCamera",
		"Note":              "ObjectNote",
		"Emitter":           "ObjectEmitter",
		"PlayerStart":       "ObjectPlayerStart",
		"TargetPoint":       "ObjectTargetPoint",
		"Brush":             "ObjectBrush",
		"BlockingVolume":    "ObjectVolume",
		"PostProcessVolume": "ObjectVolume",
	},
	Prefix: map[string]string{
		"PointLight":       "ObjectPointLight",
		"SpotLight":        "ObjectSpotLight",
		"DirectionalLight": "ObjectDirectionalLight",
		"SkyLight":         "ObjectSkyLight",
		"AmbientSound":     "ObjectSound",
	},
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the shared table initialised from the built-in mapping.
func Default() *Table {
	defaultOnce.Do(func() { defaultTable = New(builtin) })
	return defaultTable
}

// Builtin returns a copy of the built-in mapping.
func Builtin() File {
	return File{Default: builtin.Default, Exact: copyMap(builtin.Exact), Prefix: copyMap(builtin.Prefix)}
}

// New builds a table from f.
func New(f File) *Table {
	t := &Table{}
	t.Replace(f)
	return t
}

// Replace swaps the table contents for f.
func (t *Table) Replace(f File) {
	def := strings.TrimSpace(f.Default)
	if def == "" {
		def = Unknown
	}
	rules := make([]prefixRule, 0, len(f.Prefix))
	for p, c := range f.Prefix {
		rules = append(rules, prefixRule{prefix: p, common: c})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].prefix) != len(rules[j].prefix) {
			return len(rules[i].prefix) > len(rules[j].prefix)
		}
		return rules[i].prefix < rules[j].prefix
	})
	exact := copyMap(f.Exact)

	t.mu.Lock()
	t.def = def
	t.exact = exact
	t.prefixes = rules
	t.mu.Unlock()
}

// CommonType returns the common type for an internal class name.
func (t *Table) CommonType(internal string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.exact[internal]; ok {
		return c
	}
	for _, r := range t.prefixes {
		if strings.HasPrefix(internal, r.prefix) {
			return r.common
		}
	}
	return t.def
}

// Snapshot returns the current contents as a File.
func (t *Table) Snapshot() File {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f := File{Default: t.def, Exact: copyMap(t.exact), Prefix: make(map[string]string, len(t.prefixes))}
	for _, r := range t.prefixes {
		f.Prefix[r.prefix] = r.common
	}
	return f
}

// Parse decodes a YAML mapping file.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("types: parse mapping: %w", err)
	}
	if len(f.Exact) == 0 && len(f.Prefix) == 0 {
		return File{}, errors.New("types: mapping has no exact or prefix entries")
	}
	return f, nil
}

// LoadFile reads a mapping file from disk.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("types: read %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal encodes f as YAML.
func Marshal(f File) ([]byte, error) {
	return yaml.Marshal(f)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

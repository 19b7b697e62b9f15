/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes parsed actor records to JSON or YAML documents,
// optionally zstd-compressed, and validates JSON documents against the
// bundled schema.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"unrtext/internal/unrtext"
)

// FormatVersion is written into every document.
const FormatVersion = 1

//go:embed record.schema.json
var schemaJSON []byte

// Format selects the document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Document is the exported form of a parsed level or selection.
type Document struct {
	FormatVersion int               `json:"format_version" yaml:"format_version"`
	Source        string            `json:"source,omitempty" yaml:"source,omitempty"`
	Actors        []*unrtext.Record `json:"actors" yaml:"actors"`
}

// NewDocument wraps records for export.
func NewDocument(source string, recs []*unrtext.Record) Document {
	if recs == nil {
		recs = []*unrtext.Record{}
	}
	return Document{FormatVersion: FormatVersion, Source: source, Actors: recs}
}

// ErrInvalid is returned when a document does not conform to the schema.
var ErrInvalid = errors.New("export: document does not match schema")

// Write encodes doc to w.
func Write(w io.Writer, doc Document, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export: encode json: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export: encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}

// Read decodes a document from r.
func Read(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case JSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return doc, fmt.Errorf("export: decode json: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return doc, fmt.Errorf("export: decode yaml: %w", err)
		}
	default:
		return doc, fmt.Errorf("export: unknown format %q", f)
	}
	return doc, nil
}

// Validate checks a JSON document against the bundled schema. The returned
// error wraps ErrInvalid and lists the violations.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("export: validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// FormatForPath picks the format from a file name, ignoring a trailing .zst.
func FormatForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".zst")))
	if ext == ".yaml" || ext == ".yml" {
		return YAML
	}
	return JSON
}

// WriteFile writes doc to path. The format follows the extension
// (.json, .yaml/.yml); a .zst suffix compresses the output. JSON output is
// validated first when validate is set.
func WriteFile(path string, doc Document, validate bool) error {
	f := FormatForPath(path)
	var buf bytes.Buffer
	if err := Write(&buf, doc, f); err != nil {
		return err
	}
	if validate && f == JSON {
		if err := Validate(buf.Bytes()); err != nil {
			return err
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			_ = out.Close()
			return fmt.Errorf("export: zstd writer: %w", err)
		}
		if _, err := enc.Write(buf.Bytes()); err != nil {
			_ = enc.Close()
			_ = out.Close()
			return fmt.Errorf("export: write %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			_ = out.Close()
			return fmt.Errorf("export: flush %s: %w", path, err)
		}
	} else if _, err := out.Write(buf.Bytes()); err != nil {
		_ = out.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a document written by WriteFile.
func ReadFile(path string) (Document, error) {
	in, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer func() { _ = in.Close() }()
	var r io.Reader = in
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(in)
		if err != nil {
			return Document{}, fmt.Errorf("export: zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return Read(r, FormatForPath(path))
}

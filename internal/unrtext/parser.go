/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

var (
	// one or more newlines plus the indentation of the following line
	reLineBreak = regexp.MustCompile(`\n+\s*`)
	// class runs up to " Name=", the name up to the next whitespace
	reHeader = regexp.MustCompile(`Class=(.+?) Name=(\S+)`)
)

// TypeMapper resolves a native class name to a common type tag.
// Implementations must be safe for concurrent reads.
type TypeMapper interface {
	CommonType(internal string) string
}

// TypeMapperFunc adapts a plain function to TypeMapper.
type TypeMapperFunc func(internal string) string

func (f TypeMapperFunc) CommonType(internal string) string { return f(internal) }

// Observer receives parse outcomes, e.g. for metrics. Must be concurrency safe.
type Observer interface {
	ActorParsed(rec *Record, blockLen int)
	ActorRejected(err error)
	IssueRecorded(kind IssueKind)
}

type nopObserver struct{}

func (nopObserver) ActorParsed(*Record, int) {}
func (nopObserver) ActorRejected(error)      {}
func (nopObserver) IssueRecorded(IssueKind)  {}

// NestedMode selects how lines inside Begin Object/End Object sections are treated.
type NestedMode int

const (
	// NestedAbsorb treats sub-object lines like any other actor line, so a
	// Location= inside a component overrides the actor's position.
	NestedAbsorb NestedMode = iota
	// NestedTrackDepth counts Begin Object/End Object and only reads
	// Location/Rotation/DrawScale3D at depth zero. Deeper lines go to the text block.
	NestedTrackDepth
)

// Parser turns actor text into Records. It is immutable after New and safe
// for concurrent use.
type Parser struct {
	log    *slog.Logger
	types  TypeMapper
	obs    Observer
	nested NestedMode
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the diagnostic sink. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithTypeMapper sets the class -> common type lookup.
func WithTypeMapper(m TypeMapper) Option {
	return func(p *Parser) {
		if m != nil {
			p.types = m
		}
	}
}

// WithObserver registers a hook notified about every parsed or rejected actor.
func WithObserver(o Observer) Option {
	return func(p *Parser) {
		if o != nil {
			p.obs = o
		}
	}
}

// WithNestedObjects selects the sub-object handling; NestedAbsorb by default.
func WithNestedObjects(m NestedMode) Option {
	return func(p *Parser) { p.nested = m }
}

// New builds a Parser. Without options it logs nothing and maps every class to "Unknown".
func New(opts ...Option) *Parser {
	p := &Parser{
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		types: TypeMapperFunc(func(string) string { return "Unknown" }),
		obs:   nopObserver{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// splitLines breaks text on runs of newlines and drops the indentation that
// follows each break. Blank lines disappear.
func splitLines(text string) []string {
	parts := reLineBreak.Split(text, -1)
	lines := parts[:0]
	for _, l := range parts {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ParseActor parses the text of a single actor.
//
// With isolated set, the first line must be the "Begin Actor" header and no
// "End Actor" line is expected (this is what ActorBlocks produces). Otherwise
// the header is searched for and reading stops at the first "End Actor".
// Only the first actor is read when text contains several; use ParseActors
// for a multi-selection or a whole level.
//
// When the header carries no Class=/Name= pair, ParseActor logs an error and
// returns ErrNoIdentity without a record.
func (p *Parser) ParseActor(text string, isolated bool) (*Record, error) {
	lines := splitLines(text)
	start := 0
	if !isolated {
		for i, l := range lines {
			if strings.HasPrefix(l, beginActor) {
				start = i
				break
			}
		}
	}
	var header string
	if start < len(lines) {
		header = lines[start]
	}
	m := reHeader.FindStringSubmatch(header)
	if m == nil {
		p.log.Error("no name and type found for object", slog.String("header", clip(header, 120)))
		p.obs.ActorRejected(ErrNoIdentity)
		return nil, ErrNoIdentity
	}
	rec := NewRecord(m[2], m[1], p.types.CommonType(m[1]))

	var block strings.Builder
	depth := 0
	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1
		if !isolated && strings.HasPrefix(line, endActor) {
			break
		}
		if p.nested == NestedTrackDepth {
			switch {
			case strings.HasPrefix(line, beginObject):
				depth++
			case strings.HasPrefix(line, endObject) && depth > 0:
				depth--
			case depth > 0:
				block.WriteString("\n")
				block.WriteString(line)
				continue
			}
		}
		switch {
		case strings.HasPrefix(line, "Location="):
			if v, ok := p.triple(rec, line, lineNo); ok {
				rec.Position = v
			}
		case strings.HasPrefix(line, "Rotation="):
			if v, ok := p.triple(rec, line, lineNo); ok {
				rec.Rotation = RotationToDegrees(v)
			}
		case strings.HasPrefix(line, "DrawScale3D="):
			if v, ok := p.triple(rec, line, lineNo); ok {
				rec.Scale = v
			}
		default:
			block.WriteString("\n")
			block.WriteString(line)
		}
	}
	rec.Attrs[TextBlockAttr] = block.String()
	p.obs.ActorParsed(rec, len(text))
	return rec, nil
}

// triple reads a float triple for rec. Unreadable lines leave the attribute at
// its default and are recorded on rec.
func (p *Parser) triple(rec *Record, line string, lineNo int) (Vec3, bool) {
	v, issues, err := ParseFloatTriple(line)
	if err != nil {
		p.log.Warn("malformed triple, keeping default",
			slog.String("actor", rec.Name), slog.Int("line", lineNo), slog.String("text", clip(line, 120)))
		p.addIssue(rec, Issue{Kind: IssueBadTriplet, Line: lineNo, Message: err.Error()})
		return v, false
	}
	for _, is := range issues {
		is.Line = lineNo
		p.log.Debug("float component defaulted to 0", slog.String("actor", rec.Name), slog.String("issue", is.String()))
		p.addIssue(rec, is)
	}
	return v, true
}

func (p *Parser) addIssue(rec *Record, is Issue) {
	rec.Issues = append(rec.Issues, is)
	p.obs.IssueRecorded(is.Kind)
}

// ParseActors parses every actor block in text, in source order. Blocks
// without identity are logged and skipped; the batch never aborts.
func (p *Parser) ParseActors(text string) []*Record {
	recs, _ := p.ParseActorsReport(text)
	return recs
}

// ParseActorsReport is ParseActors that also returns the skipped blocks.
func (p *Parser) ParseActorsReport(text string) ([]*Record, []BlockError) {
	var (
		recs []*Record
		errs []BlockError
	)
	for b := range ActorBlocks(text) {
		rec, err := p.ParseActor(b.Text, true)
		if err != nil {
			p.log.Warn("skipping actor block", slog.Int("offset", b.Offset), slog.Any("err", err))
			errs = append(errs, BlockError{Offset: b.Offset, Err: err})
			continue
		}
		recs = append(recs, rec)
	}
	p.log.Debug("actors parsed", slog.Int("records", len(recs)), slog.Int("skipped", len(errs)))
	return recs, errs
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}

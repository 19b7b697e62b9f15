/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"unrtext/internal/unrtext"
)

// ImportInfo describes one stored batch.
type ImportInfo struct {
	ID        string
	Source    string
	Actors    int
	Skipped   int
	CreatedAt time.Time
}

// TypeCount is one row of CountByType.
type TypeCount struct {
	TypeCommon string
	Count      int
}

// tsLayout sorts lexically in time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

const actorColumns = `seq, name, type_internal, type_common, px, py, pz, rx, ry, rz, sx, sy, sz, textblock, issues`

// Import stores recs as a new batch in a single transaction and returns the
// batch id. skipped is the number of blocks the parser rejected. Nil
// records are ignored and not counted.
func (ix *Index) Import(ctx context.Context, source string, recs []*unrtext.Record, skipped int) (string, error) {
	kept := make([]*unrtext.Record, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			kept = append(kept, r)
		}
	}
	recs = kept

	id := uuid.NewString()
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage: begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(tsLayout)
	if _, err := tx.ExecContext(ctx, ix.q(`INSERT INTO imports (id, source, actors, skipped, created_at) VALUES(?, ?, ?, ?, ?)`),
		id, source, len(recs), skipped, now); err != nil {
		return "", fmt.Errorf("storage: insert import: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, ix.q(`INSERT INTO actors (import_id, `+actorColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("storage: prepare actor insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		issues, err := encodeIssues(r.Issues)
		if err != nil {
			return "", fmt.Errorf("storage: encode issues of %s: %w", r.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.Name, r.TypeInternal, r.TypeCommon,
			r.Position[0], r.Position[1], r.Position[2],
			r.Rotation[0], r.Rotation[1], r.Rotation[2],
			r.Scale[0], r.Scale[1], r.Scale[2],
			r.TextBlock(), issues); err != nil {
			return "", fmt.Errorf("storage: insert actor %s: %w", r.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage: commit import: %w", err)
	}
	ix.log.Info("import stored", slog.String("import", id), slog.String("source", source), slog.Int("actors", len(recs)), slog.Int("skipped", skipped))
	return id, nil
}

// Actors returns the records of a batch in source order.
func (ix *Index) Actors(ctx context.Context, importID string) ([]*unrtext.Record, error) {
	rows, err := ix.db.QueryContext(ctx, ix.q(`SELECT `+actorColumns+` FROM actors WHERE import_id=? ORDER BY seq`), importID)
	if err != nil {
		return nil, fmt.Errorf("storage: query actors: %w", err)
	}
	return scanActors(rows)
}

// FindByName returns actors whose name contains the substring q (case
// insensitive), across all batches, newest batch first. limit <= 0 means 100.
func (ix *Index) FindByName(ctx context.Context, q string, limit int) ([]*unrtext.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + prefixed("a.", actorColumns) + ` FROM actors a JOIN imports i ON i.id = a.import_id
		WHERE LOWER(a.name) LIKE ? ESCAPE '\' ORDER BY i.created_at DESC, a.seq LIMIT ?`
	rows, err := ix.db.QueryContext(ctx, ix.q(query), likeContains(strings.ToLower(q)), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: find by name: %w", err)
	}
	return scanActors(rows)
}

// CountByType counts actors per common type. An empty importID counts
// across all batches.
func (ix *Index) CountByType(ctx context.Context, importID string) ([]TypeCount, error) {
	query := `SELECT type_common, COUNT(*) FROM actors`
	var args []any
	if importID != "" {
		query += ` WHERE import_id=?`
		args = append(args, importID)
	}
	query += ` GROUP BY type_common ORDER BY COUNT(*) DESC, type_common`
	rows, err := ix.db.QueryContext(ctx, ix.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("storage: count by type: %w", err)
	}
	defer rows.Close()
	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.TypeCommon, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Imports lists stored batches, newest first.
func (ix *Index) Imports(ctx context.Context) ([]ImportInfo, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT id, source, actors, skipped, created_at FROM imports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list imports: %w", err)
	}
	defer rows.Close()
	var out []ImportInfo
	for rows.Next() {
		var (
			info ImportInfo
			ts   string
		)
		if err := rows.Scan(&info.ID, &info.Source, &info.Actors, &info.Skipped, &ts); err != nil {
			return nil, err
		}
		info.CreatedAt, _ = time.Parse(tsLayout, ts)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteImport removes a batch and its actors.
func (ix *Index) DeleteImport(ctx context.Context, importID string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, ix.q(`DELETE FROM actors WHERE import_id=?`), importID); err != nil {
		return fmt.Errorf("storage: delete actors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, ix.q(`DELETE FROM imports WHERE id=?`), importID); err != nil {
		return fmt.Errorf("storage: delete import: %w", err)
	}
	return tx.Commit()
}

func scanActors(rows *sql.Rows) ([]*unrtext.Record, error) {
	defer rows.Close()
	var out []*unrtext.Record
	for rows.Next() {
		var (
			seq                 int
			name, tin, tcom     string
			textblock, issueStr string
			p, r, s             unrtext.Vec3
		)
		if err := rows.Scan(&seq, &name, &tin, &tcom,
			&p[0], &p[1], &p[2], &r[0], &r[1], &r[2], &s[0], &s[1], &s[2],
			&textblock, &issueStr); err != nil {
			return nil, fmt.Errorf("storage: scan actor: %w", err)
		}
		rec := unrtext.NewRecord(name, tin, tcom)
		rec.Position, rec.Rotation, rec.Scale = p, r, s
		rec.Attrs[unrtext.TextBlockAttr] = textblock
		if issueStr != "" && issueStr != "null" {
			if err := json.Unmarshal([]byte(issueStr), &rec.Issues); err != nil {
				return nil, fmt.Errorf("storage: decode issues of %s: %w", name, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func encodeIssues(is []unrtext.Issue) (string, error) {
	if len(is) == 0 {
		return "", nil
	}
	b, err := json.Marshal(is)
	return string(b), err
}

func prefixed(p, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = p + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

// likeContains builds a %q% pattern with LIKE wildcards escaped.
func likeContains(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

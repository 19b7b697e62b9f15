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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"unrtext/internal/version"

	// PostgreSQL via pgx's database/sql driver ("pgx")
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Driver selects the database backend.
type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

// schemaVersion tracks the index schema. Bump it and add a migration step
// for every schema change.
const schemaVersion = 2

// Index is an open actor index.
type Index struct {
	db     *sql.DB
	driver Driver
	log    *slog.Logger
}

// OpenIndex opens (and if needed creates) the index at dsn. For SQLite a
// plain file path is accepted; WAL mode and a busy timeout are enabled.
func OpenIndex(ctx context.Context, driver Driver, dsn string, l *slog.Logger) (*Index, error) {
	if l == nil {
		l = slog.Default()
	}
	l = l.With(slog.String("component", "storage"), slog.String("driver", string(driver)))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage: dsn is required")
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case SQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// single writer for an embedded file
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		}
	case Postgres:
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return nil, fmt.Errorf("storage: open %s: %w", driver, err)
	}
	ix := &Index{db: db, driver: driver, log: l}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if driver == SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: enable WAL: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
			l.Warn("enable foreign_keys failed", slog.Any("err", err))
		}
	}
	if err := ix.ensureMetaAndVersion(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ix.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ix.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("index ready")
	return ix, nil
}

// Close releases the database.
func (ix *Index) Close() error { return ix.db.Close() }

// sqliteDSN turns a plain path into a URI with a busy timeout.
func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
}

// q rewrites ? placeholders to $n for PostgreSQL.
func (ix *Index) q(query string) string {
	if ix.driver != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (ix *Index) ensureMetaAndVersion(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			schema     INTEGER NOT NULL,
			app        TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := ix.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh database starts at schema 1; migrations bring it up to date
		if _, err := ix.db.ExecContext(ctx, ix.q(`INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`), 1, appv, now, now); err != nil {
			return fmt.Errorf("storage: insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("storage: read version: %w", err)
	default:
		if _, err := ix.db.ExecContext(ctx, ix.q(`UPDATE version SET app=?, updated_at=? WHERE id=1`), appv, now); err != nil {
			return fmt.Errorf("storage: update version: %w", err)
		}
	}
	return nil
}

func (ix *Index) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS imports (
			id         TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			actors     INTEGER NOT NULL,
			skipped    INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS actors (
			import_id     TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
			seq           INTEGER NOT NULL,
			name          TEXT NOT NULL,
			type_internal TEXT NOT NULL,
			type_common   TEXT NOT NULL,
			px DOUBLE PRECISION NOT NULL, py DOUBLE PRECISION NOT NULL, pz DOUBLE PRECISION NOT NULL,
			rx DOUBLE PRECISION NOT NULL, ry DOUBLE PRECISION NOT NULL, rz DOUBLE PRECISION NOT NULL,
			sx DOUBLE PRECISION NOT NULL, sy DOUBLE PRECISION NOT NULL, sz DOUBLE PRECISION NOT NULL,
			textblock     TEXT NOT NULL,
			issues        TEXT NOT NULL,
			PRIMARY KEY (import_id, seq)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := ix.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: create schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func (ix *Index) runMigrations(ctx context.Context) error {
	var cur int
	if err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("storage: read schema version: %w", err)
	}
	if cur > schemaVersion {
		ix.log.Warn("index schema is newer than this build", slog.Int("schema", cur), slog.Int("supported", schemaVersion))
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_actors_name ON actors(name)`,
				`CREATE INDEX IF NOT EXISTS idx_actors_type ON actors(type_common)`,
			}
		}
		tx, err := ix.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("storage: begin migration %d: %w", next, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("storage: migration %d: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, ix.q(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("storage: migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("storage: migration %d commit: %w", next, err)
		}
		ix.log.Debug("migration applied", slog.Int("schema", next))
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema recorded in the index.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

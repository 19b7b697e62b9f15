/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"unrtext/internal/config"
	"unrtext/internal/export"
	applog "unrtext/internal/log"
	"unrtext/internal/metrics"
	"unrtext/internal/storage"
	"unrtext/internal/types"
	"unrtext/internal/unrtext"
)

// app carries what every command needs.
type app struct {
	cfg     config.AppConfig
	pwd     string
	log     *slog.Logger
	table   *types.Table
	reg     *prometheus.Registry
	parser  *unrtext.Parser
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	ctx     context.Context
	openIdx func(ctx context.Context) (*storage.Index, error)
}

func newApp(cfg config.AppConfig, pwd string, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		cfg:    cfg,
		pwd:    pwd,
		log:    applog.WithComponent("cli"),
		reg:    prometheus.NewRegistry(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		ctx:    context.Background(),
	}
	a.table = types.New(types.Builtin())
	if cfg.Types.File != "" {
		f, err := types.LoadFile(cfg.Types.File)
		if err != nil {
			return nil, err
		}
		a.table.Replace(f)
	}
	mode := unrtext.NestedAbsorb
	if cfg.Parser.NestedObjects == config.NestedTrack {
		mode = unrtext.NestedTrackDepth
	}
	a.parser = unrtext.New(
		unrtext.WithLogger(applog.WithComponent("parser")),
		unrtext.WithTypeMapper(a.table),
		unrtext.WithObserver(metrics.New(a.reg)),
		unrtext.WithNestedObjects(mode),
	)
	a.openIdx = func(ctx context.Context) (*storage.Index, error) {
		return storage.OpenIndex(ctx, storage.Driver(cfg.Index.Driver), cfg.Index.EffectiveDSN(pwd), applog.L())
	}
	return a, nil
}

type command struct {
	minArgs  int
	argsHelp string
	run      func(a *app, args []string) error
}

var commands = map[string]command{
	"parse":   {1, "requires <file|-> [out]", (*app).cmdParse},
	"actor":   {1, "requires <file|->", (*app).cmdActor},
	"stats":   {1, "requires <file|-> [metrics.prom]", (*app).cmdStats},
	"index":   {1, "requires <file|export>", (*app).cmdIndex},
	"find":    {1, "requires <name>", (*app).cmdFind},
	"imports": {0, "", (*app).cmdImports},
	"watch":   {2, "requires <file> <out>", (*app).cmdWatch},
	"types":   {0, "", (*app).cmdTypes},
	"config":  {1, "requires show|init|forget-password", (*app).cmdConfig},
}

// readInput reads a file, or stdin for "-".
func (a *app) readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (a *app) parseAll(path string) ([]*unrtext.Record, []unrtext.BlockError, error) {
	text, err := a.readInput(path)
	if err != nil {
		return nil, nil, err
	}
	recs, bad := a.parser.ParseActorsReport(text)
	if a.cfg.Parser.ReportSkipped {
		for _, b := range bad {
			fmt.Fprintf(a.stderr, "skipped: %v\n", b)
		}
	}
	return recs, bad, nil
}

// writeDoc writes to out, or to stdout in the configured format when out is empty.
func (a *app) writeDoc(doc export.Document, out string) error {
	if out != "" {
		if a.cfg.Export.Compress && !strings.HasSuffix(out, ".zst") {
			out += ".zst"
		}
		if err := export.WriteFile(out, doc, a.cfg.Export.Validate); err != nil {
			return err
		}
		a.log.Info("export written", slog.String("path", out), slog.Int("actors", len(doc.Actors)))
		return nil
	}
	f := export.Format(a.cfg.Export.Format)
	var buf bytes.Buffer
	if err := export.Write(&buf, doc, f); err != nil {
		return err
	}
	if a.cfg.Export.Validate && f == export.JSON {
		if err := export.Validate(buf.Bytes()); err != nil {
			return err
		}
	}
	_, err := a.stdout.Write(buf.Bytes())
	return err
}

func (a *app) cmdParse(args []string) error {
	recs, _, err := a.parseAll(args[0])
	if err != nil {
		return err
	}
	out := ""
	if len(args) > 1 {
		out = args[1]
	}
	return a.writeDoc(export.NewDocument(args[0], recs), out)
}

func (a *app) cmdActor(args []string) error {
	text, err := a.readInput(args[0])
	if err != nil {
		return err
	}
	rec, err := a.parser.ParseActor(text, false)
	if err != nil {
		return err
	}
	return a.writeDoc(export.NewDocument(args[0], []*unrtext.Record{rec}), "")
}

func (a *app) cmdStats(args []string) error {
	recs, bad, err := a.parseAll(args[0])
	if err != nil {
		return err
	}
	counts := map[string]int{}
	var order []string
	issues := 0
	for _, r := range recs {
		if counts[r.TypeCommon] == 0 {
			order = append(order, r.TypeCommon)
		}
		counts[r.TypeCommon]++
		issues += len(r.Issues)
	}
	fmt.Fprintf(a.stdout, "actors: %d\nskipped: %d\nissues: %d\n", len(recs), len(bad), issues)
	for _, t := range order {
		fmt.Fprintf(a.stdout, "  %-24s %d\n", t, counts[t])
	}
	if len(args) > 1 {
		if err := prometheus.WriteToTextfile(args[1], a.reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// isExport reports whether path names an exported document rather than UnrealText.
func isExport(path string) bool {
	p := strings.ToLower(strings.TrimSuffix(path, ".zst"))
	switch filepath.Ext(p) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return strings.HasSuffix(path, ".zst")
}

func (a *app) cmdIndex(args []string) error {
	var (
		recs    []*unrtext.Record
		skipped int
	)
	if isExport(args[0]) {
		doc, err := export.ReadFile(args[0])
		if err != nil {
			return err
		}
		recs = doc.Actors
	} else {
		r, bad, err := a.parseAll(args[0])
		if err != nil {
			return err
		}
		recs, skipped = r, len(bad)
	}
	ix, err := a.openIdx(a.ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	id, err := ix.Import(a.ctx, args[0], recs, skipped)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "import %s: %d actors, %d skipped\n", id, len(recs), skipped)
	counts, err := ix.CountByType(a.ctx, id)
	if err != nil {
		return err
	}
	for _, c := range counts {
		fmt.Fprintf(a.stdout, "  %-24s %d\n", c.TypeCommon, c.Count)
	}
	return nil
}

func (a *app) cmdFind(args []string) error {
	ix, err := a.openIdx(a.ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	recs, err := ix.FindByName(a.ctx, args[0], 0)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%v\n", r.Name, r.TypeInternal, r.TypeCommon, r.Position)
	}
	return nil
}

func (a *app) cmdImports([]string) error {
	ix, err := a.openIdx(a.ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	imps, err := ix.Imports(a.ctx)
	if err != nil {
		return err
	}
	for _, i := range imps {
		fmt.Fprintf(a.stdout, "%s\t%s\t%d actors\t%d skipped\t%s\n", i.ID, i.Source, i.Actors, i.Skipped, i.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (a *app) cmdTypes([]string) error {
	b, err := types.Marshal(a.table.Snapshot())
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(b)
	return err
}

func (a *app) cmdConfig(args []string) error {
	switch args[0] {
	case "show":
		path, _ := config.ConfigPath()
		fmt.Fprintf(a.stdout, "# %s\n", path)
		return yaml.NewEncoder(a.stdout).Encode(a.cfg)
	case "init":
		// password is read from stdin so it never shows up in shell history
		pwd := ""
		if a.cfg.Index.Driver == config.DriverPostgres {
			sc := bufio.NewScanner(a.stdin)
			if sc.Scan() {
				pwd = strings.TrimSpace(sc.Text())
			}
		}
		if err := config.Save(a.cfg, pwd); err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		fmt.Fprintln(a.stdout, "Wrote", path)
		return nil
	case "forget-password":
		return config.ForgetIndexPassword()
	}
	return fmt.Errorf("unknown config action %q", args[0])
}

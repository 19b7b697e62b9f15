/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"unrtext/internal/config"
	"unrtext/internal/export"
	"unrtext/internal/unrtext"
	"unrtext/internal/version"
)

const level = `Begin Map
   Begin Level
      Begin Actor Class=StaticMeshActor Name=StaticMeshActor_0 Archetype=StaticMeshActor'Engine.Default__StaticMeshActor'
         Location=(X=10.000000,Y=20.000000,Z=30.000000)
         Rotation=(Pitch=0,Yaw=16384,Roll=0)
         Tag="StaticMeshActor"
      End Actor
      Begin Actor Class=PointLight Name=PointLight_1 Archetype=PointLight'Engine.Default__PointLight'
         DrawScale3D=(X=2.000000,Y=2.000000,Z=2.000000)
      End Actor
      Begin Actor Archetype=Broken'Engine.Default__Broken'
      End Actor
   End Level
End Map
`

// isolate points config, index and logging at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigFile, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvIndexDriver, "sqlite")
	t.Setenv(config.EnvIndexDSN, filepath.Join(dir, "index.db"))
	t.Setenv(config.EnvLogLevel, "error")
	for _, k := range []string{config.EnvNestedObjects, config.EnvTypesFile, config.EnvExportFormat, config.EnvLogFormat, config.EnvLogSource, config.EnvLogFile} {
		t.Setenv(k, "")
	}
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != 0 || !strings.Contains(out, version.String()) {
		t.Fatalf("version: code=%d out=%q", code, out)
	}
}

func TestRun_UsageAndUnknown(t *testing.T) {
	isolate(t)
	if code, out, _ := runCLI(t, ""); code != 2 || !strings.Contains(out, "Usage:") {
		t.Fatalf("no args: code=%d out=%q", code, out)
	}
	if code, _, errOut := runCLI(t, "", "frobnicate"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("unknown: code=%d err=%q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "", "parse"); code != 2 || !strings.Contains(errOut, "requires") {
		t.Fatalf("missing arg: code=%d err=%q", code, errOut)
	}
}

func TestRun_ParseStdin(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, level, "parse", "-")
	if code != 0 {
		t.Fatalf("parse: code=%d err=%q", code, errOut)
	}
	var doc export.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(doc.Actors) != 2 {
		t.Fatalf("got %d actors, want 2", len(doc.Actors))
	}
	a := doc.Actors[0]
	if a.Name != "StaticMeshActor_0" || a.TypeCommon != "ObjectMesh" {
		t.Errorf("first actor = %s/%s", a.Name, a.TypeCommon)
	}
	if a.Rotation[1] != 90 {
		t.Errorf("yaw = %v, want 90", a.Rotation[1])
	}
	if doc.Actors[1].Scale[0] != 2 {
		t.Errorf("scale = %v", doc.Actors[1].Scale)
	}
}

func TestRun_ParseToCompressedYAML(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "level.t3d")
	if err := os.WriteFile(in, []byte(level), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "level.yaml.zst")
	if code, _, errOut := runCLI(t, "", "parse", in, out); code != 0 {
		t.Fatalf("parse: code=%d err=%q", code, errOut)
	}
	doc, err := export.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(doc.Actors) != 2 || doc.Source != in {
		t.Fatalf("doc = %d actors from %q", len(doc.Actors), doc.Source)
	}
}

func TestRun_Actor(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, level, "actor", "-")
	if code != 0 {
		t.Fatalf("actor: code=%d err=%q", code, errOut)
	}
	if !strings.Contains(out, `"StaticMeshActor_0"`) || strings.Contains(out, "PointLight_1") {
		t.Fatalf("actor output:\n%s", out)
	}
	if code, _, _ := runCLI(t, "Tag=\"x\"\n", "actor", "-"); code != 1 {
		t.Fatalf("actor without header: code=%d, want 1", code)
	}
}

func TestRun_StatsWritesMetrics(t *testing.T) {
	dir := isolate(t)
	prom := filepath.Join(dir, "unrtext.prom")
	code, out, errOut := runCLI(t, level, "stats", "-", prom)
	if code != 0 {
		t.Fatalf("stats: code=%d err=%q", code, errOut)
	}
	if !strings.Contains(out, "actors: 2") || !strings.Contains(out, "skipped: 1") {
		t.Errorf("stats output:\n%s", out)
	}
	b, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(b), `unrtext_actors_parsed_total{type_common="ObjectMesh"} 1`) {
		t.Errorf("metrics:\n%s", b)
	}
	if !strings.Contains(string(b), `unrtext_actors_rejected_total{reason="no_identity"} 1`) {
		t.Errorf("metrics:\n%s", b)
	}
}

func TestRun_IndexFindImports(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, level, "index", "-")
	if code != 0 {
		t.Fatalf("index: code=%d err=%q", code, errOut)
	}
	if !strings.Contains(out, "2 actors, 1 skipped") || !strings.Contains(out, "ObjectPointLight") {
		t.Errorf("index output:\n%s", out)
	}
	code, out, _ = runCLI(t, "", "find", "pointlight")
	if code != 0 || !strings.HasPrefix(out, "PointLight_1\tPointLight\tObjectPointLight") {
		t.Errorf("find: code=%d out=%q", code, out)
	}
	code, out, _ = runCLI(t, "", "imports")
	if code != 0 || strings.Count(out, "\n") != 1 || !strings.Contains(out, "\t-\t2 actors") {
		t.Errorf("imports: code=%d out=%q", code, out)
	}
}

func TestRun_IndexExportedDocument(t *testing.T) {
	dir := isolate(t)
	doc := filepath.Join(dir, "level.json")
	if code, _, errOut := runCLI(t, level, "parse", "-", doc); code != 0 {
		t.Fatalf("parse: code=%d err=%q", code, errOut)
	}
	code, out, errOut := runCLI(t, "", "index", doc)
	if code != 0 || !strings.Contains(out, "2 actors, 0 skipped") {
		t.Fatalf("index: code=%d out=%q err=%q", code, out, errOut)
	}
}

func TestRun_TypesWithMappingFile(t *testing.T) {
	dir := isolate(t)
	code, out, _ := runCLI(t, "", "types")
	if code != 0 || !strings.Contains(out, "StaticMeshActor: ObjectMesh") {
		t.Fatalf("types: code=%d out=%q", code, out)
	}

	mapping := filepath.Join(dir, "types.yaml")
	if err := os.WriteFile(mapping, []byte("exact:\n  StaticMeshActor: Prop\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvTypesFile, mapping)
	code, out, errOut := runCLI(t, level, "parse", "-")
	if code != 0 {
		t.Fatalf("parse: code=%d err=%q", code, errOut)
	}
	if !strings.Contains(out, `"type_common": "Prop"`) {
		t.Errorf("mapping file not applied:\n%s", out)
	}
}

func TestWatchInput_ReexportsOnChange(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "level.t3d")
	out := filepath.Join(dir, "level.json")
	if err := os.WriteFile(in, []byte(level), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	var stderr bytes.Buffer
	a, err := newApp(cfg, "", strings.NewReader(""), &bytes.Buffer{}, &stderr)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- a.watchInput(ctx, in, out, ready) }()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not start")
	}
	doc, err := export.ReadFile(out)
	if err != nil || len(doc.Actors) != 2 {
		t.Fatalf("initial export: %v (%d actors)", err, len(doc.Actors))
	}

	more := strings.Replace(level, "   End Level", "      Begin Actor Class=Note Name=Note_3\n      End Actor\n   End Level", 1)
	if err := os.WriteFile(in, []byte(more), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if doc, err := export.ReadFile(out); err == nil && len(doc.Actors) == 3 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("export was not refreshed after the input changed")
}

func TestRun_NonFiniteValuesDoNotAbortBatch(t *testing.T) {
	isolate(t)
	odd := strings.Replace(level, "Location=(X=10.000000,Y=20.000000,Z=30.000000)", "Location=(X=nan,Y=inf,Z=30.000000)", 1)
	code, out, errOut := runCLI(t, odd, "parse", "-")
	if code != 0 {
		t.Fatalf("parse: code=%d err=%q", code, errOut)
	}
	var doc export.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(doc.Actors) != 2 || doc.Actors[0].Position != (unrtext.Vec3{0, 0, 30}) || len(doc.Actors[0].Issues) != 2 {
		t.Fatalf("actors = %+v", doc.Actors)
	}
	code, out, errOut = runCLI(t, odd, "index", "-")
	if code != 0 || !strings.Contains(out, "2 actors, 1 skipped") {
		t.Fatalf("index: code=%d out=%q err=%q", code, out, errOut)
	}
}

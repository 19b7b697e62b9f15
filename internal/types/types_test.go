/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package types

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDefaultMapping(t *testing.T) {
	tbl := Default()
	cases := map[string]string{
		"StaticMeshActor":       "ObjectMesh",
		"PointLight":            "ObjectPointLight",
		"PointLightMovable":     "ObjectPointLight",
		"SpotLightToggleable":   "ObjectSpotLight",
		"DirectionalLight":      "ObjectDirectionalLight",
		"SomethingNobodyMapped": Unknown,
		"":                      Unknown,
	}
	for in, want := range cases {
		if got := tbl.CommonType(in); got != want {
			t.Errorf("CommonType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLongestPrefixAndExactPrecedence(t *testing.T) {
	tbl := New(File{
		Exact:  map[string]string{"LightSpecial": "Exact"},
		Prefix: map[string]string{"Light": "Short", "LightSp": "Long"},
	})
	if got := tbl.CommonType("LightSpecial"); got != "Exact" {
		t.Fatalf("exact entry should win, got %q", got)
	}
	if got := tbl.CommonType("LightSpot"); got != "Long" {
		t.Fatalf("longest prefix should win, got %q", got)
	}
	if got := tbl.CommonType("LightBulb"); got != "Short" {
		t.Fatalf("got %q", got)
	}
}

func TestParseYAML(t *testing.T) {
	f, err := Parse([]byte("default: Other\nexact:\n  Foo: ObjectFoo\nprefix:\n  Bar: ObjectBar\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	tbl := New(f)
	if tbl.CommonType("Foo") != "ObjectFoo" || tbl.CommonType("BarBaz") != "ObjectBar" || tbl.CommonType("Qux") != "Other" {
		t.Fatalf("unexpected mapping: %#v", tbl.Snapshot())
	}
	if _, err := Parse([]byte("default: Other\n")); err == nil {
		t.Fatalf("expected error for empty mapping")
	}
	if _, err := Parse([]byte("exact: [1, 2")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestMarshalRoundTripsBuiltin(t *testing.T) {
	data, err := Marshal(Builtin())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if New(f).CommonType("SkyLightFoo") != "ObjectSkyLight" {
		t.Fatalf("builtin prefix lost after marshal")
	}
}

func TestConcurrentReadsDuringReplace(t *testing.T) {
	tbl := New(Builtin())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_ = tbl.CommonType("PointLightMovable")
			}
		}()
	}
	for j := 0; j < 50; j++ {
		tbl.Replace(Builtin())
	}
	wg.Wait()
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	if err := os.WriteFile(path, []byte("exact:\n  Foo: First\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tbl := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 4)
	done := make(chan error, 1)
	onReload := func(err error) {
		select {
		case reloaded <- err:
		default:
		}
	}
	go func() { done <- Watch(ctx, tbl, path, 20*time.Millisecond, nil, onReload) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("exact:\n  Foo: Second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// a truncating write can surface as a failed reload first; wait for the good one
	deadline := time.After(3 * time.Second)
	for tbl.CommonType("Foo") != "Second" {
		select {
		case <-reloaded:
		case <-deadline:
			t.Fatalf("no successful reload observed, CommonType = %q", tbl.CommonType("Foo"))
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}

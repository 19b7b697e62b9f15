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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads t from path whenever the file changes, until ctx is done.
// The parent directory is watched so that editors replacing the file via
// rename are picked up. A file that fails to parse leaves t untouched.
// onReload, if non-nil, is called after each reload attempt.
func Watch(ctx context.Context, t *Table, path string, debounce time.Duration, l *slog.Logger, onReload func(error)) error {
	if l == nil {
		l = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("types: resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("types: create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("types: watch %s: %w", filepath.Dir(abs), err)
	}
	l.Info("type mapping watch started", slog.String("path", abs))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		f, err := LoadFile(abs)
		if err != nil {
			l.Error("type mapping reload failed", slog.String("path", abs), slog.Any("err", err))
		} else {
			t.Replace(f)
			l.Info("type mapping reloaded", slog.String("path", abs),
				slog.Int("exact", len(f.Exact)), slog.Int("prefix", len(f.Prefix)))
		}
		if onReload != nil {
			onReload(err)
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			l.Info("type mapping watch stopped")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("types: watcher events channel closed")
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			l.Debug("type mapping file event", slog.String("op", ev.Op.String()))
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("types: watcher errors channel closed")
			}
			l.Warn("type mapping watcher error", slog.Any("err", err))
		}
	}
}

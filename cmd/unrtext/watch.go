/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"unrtext/internal/export"
	"unrtext/internal/types"
)

// cmdWatch exports args[0] to args[1] now and again after every change
// until interrupted. With types.watch set, the mapping file is reloaded too.
func (a *app) cmdWatch(args []string) error {
	ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt)
	defer stop()
	return a.watchInput(ctx, args[0], args[1], nil)
}

func (a *app) exportOnce(in, out string) error {
	recs, _, err := a.parseAll(in)
	if err != nil {
		return err
	}
	return a.writeDoc(export.NewDocument(in, recs), out)
}

// watchInput runs until ctx is done. ready, if non-nil, is closed once the
// watchers are installed and the first export is written.
func (a *app) watchInput(ctx context.Context, in, out string, ready chan<- struct{}) error {
	abs, err := filepath.Abs(in)
	if err != nil {
		return err
	}
	if a.cfg.Types.Watch && a.cfg.Types.File != "" {
		go func() {
			if err := types.Watch(ctx, a.table, a.cfg.Types.File, types.DefaultDebounce, a.log, nil); err != nil {
				a.log.Error("type mapping watch failed", slog.Any("err", err))
			}
		}()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if err := a.exportOnce(abs, out); err != nil {
		a.log.Error("export failed", slog.Any("err", err))
	}
	if ready != nil {
		close(ready)
	}

	changed := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(types.DefaultDebounce, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		case <-changed:
			if err := a.exportOnce(abs, out); err != nil {
				a.log.Error("export failed", slog.Any("err", err))
				continue
			}
			a.log.Info("re-exported", slog.String("input", abs), slog.String("out", out))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watcher error", slog.Any("err", err))
		}
	}
}

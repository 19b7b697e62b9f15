/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"unrtext/internal/config"
	"unrtext/internal/crash"
	applog "unrtext/internal/log"
	"unrtext/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "unrtext: UnrealText actor parser")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  unrtext version|-v|--version           Show version")
	fmt.Fprintln(w, "  unrtext parse <file|-> [out]            Parse all actors and export them (json, yaml, .zst)")
	fmt.Fprintln(w, "  unrtext actor <file|->                  Parse the first actor of a selection")
	fmt.Fprintln(w, "  unrtext stats <file|-> [metrics.prom]   Count actors per type; optionally write Prometheus metrics")
	fmt.Fprintln(w, "  unrtext index <file|export>             Store actors in the index")
	fmt.Fprintln(w, "  unrtext find <name>                     Search indexed actors by name")
	fmt.Fprintln(w, "  unrtext imports                         List indexed imports")
	fmt.Fprintln(w, "  unrtext watch <file> <out>              Re-export <file> whenever it changes")
	fmt.Fprintln(w, "  unrtext types                           Print the effective type mapping")
	fmt.Fprintln(w, "  unrtext config show|init|forget-password")
}

func main() {
	defer crash.Recover(inputArg(os.Args))
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// inputArg names the file a command works on, for crash reports.
func inputArg(args []string) string {
	if len(args) > 2 {
		return args[2]
	}
	return ""
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 2
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}

	cfg, pwd, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Writer:    stderr,
	})
	defer func() { _ = applog.Close() }()
	l := applog.WithComponent("cli")
	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	a, err := newApp(cfg, pwd, stdin, stdout, stderr)
	if err != nil {
		l.Error("setup failed", slog.Any("err", err))
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	if len(args)-1 < cmd.minArgs {
		fmt.Fprintf(stderr, "%s: %s\n", args[0], cmd.argsHelp)
		usage(stderr)
		return 2
	}
	if err := cmd.run(a, args[1:]); err != nil {
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

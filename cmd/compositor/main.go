// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command compositor loads a node library and renders node graphs offscreen.
//
// Usage:
//
//	compositor [global flags] list
//	compositor [global flags] render -node blur -input in.png -o out.png [-set name=value ...]
//	compositor [global flags] backends
//
// Global flags default to COMPOSITOR_* environment variables, which may be
// set in a .env file in the working directory.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/gogpu/compositor"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "compositor: .env: %v\n", err)
		return 1
	}
	s := settingsFromEnv(os.Getenv)

	global := flag.NewFlagSet("compositor", flag.ContinueOnError)
	global.SetOutput(stderr)
	s.register(global)
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: compositor [flags] list | render [flags] | backends")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	logger, closeLog, err := s.logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "compositor: %v\n", err)
		return 1
	}
	defer closeLog()
	compositor.SetLogger(logger)

	cmd, rest := global.Arg(0), global.Args()[1:]
	if cmd == "backends" {
		listBackends(stdout)
		return 0
	}
	if cmd != "list" && cmd != "render" {
		fmt.Fprintf(stderr, "compositor: unknown command %q\n", cmd)
		global.Usage()
		return 2
	}

	dev, err := openDevice(s.backend)
	if err != nil {
		logger.Error("compositor: no GPU device", "backend", s.backend, "err", err)
		fmt.Fprintf(stderr, "compositor: %v\n", err)
		return 1
	}
	defer dev.close()
	logger.Info("compositor: device opened", "adapter", dev.adapter.Name, "vendor", dev.adapter.Vendor)

	rt, err := compositor.New(dev.device, dev.queue, s.options()...)
	if err != nil {
		fmt.Fprintf(stderr, "compositor: %v\n", err)
		return 1
	}
	defer rt.Close()

	switch cmd {
	case "list":
		printLibrary(stdout, rt.Library())
		return 0
	default:
		if err := runRender(rt, rest, stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 2
			}
			logger.Error("compositor: render failed", "err", err)
			fmt.Fprintf(stderr, "compositor: %v\n", err)
			return 1
		}
		return 0
	}
}

// discardLogger is used when logging is switched off.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"spectral/cmd"
	"spectral/internal/log"
	"spectral/pkg/build"
)

// main runs in three phases:
//
//  1. Startup: build information, runtime settings, signal handling.
//  2. Run: the CLI loads configuration and runs the capture, analysis and
//     transport goroutines until interrupted or the source ends.
//  3. Shutdown: cancellation stops the worker, transports are closed and
//     any recording is finalized before Execute returns.
func main() {
	if err := build.Initialize(); err != nil {
		if !errors.Is(err, build.ErrMissingFlags) {
			log.Fatalf("%v", err)
		}
		log.Debugf("%v, using development build info", err)
	}

	// One thread for the analysis worker, one for transports and the UI.
	runtime.GOMAXPROCS(2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"clapper/cmd"
	"clapper/internal/config"
	"clapper/internal/device"
	"clapper/internal/log"
	"clapper/internal/tui"
	"clapper/pkg/build"
)

// main is the entry point for clapper.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio when a device is needed
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Detection goroutine: acquire, classify, publish
//   - Rendering goroutine: poll, animate, push frames
//   - HTTP, discovery and the terminal monitor alongside
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Blank the strip, stop recording
//   - Clean up resources
func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Initialize build information including version, commit hash, and build time
	if err := build.Initialize(); err != nil {
		return err
	}

	// Two hot loops, each pinned to its own OS thread, plus headroom for
	// HTTP and the monitor.
	runtime.GOMAXPROCS(max(4, runtime.NumCPU()))

	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if inv == nil {
		return nil // help or --version
	}
	if inv.Command == cmd.CommandVersion {
		fmt.Println(build.GetBuildFlags())
		return nil
	}

	cfg := inv.Config
	configureLogging(cfg)
	log.Infof("Starting %s", build.GetBuildFlags())

	// Initialize PortAudio subsystem only when a device is involved
	if inv.Command == cmd.CommandList || cfg.Acquisition.Source == config.SourcePortAudio {
		if err := device.Initialize(); err != nil {
			return err
		}
		defer device.Terminate()
	}

	// Handle one-off commands that don't need the pipeline
	if inv.Command == cmd.CommandList {
		return listDevices(inv.Interactive)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)
	go func() {
		select {
		case sig := <-done:
			log.Infof("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if inv.Command == cmd.CommandRecord {
		return record(ctx, cfg, inv.Duration)
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	// Blocks until a signal, the monitor quits, the input runs out or the
	// pipeline fails.
	runErr := app.Run(ctx)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := app.Close(); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}
	return runErr
}

// configureLogging applies the configured level; debug wins.
func configureLogging(cfg *config.Config) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = log.LevelInfo
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

// listDevices prints the host's devices, or runs the picker and prints the
// chosen device as a config snippet.
func listDevices(interactive bool) error {
	if !interactive {
		return device.ListDevices(os.Stdout)
	}
	sel, err := tui.PickDevice(device.HostDevices)
	if err != nil {
		return err
	}
	if sel != nil {
		fmt.Print(sel.YAML())
	}
	return nil
}

//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"rtcore/app"
	"rtcore/hal"
	"rtcore/internal/buildinfo"
	"rtcore/kernel"
)

func main() {
	var (
		hcfg    hal.HeadlessConfig
		cfg     app.Config
		slice   uint
		dump    string
		version bool
	)
	flag.IntVar(&hcfg.Hz, "hz", 1000, "Wall clock sampling rate.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N kernel ticks (0 = run until interrupted).")
	flag.StringVar(&cfg.Demo, "demo", "all", "Workload: pi|timers|counting|all|none.")
	flag.UintVar(&slice, "slice", 0, "Default task time slice in ticks (0 = no slicing).")
	flag.BoolVar(&cfg.Trace, "trace", false, "Log kernel trace lines.")
	flag.StringVar(&dump, "dump", "", "Write a msgpack kernel snapshot to this file on exit.")
	flag.BoolVar(&version, "version", false, "Print the build version and exit.")
	flag.Parse()

	if version {
		fmt.Println("rtcore", buildinfo.Long())
		return
	}
	cfg.TimeSlice = uint32(slice)
	if cfg.Demo == "none" {
		cfg.Demo = ""
	}

	if err := run(hcfg, cfg, dump); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(hcfg hal.HeadlessConfig, cfg app.Config, dump string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	h := hal.New()
	sys, err := app.New(h, cfg)
	if err != nil {
		return err
	}

	runErr := hal.RunHeadless(ctx, h, sys.Step, hcfg)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	snap := sys.Snapshot()
	if err := sys.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if dump != "" {
		if err := writeSnapshot(dump, snap); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func writeSnapshot(path string, snap kernel.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if err := kernel.EncodeSnapshot(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("dump: %w", err)
	}
	return f.Close()
}

package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"rtcore/hal"
	"rtcore/kernel"
)

// Config selects the workloads and kernel options of a System.
type Config struct {
	// Demo is one of "pi", "timers", "counting", "all" or "" for none.
	Demo string
	// TimeSlice is the default task time slice in ticks.
	TimeSlice uint32
	// Trace sends kernel trace lines to the HAL logger.
	Trace bool
}

// System is a kernel bound to a HAL, with its HISR running.
type System struct {
	h      hal.HAL
	k      *kernel.Kernel
	hisr   *kernel.HISR
	stats  *Stats
	cancel context.CancelFunc
	g      *errgroup.Group
}

// New builds a kernel on h, starts its HISR and installs the demo workloads.
func New(h hal.HAL, cfg Config) (*System, error) {
	demos, err := parseDemo(cfg.Demo)
	if err != nil {
		return nil, err
	}

	kcfg := kernel.Config{
		Countdown: h.Countdown(),
		TimeSlice: cfg.TimeSlice,
	}
	if cfg.Trace {
		kcfg.Logger = h.Logger()
	}
	k := kernel.New(kcfg)
	installPanicHandler(k, h.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	s := &System{
		h:      h,
		k:      k,
		hisr:   kernel.NewHISR(k),
		stats:  &Stats{},
		cancel: cancel,
		g:      g,
	}
	g.Go(func() error { return s.hisr.Run(gctx) })

	for _, install := range demos {
		if err := install(k, s.stats); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Kernel returns the system kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Stats returns the demo workload counters.
func (s *System) Stats() *Stats { return s.stats }

// Step is called after every host tick pump. It fails once a task has panicked.
func (s *System) Step() error {
	if n := s.k.Panics(); n > 0 {
		return fmt.Errorf("kernel: %d task panic(s)", n)
	}
	return nil
}

// Snapshot returns the current kernel state.
func (s *System) Snapshot() kernel.Snapshot {
	return s.k.Snapshot()
}

// Close terminates every task and stops the HISR.
func (s *System) Close() error {
	for _, t := range s.k.Tasks() {
		s.k.TerminateTask(t)
	}
	s.cancel()
	if err := s.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

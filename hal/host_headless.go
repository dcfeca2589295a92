//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	// Hz is how often wall time is sampled into ticks.
	Hz int
	// Ticks stops the runner after this many kernel ticks (0 = run until ctx is done).
	Ticks uint64
}

// RunHeadless pumps the host countdown from wall time and calls step after
// every pump until ctx is done, step fails, or cfg.Ticks have elapsed.
func RunHeadless(ctx context.Context, h HAL, step func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 1000
	}
	hh, ok := h.(*hostHAL)
	if !ok {
		return fmt.Errorf("headless: unsupported HAL %T", h)
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	t := time.NewTicker(d)
	defer t.Stop()

	var ticks uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			ticks += hh.cd.step()
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			if cfg.Ticks > 0 && ticks >= cfg.Ticks {
				return nil
			}
		}
	}
}

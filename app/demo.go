package app

import (
	"fmt"

	"go.uber.org/atomic"

	"rtcore/kernel"
)

// Stats counts demo workload progress.
type Stats struct {
	PIRounds    atomic.Uint64
	OwnerDead   atomic.Uint64
	TimerEvents atomic.Uint64
	Pulses      atomic.Uint64
	Produced    atomic.Uint64
	Consumed    atomic.Uint64
	Timeouts    atomic.Uint64
}

type installer func(k *kernel.Kernel, st *Stats) error

func parseDemo(name string) ([]installer, error) {
	switch name {
	case "":
		return nil, nil
	case "pi":
		return []installer{installPI}, nil
	case "timers":
		return []installer{installTimers}, nil
	case "counting":
		return []installer{installCounting}, nil
	case "all":
		return []installer{installPI, installTimers, installCounting}, nil
	default:
		return nil, fmt.Errorf("unknown demo %q", name)
	}
}

func task(k *kernel.Kernel, name string, prio kernel.Priority, entry func(*kernel.Context)) error {
	if _, st := k.CreateTask(name, prio, entry, kernel.TaskOptions{}); st != kernel.StatusSuccess {
		return fmt.Errorf("create task %s: %w", name, st)
	}
	return nil
}

// installPI contends a priority-inheritance mutex between a slow low
// priority holder, an urgent task with a timeout, and a task that dies
// holding it once.
func installPI(k *kernel.Kernel, st *Stats) error {
	m, s := k.NewSemaphore("pimutex", 1, kernel.PriorityInherit)
	if s != kernel.StatusSuccess {
		return fmt.Errorf("create pimutex: %w", s)
	}

	if err := task(k, "flaky", 15, func(ctx *kernel.Context) {
		m.Obtain(ctx, kernel.SuspendForever)
	}); err != nil {
		return err
	}

	if err := task(k, "pilow", 20, func(ctx *kernel.Context) {
		for {
			s := m.Obtain(ctx, kernel.SuspendForever)
			if !s.Granted() {
				return
			}
			if s == kernel.StatusOwnerDead {
				st.OwnerDead.Inc()
			}
			ctx.Sleep(4)
			m.Release(ctx)
			ctx.Sleep(1)
		}
	}); err != nil {
		return err
	}

	return task(k, "pihigh", 2, func(ctx *kernel.Context) {
		for {
			ctx.Sleep(3)
			s := m.Obtain(ctx, 10)
			switch {
			case s.Granted():
				if s == kernel.StatusOwnerDead {
					st.OwnerDead.Inc()
				}
				st.PIRounds.Inc()
				m.Release(ctx)
			case s == kernel.StatusTimeout:
				st.Timeouts.Inc()
			default:
				return
			}
		}
	})
}

// installTimers feeds a counting semaphore from a periodic timer.
func installTimers(k *kernel.Kernel, st *Stats) error {
	pulse, s := k.NewSemaphore("pulse", 0, kernel.FIFO)
	if s != kernel.StatusSuccess {
		return fmt.Errorf("create pulse: %w", s)
	}
	if _, s := k.NewTimer("pulse", func(uint32) {
		if pulse.Release(nil) == kernel.StatusSuccess {
			st.TimerEvents.Inc()
		}
	}, 1, 10, 10, true); s != kernel.StatusSuccess {
		return fmt.Errorf("create pulse timer: %w", s)
	}

	return task(k, "pulser", 5, func(ctx *kernel.Context) {
		for pulse.Obtain(ctx, kernel.SuspendForever) == kernel.StatusSuccess {
			st.Pulses.Inc()
		}
	})
}

// installCounting runs a bounded producer/consumer pair over two counting
// semaphores.
func installCounting(k *kernel.Kernel, st *Stats) error {
	slots, s := k.NewSemaphore("slots", 4, kernel.PriorityOrder)
	if s != kernel.StatusSuccess {
		return fmt.Errorf("create slots: %w", s)
	}
	items, s := k.NewSemaphore("items", 0, kernel.PriorityOrder)
	if s != kernel.StatusSuccess {
		return fmt.Errorf("create items: %w", s)
	}

	if err := task(k, "producer", 8, func(ctx *kernel.Context) {
		for slots.Obtain(ctx, kernel.SuspendForever) == kernel.StatusSuccess {
			st.Produced.Inc()
			items.Release(ctx)
			ctx.Sleep(2)
		}
	}); err != nil {
		return err
	}

	for _, name := range []string{"consume1", "consume2"} {
		if err := task(k, name, 9, func(ctx *kernel.Context) {
			for {
				switch items.Obtain(ctx, 50) {
				case kernel.StatusSuccess:
					st.Consumed.Inc()
					slots.Release(ctx)
				case kernel.StatusTimeout:
					st.Timeouts.Inc()
				default:
					return
				}
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

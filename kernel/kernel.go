package kernel

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"rtcore/hal"
)

// MaxNameLen is the number of name bytes kept for kernel objects.
const MaxNameLen = 8

// Timeout sentinels for blocking services.
const (
	NoSuspend      uint32 = 0
	SuspendForever uint32 = ^uint32(0)
)

// Config configures a Kernel.
type Config struct {
	// Countdown is the hardware timer driving the active timer list.
	// A ManualCountdown is used when nil.
	Countdown hal.Countdown
	// Logger receives trace lines. nil disables tracing.
	Logger hal.Logger
	// TimeSlice is the default time slice, in ticks, for tasks created
	// without one. 0 disables time slicing.
	TimeSlice uint32
}

func (c Config) withDefaults() Config {
	if c.Countdown == nil {
		c.Countdown = hal.NewManualCountdown()
	}
	return c
}

// Kernel owns every shared kernel list and the critical section guarding them.
type Kernel struct {
	// mu is the critical section. It is not reentrant and is never held
	// across a task suspension.
	mu sync.Mutex
	// holder is the task inside the critical section, nil for timer and host callers.
	holder *Task
	// preempt is set while locked when a better task became runnable.
	preempt bool

	cfg Config
	cd  hal.Countdown
	log hal.Logger

	semaphores list[*Semaphore]
	timers     list[*Timer]
	tasks      list[*Task]
	nextTaskID TaskID

	active list[*timerNode]
	// armed is the countdown value at the last correction point of the active list.
	armed uint32
	// busy is set while expiration processing owns the active list.
	busy bool

	ready readyQueue

	ticks  atomic.Uint64
	yields atomic.Uint64
	panics atomic.Uint32

	panicHandler func(PanicInfo)
}

// New creates a kernel and binds it to the configured countdown.
func New(cfg Config) *Kernel {
	cfg = cfg.withDefaults()
	k := &Kernel{
		cfg: cfg,
		cd:  cfg.Countdown,
		log: cfg.Logger,
	}
	k.cd.Bind(k)
	return k
}

// Countdown returns the hardware countdown the kernel drives.
func (k *Kernel) Countdown() hal.Countdown { return k.cd }

// Ticks returns the number of timer ticks processed.
func (k *Kernel) Ticks() uint64 { return k.ticks.Load() }

// Yields returns how many times a kernel service handed the CPU back because
// a better task became runnable.
func (k *Kernel) Yields() uint64 { return k.yields.Load() }

// lock enters the critical section on behalf of cur (nil outside tasks).
//
// A task terminated while it was running exits here, the first time it
// re-enters the kernel.
func (k *Kernel) lock(cur *Task) {
	k.mu.Lock()
	if cur != nil && cur.status == TaskTerminated {
		k.mu.Unlock()
		runtime.Goexit()
	}
	k.holder = cur
}

// unlock leaves the critical section and yields if a preemption was requested.
func (k *Kernel) unlock() {
	preempt := k.preempt
	k.preempt = false
	k.holder = nil
	k.mu.Unlock()
	if preempt {
		k.yield()
	}
}

func (k *Kernel) requestPreempt(p bool) {
	if p {
		k.preempt = true
	}
}

func (k *Kernel) yield() {
	k.yields.Inc()
	runtime.Gosched()
}

func (k *Kernel) tracef(format string, args ...any) {
	if k.log == nil {
		return
	}
	k.log.WriteLineString(fmt.Sprintf(format, args...))
}

// Tick is the per-tick activation: it advances the clock and charges the
// running task's time slice.
func (k *Kernel) Tick() {
	k.ticks.Inc()
	k.lock(nil)
	k.timeSlice()
	k.unlock()
}

// Expire is the countdown activation: it runs expiration processing.
func (k *Kernel) Expire() {
	k.expire()
}

func truncName(name string) string {
	if len(name) > MaxNameLen {
		return name[:MaxNameLen]
	}
	return name
}

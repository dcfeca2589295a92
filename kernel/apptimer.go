package kernel

import "go.uber.org/atomic"

// timerTag tags a created application timer.
const timerTag uint32 = 0x54494d45

// TimerFunc is an application timer expiration routine. It runs outside
// the critical section and may call any kernel service that does not suspend.
type TimerFunc func(id uint32)

// Timer is an application timer. The zero value is not created; see
// Kernel.CreateTimer.
type Timer struct {
	tag atomic.Uint32
	k   *Kernel

	name       string
	fn         TimerFunc
	timerID    uint32
	initial    uint32
	reschedule uint32

	enabled         bool
	paused          bool
	pausedRemaining uint32
	// armedOnce is set by the first expiration; later enables use reschedule.
	armedOnce   bool
	expirations atomic.Uint32

	node    timerNode
	created node[*Timer]
}

// TimerInfo is a copy of a timer's state.
type TimerInfo struct {
	Name        string `msgpack:"name"`
	ID          uint32 `msgpack:"id"`
	Enabled     bool   `msgpack:"enabled"`
	Paused      bool   `msgpack:"paused"`
	Initial     uint32 `msgpack:"initial"`
	Reschedule  uint32 `msgpack:"reschedule"`
	Expirations uint32 `msgpack:"expirations"`
	Remaining   uint32 `msgpack:"remaining"`
}

// CreateTimer initializes t. It expires initial ticks after being enabled
// and then every reschedule ticks; reschedule 0 makes it one-shot.
func (k *Kernel) CreateTimer(t *Timer, name string, fn TimerFunc, id, initial, reschedule uint32, enable bool) Status {
	switch {
	case t == nil || t.tag.Load() == timerTag:
		return StatusInvalidTimer
	case fn == nil:
		return StatusInvalidFunction
	case initial == 0:
		return StatusInvalidTime
	}

	t.k = k
	t.name = truncName(name)
	t.fn = fn
	t.timerID = id
	t.initial = initial
	t.reschedule = reschedule
	t.enabled = false
	t.paused = false
	t.pausedRemaining = 0
	t.armedOnce = false
	t.expirations.Store(0)
	t.node = timerNode{kind: appTimerKind, app: t}
	t.created = node[*Timer]{value: t}

	k.lock(nil)
	k.timers.pushBack(&t.created)
	t.tag.Store(timerTag)
	if enable {
		t.enabled = true
		k.startTimer(&t.node, initial)
	}
	k.unlock()

	k.tracef("timer %s: created initial=%d reschedule=%d", t.name, initial, reschedule)
	return StatusSuccess
}

// NewTimer allocates and creates an application timer.
func (k *Kernel) NewTimer(name string, fn TimerFunc, id, initial, reschedule uint32, enable bool) (*Timer, Status) {
	t := &Timer{}
	if st := k.CreateTimer(t, name, fn, id, initial, reschedule, enable); st != StatusSuccess {
		return nil, st
	}
	return t, StatusSuccess
}

func (t *Timer) valid() bool {
	return t != nil && t.tag.Load() == timerTag
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

// Expirations returns how many times the timer has expired.
func (t *Timer) Expirations() uint32 { return t.expirations.Load() }

// armTicks is the interval used by the next enable.
func (t *Timer) armTicks() uint32 {
	if t.armedOnce && t.reschedule != 0 {
		return t.reschedule
	}
	return t.initial
}

// Control enables or disables the timer. Enabling an enabled timer and
// disabling a disabled one do nothing.
func (t *Timer) Control(enable bool) Status {
	if !t.valid() {
		return StatusInvalidTimer
	}
	k := t.k
	k.lock(nil)
	if !t.valid() {
		k.unlock()
		return StatusInvalidTimer
	}
	if enable {
		if !t.enabled {
			t.paused = false
			t.enabled = true
			k.startTimer(&t.node, t.armTicks())
		}
	} else {
		if t.enabled {
			k.stopTimer(&t.node)
			t.enabled = false
		}
		t.paused = false
	}
	k.unlock()
	return StatusSuccess
}

// Reset reprograms a disabled timer and clears its expiration count.
func (t *Timer) Reset(fn TimerFunc, initial, reschedule uint32, enable bool) Status {
	switch {
	case !t.valid():
		return StatusInvalidTimer
	case fn == nil:
		return StatusInvalidFunction
	case initial == 0:
		return StatusInvalidTime
	}
	k := t.k
	k.lock(nil)
	switch {
	case !t.valid():
		k.unlock()
		return StatusInvalidTimer
	case t.enabled:
		k.unlock()
		return StatusNotDisabled
	}
	t.fn = fn
	t.initial = initial
	t.reschedule = reschedule
	t.paused = false
	t.pausedRemaining = 0
	t.armedOnce = false
	t.expirations.Store(0)
	if enable {
		t.enabled = true
		k.startTimer(&t.node, initial)
	}
	k.unlock()
	return StatusSuccess
}

// Delete removes a disabled timer.
func (t *Timer) Delete() Status {
	if !t.valid() {
		return StatusInvalidTimer
	}
	k := t.k
	k.lock(nil)
	switch {
	case !t.valid():
		k.unlock()
		return StatusInvalidTimer
	case t.enabled:
		k.unlock()
		return StatusNotDisabled
	}
	t.tag.Store(0)
	t.paused = false
	k.timers.remove(&t.created)
	k.unlock()

	k.tracef("timer %s: deleted", t.name)
	return StatusSuccess
}

// Pause takes an enabled timer off the active list, remembering the ticks
// it had left.
func (t *Timer) Pause() Status {
	if !t.valid() {
		return StatusInvalidTimer
	}
	k := t.k
	k.lock(nil)
	if !t.valid() || !t.enabled || t.paused {
		k.unlock()
		if !t.valid() {
			return StatusInvalidTimer
		}
		return StatusInvalidOperation
	}
	rem := uint32(0)
	if t.node.link.linked() {
		rem = k.remaining(&t.node)
	}
	k.stopTimer(&t.node)
	t.enabled = false
	t.paused = true
	t.pausedRemaining = rem
	k.unlock()
	return StatusSuccess
}

// Resume re-arms a paused timer with the ticks it had left.
func (t *Timer) Resume() Status {
	if !t.valid() {
		return StatusInvalidTimer
	}
	k := t.k
	k.lock(nil)
	if !t.valid() || !t.paused {
		k.unlock()
		if !t.valid() {
			return StatusInvalidTimer
		}
		return StatusInvalidOperation
	}
	t.paused = false
	t.enabled = true
	k.startTimer(&t.node, t.pausedRemaining)
	k.unlock()
	return StatusSuccess
}

// RemainingTime returns the ticks before the timer expires. It fails with
// StatusInvalidOperation for a timer that is neither enabled nor paused.
func (t *Timer) RemainingTime() (uint32, Status) {
	if !t.valid() {
		return 0, StatusInvalidTimer
	}
	k := t.k
	k.lock(nil)
	rem, st := t.remainingLocked()
	k.unlock()
	return rem, st
}

func (t *Timer) remainingLocked() (uint32, Status) {
	switch {
	case !t.valid():
		return 0, StatusInvalidTimer
	case t.paused:
		return t.pausedRemaining, StatusSuccess
	case t.enabled && t.node.link.linked():
		return t.k.remaining(&t.node), StatusSuccess
	case t.enabled:
		return 0, StatusSuccess
	default:
		return 0, StatusInvalidOperation
	}
}

// Info returns a copy of the timer's state.
func (t *Timer) Info() (TimerInfo, Status) {
	if !t.valid() {
		return TimerInfo{}, StatusInvalidTimer
	}
	k := t.k
	k.lock(nil)
	if !t.valid() {
		k.unlock()
		return TimerInfo{}, StatusInvalidTimer
	}
	info := t.infoLocked()
	k.unlock()
	return info, StatusSuccess
}

func (t *Timer) infoLocked() TimerInfo {
	rem, _ := t.remainingLocked()
	return TimerInfo{
		Name:        t.name,
		ID:          t.timerID,
		Enabled:     t.enabled,
		Paused:      t.paused,
		Initial:     t.initial,
		Reschedule:  t.reschedule,
		Expirations: t.expirations.Load(),
		Remaining:   rem,
	}
}

// Timers returns the created application timers in creation order.
func (k *Kernel) Timers() []*Timer {
	k.lock(nil)
	out := k.timers.values()
	k.unlock()
	return out
}

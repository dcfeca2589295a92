//go:build !tinygo

package hal

import "time"

// tickDur is the duration of one host kernel tick.
const tickDur = time.Millisecond

// hostCountdown turns monotonic wall time into ManualCountdown ticks.
type hostCountdown struct {
	*ManualCountdown

	clock func() time.Duration
	last  time.Duration
	acc   time.Duration
	init  bool
}

func newHostCountdown() *hostCountdown {
	return newHostCountdownWithClock(monotonic)
}

func newHostCountdownWithClock(clock func() time.Duration) *hostCountdown {
	return &hostCountdown{ManualCountdown: NewManualCountdown(), clock: clock}
}

// step advances the countdown by the whole ticks elapsed since the previous
// call and returns how many ticks were produced.
func (t *hostCountdown) step() uint64 {
	now := t.clock()
	if !t.init {
		t.init = true
		t.last = now
		t.acc = 0
		t.Advance(1)
		return 1
	}

	t.acc += now - t.last
	t.last = now

	ticks := uint64(t.acc / tickDur)
	if ticks == 0 {
		return 0
	}
	t.acc = t.acc % tickDur
	t.Advance(ticks)
	return ticks
}

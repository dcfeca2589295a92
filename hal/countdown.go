package hal

import "sync"

// ManualCountdown is a Countdown whose ticks are produced by calling Advance.
//
// Activations are delivered synchronously on the goroutine calling Advance,
// which makes kernel timing fully deterministic in tests.
type ManualCountdown struct {
	mu    sync.Mutex
	h     TickHandler
	armed bool
	left  uint32
	now   uint64
	fired uint64
}

// NewManualCountdown returns a disarmed countdown.
func NewManualCountdown() *ManualCountdown {
	return &ManualCountdown{}
}

func (c *ManualCountdown) Bind(h TickHandler) {
	c.mu.Lock()
	c.h = h
	c.mu.Unlock()
}

func (c *ManualCountdown) Read() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return 0
	}
	return c.left
}

func (c *ManualCountdown) Arm(ticks uint32) {
	c.mu.Lock()
	c.armed = true
	c.left = ticks
	c.mu.Unlock()
}

func (c *ManualCountdown) Adjust(ticks uint32) {
	c.Arm(ticks)
}

func (c *ManualCountdown) Disarm() {
	c.mu.Lock()
	c.armed = false
	c.left = 0
	c.mu.Unlock()
}

// Armed reports whether the countdown is running.
func (c *ManualCountdown) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Now returns the number of ticks advanced so far.
func (c *ManualCountdown) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Fired returns how many times the countdown reached zero.
func (c *ManualCountdown) Fired() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Advance produces n ticks. Each tick delivers Tick, then Expire when the
// countdown reached zero on that tick.
func (c *ManualCountdown) Advance(n uint64) {
	for i := uint64(0); i < n; i++ {
		c.mu.Lock()
		c.now++
		fire := false
		if c.armed {
			if c.left > 0 {
				c.left--
			}
			if c.left == 0 {
				c.armed = false
				c.fired++
				fire = true
			}
		}
		h := c.h
		c.mu.Unlock()

		if h == nil {
			continue
		}
		h.Tick()
		if fire {
			h.Expire()
		}
	}
}

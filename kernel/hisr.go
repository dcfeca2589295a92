package kernel

import (
	"context"
	"runtime"

	"go.uber.org/atomic"
)

type activation uint8

const (
	activationTick activation = iota + 1
	activationExpire
)

const hisrSlots = 64

// activationRing is a fixed-size multi-producer, single-consumer queue of
// countdown activations. It never allocates.
type activationRing struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	ready [hisrSlots]atomic.Bool
	slots [hisrSlots]activation
}

// trySend enqueues a, returning false if the ring is full.
func (r *activationRing) trySend(a activation) bool {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if head-tail >= hisrSlots {
			return false
		}
		if r.head.CompareAndSwap(head, head+1) {
			i := head % hisrSlots
			r.slots[i] = a
			r.ready[i].Store(true)
			return true
		}
	}
}

// send enqueues a, spinning until there is room.
func (r *activationRing) send(a activation) {
	for !r.trySend(a) {
		runtime.Gosched()
	}
}

// tryRecv dequeues one activation. A slot that is reserved but not yet
// written reads as empty.
func (r *activationRing) tryRecv() (activation, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	i := tail % hisrSlots
	if !r.ready[i].Load() {
		return 0, false
	}
	a := r.slots[i]
	r.ready[i].Store(false)
	r.tail.Store(tail + 1)
	return a, true
}

// HISR defers countdown activations from the hardware callback to a
// dedicated goroutine, so timer expiration never runs on the caller of
// Countdown.Advance.
type HISR struct {
	k      *Kernel
	ring   activationRing
	notify chan struct{}

	handled atomic.Uint64
	dropped atomic.Uint64
}

// NewHISR binds a HISR to k's countdown in place of the kernel.
func NewHISR(k *Kernel) *HISR {
	h := &HISR{
		k:      k,
		notify: make(chan struct{}, 1),
	}
	k.cd.Bind(h)
	return h
}

// Tick queues a tick activation. Ticks are dropped, and counted, when the
// ring is full.
func (h *HISR) Tick() {
	if !h.ring.trySend(activationTick) {
		h.dropped.Inc()
		return
	}
	h.signal()
}

// Expire queues an expiration activation. Expirations are never dropped.
func (h *HISR) Expire() {
	h.ring.send(activationExpire)
	h.signal()
}

func (h *HISR) signal() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Drain runs every queued activation on the calling goroutine and returns
// how many ran.
func (h *HISR) Drain() int {
	n := 0
	for {
		a, ok := h.ring.tryRecv()
		if !ok {
			return n
		}
		switch a {
		case activationTick:
			h.k.Tick()
		case activationExpire:
			h.k.Expire()
		}
		h.handled.Inc()
		n++
	}
}

// Run drains activations until ctx is done.
func (h *HISR) Run(ctx context.Context) error {
	for {
		h.Drain()
		select {
		case <-ctx.Done():
			h.Drain()
			return ctx.Err()
		case <-h.notify:
		}
	}
}

// Handled returns the number of activations run.
func (h *HISR) Handled() uint64 { return h.handled.Load() }

// Dropped returns the number of tick activations lost to a full ring.
func (h *HISR) Dropped() uint64 { return h.dropped.Load() }

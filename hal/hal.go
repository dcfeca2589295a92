package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// TickHandler receives the two activations a hardware timer produces.
//
// Tick is delivered once per timer tick. Expire is delivered when an armed
// countdown reaches zero. Neither is called with any countdown lock held.
type TickHandler interface {
	Tick()
	Expire()
}

// Countdown is a low-resolution hardware countdown timer.
//
// The kernel arms it with the delta of the earliest active timer and reads it
// back to learn how much of that delta has already elapsed.
type Countdown interface {
	// Read returns the ticks left before the armed countdown fires, or 0 when disarmed.
	Read() uint32
	// Arm starts the countdown at ticks. Zero fires on the next tick.
	Arm(ticks uint32)
	// Adjust re-targets a running countdown to fire ticks from now.
	Adjust(ticks uint32)
	// Disarm stops the countdown without firing.
	Disarm()
	// Bind sets the handler that receives Tick and Expire activations.
	Bind(h TickHandler)
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	Countdown() Countdown
}

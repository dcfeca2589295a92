//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type hostHAL struct {
	logger *hostLogger
	cd     *hostCountdown
}

// New returns a host HAL implementation logging to stdout.
func New() HAL {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter returns a host HAL implementation logging to w.
func NewWithWriter(w io.Writer) HAL {
	return &hostHAL{
		logger: &hostLogger{w: w},
		cd:     newHostCountdown(),
	}
}

func (h *hostHAL) Logger() Logger       { return h.logger }
func (h *hostHAL) Countdown() Countdown { return h.cd }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rtcore/hal"
)

const waitFor = 2 * time.Second

func newTestKernel(t *testing.T, cfg Config) (*Kernel, *hal.ManualCountdown) {
	t.Helper()
	cd := hal.NewManualCountdown()
	cfg.Countdown = cd
	return New(cfg), cd
}

// spawn creates a task and terminates it when the test ends.
func spawn(t *testing.T, k *Kernel, name string, prio Priority, entry func(*Context)) *Task {
	t.Helper()
	task, st := k.CreateTask(name, prio, entry, TaskOptions{})
	require.Equal(t, StatusSuccess, st)
	t.Cleanup(func() { k.TerminateTask(task) })
	return task
}

func waitStatus(t *testing.T, task *Task, want TaskStatus) {
	t.Helper()
	require.Eventually(t, func() bool { return task.Status() == want }, waitFor, time.Millisecond,
		"task %s never reached %s", task.Name(), want)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for value")
		panic("unreachable")
	}
}

func requireNoValue[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStatusErr(t *testing.T) {
	require.NoError(t, StatusSuccess.Err())
	require.ErrorIs(t, StatusTimeout.Err(), StatusTimeout)
	require.Equal(t, "semaphore owner dead", StatusOwnerDead.Error())
	require.True(t, StatusOwnerDead.Granted())
	require.False(t, StatusUnavailable.Granted())
}

func TestNewDefaultsToManualCountdown(t *testing.T) {
	k := New(Config{})
	_, ok := k.Countdown().(*hal.ManualCountdown)
	require.True(t, ok)
}

func TestTruncName(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	s, st := k.NewSemaphore("averylongname", 1, FIFO)
	require.Equal(t, StatusSuccess, st)
	require.Equal(t, "averylon", s.Name())
}

type lineLogger struct{ lines chan string }

func (l *lineLogger) WriteLineString(s string) { l.lines <- s }
func (l *lineLogger) WriteLineBytes(b []byte)  { l.lines <- string(b) }

func TestTraceLogger(t *testing.T) {
	log := &lineLogger{lines: make(chan string, 16)}
	k, _ := newTestKernel(t, Config{Logger: log})
	_, st := k.NewSemaphore("lock", 1, PriorityInherit)
	require.Equal(t, StatusSuccess, st)
	require.Equal(t, "sem lock: created count=1 policy=inherit", recv(t, log.lines))
}

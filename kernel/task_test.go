package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateTaskNilEntry(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	task, st := k.CreateTask("nil", 1, nil, TaskOptions{})
	require.Nil(t, task)
	require.Equal(t, StatusInvalidEntry, st)
	require.Empty(t, k.Tasks())
}

func TestCreateTaskInitializesTimer(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	task, st := k.CreateTask("idle", 3, func(*Context) {}, TaskOptions{Suspended: true})
	require.Equal(t, StatusSuccess, st)
	t.Cleanup(func() { k.TerminateTask(task) })

	k.lock(nil)
	require.Equal(t, taskTimerKind, task.timer.kind)
	require.Same(t, task, task.timer.task)
	require.False(t, task.timerActive)
	require.False(t, task.timer.link.linked())
	k.unlock()

	require.Equal(t, TaskPureSuspend, task.Status())
	require.Equal(t, TaskID(1), task.ID())
	require.Equal(t, []*Task{task}, k.Tasks())
}

func TestStartTask(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	ran := make(chan TaskID, 1)
	task, _ := k.CreateTask("late", 3, func(ctx *Context) { ran <- ctx.TaskID() }, TaskOptions{Suspended: true})
	t.Cleanup(func() { k.TerminateTask(task) })

	requireNoValue(t, ran)
	require.Empty(t, k.ReadyOrder())
	require.Equal(t, StatusSuccess, k.StartTask(task))
	require.Equal(t, task.ID(), recv(t, ran))
	recv(t, task.Done())
	require.Equal(t, StatusInvalidOperation, k.StartTask(task))
	require.Equal(t, StatusInvalidTask, k.StartTask(nil))
}

func TestTerminateSleepingTask(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	after := make(chan struct{}, 1)
	task := spawn(t, k, "sleeper", 4, func(ctx *Context) {
		ctx.Sleep(100)
		after <- struct{}{}
	})
	waitStatus(t, task, TaskSleep)
	require.Len(t, k.ActiveTimers(), 1)

	require.Equal(t, StatusSuccess, k.TerminateTask(task))
	recv(t, task.Done())
	requireNoValue(t, after)
	require.Equal(t, TaskTerminated, task.Status())
	require.Empty(t, k.ActiveTimers())
	require.Equal(t, StatusInvalidTask, k.TerminateTask(nil))
}

func TestTerminateWaitingTaskUnlinksDescriptor(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	s, _ := k.NewSemaphore("sem", 0, FIFO)
	task := spawn(t, k, "waiter", 4, func(ctx *Context) {
		s.Obtain(ctx, 50)
	})
	waitStatus(t, task, TaskSemaphoreSuspend)

	require.Equal(t, StatusSuccess, k.TerminateTask(task))
	recv(t, task.Done())
	info, _ := s.Info()
	require.Equal(t, uint32(0), info.Waiting)
	require.Empty(t, k.ActiveTimers())
}

func TestExitAndTerminateSelf(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	after := make(chan struct{}, 2)

	exit := spawn(t, k, "exit", 4, func(ctx *Context) {
		ctx.Exit()
		after <- struct{}{}
	})
	self := spawn(t, k, "self", 4, func(ctx *Context) {
		ctx.Terminate(ctx.Task())
		after <- struct{}{}
	})
	recv(t, exit.Done())
	recv(t, self.Done())
	requireNoValue(t, after)
	require.Equal(t, TaskTerminated, exit.Status())
	require.Equal(t, TaskTerminated, self.Status())
}

func TestTerminatedRunningTaskExitsOnKernelEntry(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	s, _ := k.NewSemaphore("sem", 1, FIFO)
	proceed := make(chan struct{})
	after := make(chan struct{}, 1)
	task := spawn(t, k, "busy", 4, func(ctx *Context) {
		<-proceed
		s.Obtain(ctx, NoSuspend)
		after <- struct{}{}
	})

	require.Equal(t, StatusSuccess, k.TerminateTask(task))
	close(proceed)
	recv(t, task.Done())
	requireNoValue(t, after)
	info, _ := s.Info()
	require.Equal(t, uint32(1), info.Count)
}

func TestTaskPanicHandler(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	m, _ := k.NewSemaphore("held", 1, PriorityInherit)
	panics := make(chan PanicInfo, 1)
	k.SetPanicHandler(func(p PanicInfo) { panics <- p })

	task := spawn(t, k, "bad", 4, func(ctx *Context) {
		m.Obtain(ctx, SuspendForever)
		panic("boom")
	})

	p := recv(t, panics)
	require.Equal(t, task.ID(), p.TaskID)
	require.Equal(t, "boom", p.Value)
	require.NotEmpty(t, p.Stack)
	recv(t, task.Done())

	require.Equal(t, uint32(1), k.Panics())
	require.Equal(t, TaskTerminated, task.Status())
	info, _ := m.Info()
	require.True(t, info.OwnerKilled)
	require.Equal(t, uint32(1), info.Count)
}

func TestChangePriorityWhileBoosted(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	m, _ := k.NewSemaphore("mutex", 1, PriorityInherit)
	owner, release, ownerResults := holdLock(t, k, "owner", 10, m)

	waiter := spawn(t, k, "waiter", 3, func(ctx *Context) {
		m.Obtain(ctx, SuspendForever)
		m.Release(ctx)
	})
	waitStatus(t, waiter, TaskSemaphoreSuspend)
	require.Equal(t, Priority(3), owner.Info().Priority)

	// Lowering urgency while boosted only moves the base.
	old, st := k.ChangePriority(owner, 12)
	require.Equal(t, StatusSuccess, st)
	require.Equal(t, Priority(10), old)
	require.Equal(t, Priority(3), owner.Info().Priority)
	require.Equal(t, Priority(12), owner.Info().BasePriority)

	// Raising it past the boost takes effect at once.
	old, _ = k.ChangePriority(owner, 1)
	require.Equal(t, Priority(12), old)
	require.Equal(t, Priority(1), owner.Info().Priority)

	close(release)
	require.Equal(t, StatusSuccess, recv(t, ownerResults))
	require.Equal(t, Priority(1), owner.Info().Priority)

	_, st = k.ChangePriority(nil, 1)
	require.Equal(t, StatusInvalidTask, st)
}

func TestContextPriority(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	got := make(chan Priority, 2)
	spawn(t, k, "self", 6, func(ctx *Context) {
		got <- ctx.Priority()
		ctx.ChangePriority(ctx.Task(), 2)
		got <- ctx.Priority()
	})
	require.Equal(t, Priority(6), recv(t, got))
	require.Equal(t, Priority(2), recv(t, got))
}

// parked creates a ready task that stays in its entry until the test ends.
func parked(t *testing.T, k *Kernel, name string, prio Priority, opts TaskOptions) *Task {
	t.Helper()
	stop := make(chan struct{})
	task, st := k.CreateTask(name, prio, func(*Context) { <-stop }, opts)
	require.Equal(t, StatusSuccess, st)
	t.Cleanup(func() {
		k.TerminateTask(task)
		close(stop)
	})
	return task
}

func TestTimeSliceRotation(t *testing.T) {
	k, cd := newTestKernel(t, Config{TimeSlice: 2})
	a := parked(t, k, "a", 5, TaskOptions{})
	b := parked(t, k, "b", 5, TaskOptions{})
	c := parked(t, k, "c", 9, TaskOptions{})

	require.Equal(t, []TaskID{a.ID(), b.ID(), c.ID()}, k.ReadyOrder())
	cd.Advance(1)
	require.Equal(t, []TaskID{a.ID(), b.ID(), c.ID()}, k.ReadyOrder())
	cd.Advance(1)
	require.Equal(t, []TaskID{b.ID(), a.ID(), c.ID()}, k.ReadyOrder())
	cd.Advance(2)
	require.Equal(t, []TaskID{a.ID(), b.ID(), c.ID()}, k.ReadyOrder())
	require.Equal(t, uint64(4), k.Ticks())
}

func TestNoPreemptTaskIsNotSliced(t *testing.T) {
	k, cd := newTestKernel(t, Config{TimeSlice: 1})
	a := parked(t, k, "a", 5, TaskOptions{NoPreempt: true})
	b := parked(t, k, "b", 5, TaskOptions{})

	cd.Advance(5)
	require.Equal(t, []TaskID{a.ID(), b.ID()}, k.ReadyOrder())
	require.False(t, a.Info().Preemptable)
}

func TestRelinquish(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	b := parked(t, k, "b", 5, TaskOptions{})

	proceed := make(chan struct{})
	done := make(chan struct{})
	a := spawn(t, k, "a", 5, func(ctx *Context) {
		<-proceed
		ctx.Sleep(0)
		done <- struct{}{}
		ctx.Sleep(SuspendForever)
	})
	require.Equal(t, []TaskID{b.ID(), a.ID()}, k.ReadyOrder())

	// Moving a from the tail leaves it there.
	close(proceed)
	recv(t, done)
	require.Equal(t, []TaskID{b.ID()}, k.ReadyOrder()[:1])
}

func TestRelinquishRotatesHead(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	proceed := make(chan struct{})
	done := make(chan struct{})
	a := spawn(t, k, "a", 5, func(ctx *Context) {
		<-proceed
		ctx.Relinquish()
		done <- struct{}{}
		<-proceed
	})
	b := parked(t, k, "b", 5, TaskOptions{})
	require.Equal(t, []TaskID{a.ID(), b.ID()}, k.ReadyOrder())

	proceed <- struct{}{}
	recv(t, done)
	require.Equal(t, []TaskID{b.ID(), a.ID()}, k.ReadyOrder())
	close(proceed)
}

func TestReleaseRequestsPreemption(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	s, _ := k.NewSemaphore("sem", 0, FIFO)

	urgent := spawn(t, k, "urgent", 1, func(ctx *Context) {
		s.Obtain(ctx, SuspendForever)
		ctx.Sleep(SuspendForever)
	})
	waitStatus(t, urgent, TaskSemaphoreSuspend)

	before := k.Yields()
	done := make(chan struct{})
	spawn(t, k, "lazy", 9, func(ctx *Context) {
		s.Release(ctx)
		close(done)
	})
	recv(t, done)
	require.Equal(t, before+1, k.Yields())
}

func TestTaskIDSkipsZeroOnWrap(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	k.lock(nil)
	k.nextTaskID = ^TaskID(0)
	k.unlock()

	task, st := k.CreateTask("wrapped", 3, func(*Context) {}, TaskOptions{Suspended: true})
	require.Equal(t, StatusSuccess, st)
	t.Cleanup(func() { k.TerminateTask(task) })
	require.Equal(t, TaskID(1), task.ID())
}

package kernel

import (
	"fmt"
	"runtime"
)

// TaskID identifies a task. Zero means "no task".
type TaskID uint16

// Priority orders tasks; numerically lower is more urgent.
type Priority uint8

// TaskStatus is the scheduling state of a task. Every value other than
// TaskReady, TaskFinished and TaskTerminated is a suspension reason.
type TaskStatus uint8

const (
	TaskReady TaskStatus = iota
	TaskPureSuspend
	TaskSleep
	TaskSemaphoreSuspend
	TaskFinished
	TaskTerminated
)

func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskPureSuspend:
		return "suspended"
	case TaskSleep:
		return "sleeping"
	case TaskSemaphoreSuspend:
		return "semaphore"
	case TaskFinished:
		return "finished"
	case TaskTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

func (s TaskStatus) suspended() bool {
	return s != TaskReady && s != TaskFinished && s != TaskTerminated
}

// TaskOptions tunes a task at creation.
type TaskOptions struct {
	// TimeSlice in ticks; 0 uses the kernel default.
	TimeSlice uint32
	// NoPreempt keeps the task from being preempted or time sliced.
	NoPreempt bool
	// Suspended creates the task in the pure-suspend state; StartTask runs it.
	Suspended bool
}

// Task is a task descriptor. All fields are guarded by the kernel critical section.
type Task struct {
	k     *Kernel
	id    TaskID
	name  string
	entry func(*Context)

	status       TaskStatus
	priority     Priority
	basePriority Priority
	preemptable  bool
	timeSlice    uint32
	sliceLeft    uint32

	// cleanup unlinks the task from whatever it is suspended on; run on
	// timeout and termination.
	cleanup func()

	timer       timerNode
	timerActive bool

	ownedCount uint32
	owned      list[*Semaphore]

	created node[*Task]
	wake    chan struct{}
	done    chan struct{}
}

// TaskInfo is a copy of a task's state.
type TaskInfo struct {
	ID           TaskID     `msgpack:"id"`
	Name         string     `msgpack:"name"`
	Status       TaskStatus `msgpack:"status"`
	Priority     Priority   `msgpack:"priority"`
	BasePriority Priority   `msgpack:"base_priority"`
	OwnedLocks   uint32     `msgpack:"owned_locks"`
	TimeSlice    uint32     `msgpack:"time_slice"`
	Preemptable  bool       `msgpack:"preemptable"`
}

// ID returns the task ID.
func (t *Task) ID() TaskID { return t.id }

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Info returns a snapshot of the task.
func (t *Task) Info() TaskInfo {
	t.k.lock(nil)
	info := t.infoLocked()
	t.k.unlock()
	return info
}

// Status returns the task's scheduling state.
func (t *Task) Status() TaskStatus {
	t.k.lock(nil)
	s := t.status
	t.k.unlock()
	return s
}

func (t *Task) infoLocked() TaskInfo {
	return TaskInfo{
		ID:           t.id,
		Name:         t.name,
		Status:       t.status,
		Priority:     t.priority,
		BasePriority: t.basePriority,
		OwnedLocks:   t.ownedCount,
		TimeSlice:    t.timeSlice,
		Preemptable:  t.preemptable,
	}
}

// CreateTask creates a task running entry on its own goroutine.
//
// The task's private timer starts inactive; it only joins the active list
// while the task sleeps or waits with a timeout.
func (k *Kernel) CreateTask(name string, priority Priority, entry func(*Context), opts TaskOptions) (*Task, Status) {
	if entry == nil {
		return nil, StatusInvalidEntry
	}
	slice := opts.TimeSlice
	if slice == 0 {
		slice = k.cfg.TimeSlice
	}

	t := &Task{
		k:            k,
		name:         truncName(name),
		entry:        entry,
		priority:     priority,
		basePriority: priority,
		preemptable:  !opts.NoPreempt,
		timeSlice:    slice,
		sliceLeft:    slice,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	t.timer = timerNode{kind: taskTimerKind, task: t}
	t.created.value = t

	k.lock(nil)
	k.nextTaskID++
	if k.nextTaskID == 0 {
		k.nextTaskID = 1
	}
	t.id = k.nextTaskID
	k.tasks.pushBack(&t.created)
	if opts.Suspended {
		t.status = TaskPureSuspend
	} else {
		t.status = TaskReady
		k.ready.push(t)
	}
	k.unlock()

	go k.taskShell(t)
	return t, StatusSuccess
}

// StartTask resumes a task created with TaskOptions.Suspended.
func (k *Kernel) StartTask(t *Task) Status {
	if t == nil || t.k != k {
		return StatusInvalidTask
	}
	k.lock(nil)
	if t.status != TaskPureSuspend {
		k.unlock()
		return StatusInvalidOperation
	}
	k.resume(t, TaskPureSuspend)
	k.unlock()
	return StatusSuccess
}

func (k *Kernel) taskShell(t *Task) {
	defer k.finishTask(t)
	defer func() {
		if r := recover(); r != nil {
			k.taskPanicked(t, r)
		}
	}()

	k.lock(t)
	if t.status == TaskPureSuspend {
		k.block(t, TaskPureSuspend)
	}
	k.unlock()

	t.entry(&Context{k: k, task: t})
}

// finishTask runs on the task goroutine however it exits.
//
// Tasks cannot be restarted, so a task that returns gives up its
// priority-inheritance locks exactly as a terminated one does.
func (k *Kernel) finishTask(t *Task) {
	k.lock(nil)
	if t.status != TaskTerminated && t.status != TaskFinished {
		if t.status == TaskReady {
			k.ready.remove(t)
		}
		t.status = TaskFinished
		k.releaseOwned(t)
	}
	k.unlock()
	close(t.done)
}

func (k *Kernel) taskPanicked(t *Task, r any) {
	k.panics.Inc()
	info := PanicInfo{TaskID: t.id, Value: r, Stack: captureStack()}
	k.tracef("task %s: panic: %v", t.name, r)

	k.lock(nil)
	k.terminateLocked(t)
	h := k.panicHandler
	k.unlock()

	if h != nil {
		h(info)
	}
}

// TerminateTask terminates t from outside any task.
func (k *Kernel) TerminateTask(t *Task) Status {
	return k.terminate(nil, t)
}

func (k *Kernel) terminate(cur, t *Task) Status {
	if t == nil || t.k != k {
		return StatusInvalidTask
	}
	k.lock(cur)
	k.terminateLocked(t)
	k.unlock()
	if t == cur {
		runtime.Goexit()
	}
	return StatusSuccess
}

// terminateLocked implements task termination: it unwinds a pending
// suspension, then forcibly releases every owned priority-inheritance lock
// so the next acquirer sees StatusOwnerDead instead of blocking forever.
func (k *Kernel) terminateLocked(t *Task) {
	switch {
	case t.status == TaskTerminated || t.status == TaskFinished:
		return
	case t.status == TaskReady:
		k.ready.remove(t)
	case t.status.suspended():
		if t.cleanup != nil {
			t.cleanup()
			t.cleanup = nil
		}
	}
	if t.timerActive {
		k.stopTimer(&t.timer)
		t.timerActive = false
	}
	t.status = TaskTerminated
	k.releaseOwned(t)
	k.tracef("task %s: terminated", t.name)

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (k *Kernel) releaseOwned(t *Task) {
	for t.ownedCount > 0 {
		n := t.owned.front()
		if n == nil {
			panic(fmt.Sprintf("kernel: task %s owns %d locks with empty list", t.name, t.ownedCount))
		}
		k.killSemaphoreOwner(n.value, t)
	}
}

// ChangePriority sets t's base priority and returns the previous one.
//
// While t holds priority-inheritance locks its current priority is only
// raised, never lowered; the base value is restored when the last lock goes.
func (k *Kernel) ChangePriority(t *Task, p Priority) (Priority, Status) {
	return k.changeBasePriority(nil, t, p)
}

func (k *Kernel) changeBasePriority(cur, t *Task, p Priority) (Priority, Status) {
	if t == nil || t.k != k {
		return 0, StatusInvalidTask
	}
	k.lock(cur)
	old := t.basePriority
	t.basePriority = p
	if t.ownedCount == 0 || p < t.priority {
		k.requestPreempt(k.changePriority(t, p))
	}
	k.unlock()
	return old, StatusSuccess
}

// Tasks returns every task that has been created, in creation order.
func (k *Kernel) Tasks() []*Task {
	k.lock(nil)
	out := k.tasks.values()
	k.unlock()
	return out
}

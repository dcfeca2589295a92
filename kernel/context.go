package kernel

// Context provides task-local access to kernel operations.
//
// A Context is only valid on the goroutine of the task it was handed to.
type Context struct {
	k    *Kernel
	task *Task
}

// TaskID returns the current task ID.
func (c *Context) TaskID() TaskID { return c.task.id }

// Task returns the current task.
func (c *Context) Task() *Task { return c.task }

// Kernel returns the kernel running the task.
func (c *Context) Kernel() *Kernel { return c.k }

// NowTick returns the kernel tick count.
func (c *Context) NowTick() uint64 { return c.k.Ticks() }

// current returns the calling task, tolerating a nil Context for callers
// outside any task.
func (c *Context) current() *Task {
	if c == nil {
		return nil
	}
	return c.task
}

// Sleep suspends the task for ticks timer ticks. Sleep(0) relinquishes.
func (c *Context) Sleep(ticks uint32) {
	if ticks == 0 {
		c.Relinquish()
		return
	}
	k := c.k
	k.lock(c.task)
	k.suspend(c.task, TaskSleep, nil, ticks)
	k.unlock()
}

// Relinquish moves the task behind the other ready tasks of its priority.
func (c *Context) Relinquish() {
	k := c.k
	k.lock(c.task)
	if k.ready.rotateTo(c.task) {
		k.preempt = true
	}
	k.unlock()
}

// Terminate terminates t. Terminating the calling task does not return.
func (c *Context) Terminate(t *Task) Status {
	return c.k.terminate(c.task, t)
}

// Exit terminates the calling task.
func (c *Context) Exit() {
	c.k.terminate(c.task, c.task)
}

// ChangePriority sets t's base priority; see Kernel.ChangePriority.
func (c *Context) ChangePriority(t *Task, p Priority) (Priority, Status) {
	return c.k.changeBasePriority(c.task, t, p)
}

// Priority returns the calling task's current priority.
func (c *Context) Priority() Priority {
	k := c.k
	k.lock(c.task)
	p := k.taskPriority(c.task)
	k.unlock()
	return p
}

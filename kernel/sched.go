package kernel

import (
	"math/bits"
	"runtime"

	"github.com/gammazero/deque"
)

// readyQueue tracks ready tasks by priority. Each priority keeps its tasks in
// FIFO order; the head of the most urgent non-empty group is the task the
// scheduler considers running.
type readyQueue struct {
	bitmap [4]uint64
	groups [256]*deque.Deque[*Task]
}

func (q *readyQueue) push(t *Task) {
	p := t.priority
	g := q.groups[p]
	if g == nil {
		g = new(deque.Deque[*Task])
		q.groups[p] = g
	}
	g.PushBack(t)
	q.bitmap[p>>6] |= 1 << (p & 63)
}

func (q *readyQueue) remove(t *Task) {
	p := t.priority
	g := q.groups[p]
	if g == nil {
		return
	}
	i := g.Index(func(x *Task) bool { return x == t })
	if i < 0 {
		return
	}
	g.Remove(i)
	if g.Len() == 0 {
		q.bitmap[p>>6] &^= 1 << (p & 63)
	}
}

func (q *readyQueue) best() (Priority, bool) {
	for i, w := range q.bitmap {
		if w != 0 {
			return Priority(i*64 + bits.TrailingZeros64(w)), true
		}
	}
	return 0, false
}

func (q *readyQueue) head() *Task {
	p, ok := q.best()
	if !ok {
		return nil
	}
	return q.groups[p].Front()
}

// rotateTo moves t to the tail of its priority group. It reports whether
// another task now precedes it.
func (q *readyQueue) rotateTo(t *Task) bool {
	g := q.groups[t.priority]
	if g == nil || g.Len() < 2 {
		return false
	}
	i := g.Index(func(x *Task) bool { return x == t })
	if i < 0 {
		return false
	}
	g.Remove(i)
	g.PushBack(t)
	return true
}

func (q *readyQueue) order() []TaskID {
	var out []TaskID
	for p := range q.groups {
		g := q.groups[p]
		if g == nil {
			continue
		}
		for i := 0; i < g.Len(); i++ {
			out = append(out, g.At(i).id)
		}
	}
	return out
}

// ReadyOrder returns the IDs of ready tasks, most urgent first.
func (k *Kernel) ReadyOrder() []TaskID {
	k.lock(nil)
	out := k.ready.order()
	k.unlock()
	return out
}

// suspend takes t off the ready queue for reason. A timeout other than
// SuspendForever starts the task timer. When t is the caller, suspend
// releases the critical section, waits to be resumed, and re-enters it.
func (k *Kernel) suspend(t *Task, reason TaskStatus, cleanup func(), timeout uint32) {
	if timeout != SuspendForever {
		t.timerActive = true
		k.startTimer(&t.timer, timeout)
	}
	if t.status == TaskReady {
		t.status = reason
		t.cleanup = cleanup
		k.ready.remove(t)
		t.sliceLeft = t.timeSlice
	}
	if t == k.holder {
		k.block(t, reason)
	}
}

// block waits, outside the critical section, until t leaves reason.
func (k *Kernel) block(t *Task, reason TaskStatus) {
	for t.status == reason {
		k.holder = nil
		k.preempt = false
		k.mu.Unlock()
		<-t.wake
		k.mu.Lock()
		k.holder = t
	}
	if t.status == TaskTerminated {
		k.holder = nil
		k.mu.Unlock()
		runtime.Goexit()
	}
}

// resume makes t ready if it is suspended for reason. It reports whether
// the caller should be preempted by t.
func (k *Kernel) resume(t *Task, reason TaskStatus) bool {
	if t.status != reason {
		return false
	}
	t.cleanup = nil
	if t.timerActive {
		k.stopTimer(&t.timer)
		t.timerActive = false
	}
	t.status = TaskReady
	k.ready.push(t)
	select {
	case t.wake <- struct{}{}:
	default:
	}

	cur := k.holder
	return cur != nil && cur != t && cur.preemptable && t.priority < cur.priority
}

func (k *Kernel) taskPriority(t *Task) Priority {
	return t.priority
}

// changePriority moves t to priority p. It reports whether the caller
// should be preempted as a result.
func (k *Kernel) changePriority(t *Task, p Priority) bool {
	if t.priority == p {
		return false
	}
	if t.status == TaskReady {
		k.ready.remove(t)
		t.priority = p
		k.ready.push(t)
	} else {
		t.priority = p
	}

	cur := k.holder
	if cur == nil || !cur.preemptable {
		return false
	}
	if t == cur {
		best, ok := k.ready.best()
		return ok && best < p
	}
	return t.status == TaskReady && p < cur.priority
}

// timeSlice charges one tick to the running task and rotates it behind its
// peers once its slice is used up.
func (k *Kernel) timeSlice() {
	t := k.ready.head()
	if t == nil || t.timeSlice == 0 || !t.preemptable {
		return
	}
	if t.sliceLeft > 0 {
		t.sliceLeft--
	}
	if t.sliceLeft == 0 {
		t.sliceLeft = t.timeSlice
		k.ready.rotateTo(t)
	}
}

// taskTimeout is the task timer expiration routine. It runs the task's
// cleanup and resumes it, unless the suspension ended while the expiration
// was in flight.
func (k *Kernel) taskTimeout(t *Task) {
	k.lock(nil)
	status := t.status
	if status.suspended() && t.timerActive && t.timer.remaining == 0 && !t.timer.link.linked() {
		t.timerActive = false
		if t.cleanup != nil {
			t.cleanup()
		}
		k.resume(t, status)
	}
	k.unlock()
}

package kernel

type timerKind uint8

const (
	taskTimerKind timerKind = iota + 1
	appTimerKind
)

// timerNode is an entry of the active timer list.
//
// remaining is a delta: the ticks between the previous entry's expiration
// and this one. For the head it is relative to the last correction point,
// whose countdown value is Kernel.armed.
type timerNode struct {
	link      node[*timerNode]
	kind      timerKind
	task      *Task
	app       *Timer
	remaining uint32
}

// catchUp folds the ticks elapsed since the last correction point into the
// head entry. The rest of the list is relative to the head, so it stays valid.
func (k *Kernel) catchUp() {
	left := k.cd.Read()
	if left > k.armed {
		left = k.armed
	}
	elapsed := k.armed - left
	if h := k.active.front(); h != nil {
		tn := h.value
		if elapsed > tn.remaining {
			elapsed = tn.remaining
		}
		tn.remaining -= elapsed
	}
	k.armed = left
}

// startTimer inserts tn into the active list to expire after ticks.
// Equal deadlines keep insertion order.
func (k *Kernel) startTimer(tn *timerNode, ticks uint32) {
	tn.link.value = tn
	tn.remaining = ticks

	if k.active.len() == 0 {
		k.active.pushBack(&tn.link)
		if !k.busy {
			k.armed = ticks
			k.cd.Arm(ticks)
		}
		return
	}

	if !k.busy {
		k.catchUp()
	}

	rem := ticks
	mark := k.active.front()
	for mark != nil && mark.value.remaining <= rem {
		rem -= mark.value.remaining
		mark = mark.next
	}
	tn.remaining = rem
	k.active.insertBefore(&tn.link, mark)
	if mark != nil {
		mark.value.remaining -= rem
	}

	if !k.busy && k.active.front() == &tn.link && rem < k.armed {
		k.armed = rem
		k.cd.Adjust(rem)
	}
}

// stopTimer unlinks tn, handing its delta to its successor.
func (k *Kernel) stopTimer(tn *timerNode) {
	if !tn.link.linked() {
		return
	}
	next := tn.link.next
	k.active.remove(&tn.link)
	if next != nil {
		next.value.remaining += tn.remaining
	}
	if k.active.len() == 0 && !k.busy {
		k.armed = 0
		k.cd.Disarm()
	}
}

// remaining returns the ticks left before tn expires. tn must be active.
func (k *Kernel) remaining(tn *timerNode) uint32 {
	if !k.busy {
		k.catchUp()
	}
	var sum uint32
	for n := k.active.front(); n != nil; n = n.next {
		sum += n.value.remaining
		if n.value == tn {
			break
		}
	}
	return sum
}

// expire is the expiration routine run when the countdown fires.
//
// Expired entries are popped under the critical section; their routines run
// with it released so they may call back into the kernel. While busy is set,
// startTimer neither corrects nor re-arms: the final re-arm happens here.
func (k *Kernel) expire() {
	k.lock(nil)
	k.busy = true
	if k.active.len() > 0 {
		k.catchUp()
	}

	for {
		h := k.active.front()
		if h == nil || h.value.remaining != 0 {
			break
		}
		tn := h.value
		k.active.remove(h)

		switch tn.kind {
		case appTimerKind:
			t := tn.app
			t.expirations.Inc()
			t.armedOnce = true
			if t.reschedule != 0 {
				k.startTimer(tn, t.reschedule)
			} else {
				t.enabled = false
			}
			fn, id := t.fn, t.timerID
			k.unlock()
			fn(id)
			k.lock(nil)
		case taskTimerKind:
			task := tn.task
			k.unlock()
			k.taskTimeout(task)
			k.lock(nil)
		}
	}

	k.busy = false
	if h := k.active.front(); h != nil {
		k.armed = h.value.remaining
		k.cd.Arm(k.armed)
	} else {
		k.armed = 0
		k.cd.Disarm()
	}
	k.unlock()
}

// ActiveEntry describes one entry of the active timer list.
type ActiveEntry struct {
	Kind  string `msgpack:"kind"`
	Name  string `msgpack:"name"`
	Delta uint32 `msgpack:"delta"`
}

func (k *Kernel) activeEntries() []ActiveEntry {
	var out []ActiveEntry
	for n := k.active.front(); n != nil; n = n.next {
		tn := n.value
		e := ActiveEntry{Delta: tn.remaining}
		switch tn.kind {
		case appTimerKind:
			e.Kind, e.Name = "app", tn.app.name
		case taskTimerKind:
			e.Kind, e.Name = "task", tn.task.name
		}
		out = append(out, e)
	}
	return out
}

// ActiveTimers returns the active timer list, earliest first.
func (k *Kernel) ActiveTimers() []ActiveEntry {
	k.lock(nil)
	out := k.activeEntries()
	k.unlock()
	return out
}

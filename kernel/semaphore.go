package kernel

import (
	"math"

	"go.uber.org/atomic"
)

// semaphoreID tags a created semaphore.
const semaphoreID uint32 = 0x53454d41

// SuspendPolicy selects how waiters queue on a semaphore.
type SuspendPolicy uint8

const (
	// FIFO wakes waiters in arrival order.
	FIFO SuspendPolicy = iota + 1
	// PriorityOrder wakes the most urgent waiter first; equal priorities
	// keep arrival order.
	PriorityOrder
	// PriorityInherit makes the semaphore a binary mutex whose owner is
	// boosted to the priority of a more urgent arriving waiter.
	PriorityInherit
)

func (p SuspendPolicy) String() string {
	switch p {
	case FIFO:
		return "fifo"
	case PriorityOrder:
		return "priority"
	case PriorityInherit:
		return "inherit"
	default:
		return "unknown"
	}
}

func (p SuspendPolicy) valid() bool {
	return p >= FIFO && p <= PriorityInherit
}

// Semaphore is a counting semaphore or, with PriorityInherit, a
// priority-inheritance mutex. The zero value is not created; see
// Kernel.CreateSemaphore.
type Semaphore struct {
	id atomic.Uint32
	k  *Kernel

	name      string
	count     uint32
	policy    SuspendPolicy
	waiting   uint32
	suspended list[*suspendBlock]
	created   node[*Semaphore]

	owner       *Task
	ownerKilled bool
	ownedLink   node[*Semaphore]
}

// suspendBlock records one task blocked in Obtain. It lives on the
// blocked caller's stack for the duration of the call.
type suspendBlock struct {
	link   node[*suspendBlock]
	sem    *Semaphore
	task   *Task
	status Status
}

// SemaphoreInfo is a copy of a semaphore's state.
type SemaphoreInfo struct {
	Name         string        `msgpack:"name"`
	Count        uint32        `msgpack:"count"`
	Policy       SuspendPolicy `msgpack:"policy"`
	Waiting      uint32        `msgpack:"waiting"`
	FirstWaiting TaskID        `msgpack:"first_waiting"`
	Owner        TaskID        `msgpack:"owner"`
	OwnerKilled  bool          `msgpack:"owner_killed"`
}

// CreateSemaphore initializes s and links it into the created list.
func (k *Kernel) CreateSemaphore(s *Semaphore, name string, initial uint32, policy SuspendPolicy) Status {
	switch {
	case s == nil || s.id.Load() == semaphoreID:
		return StatusInvalidSemaphore
	case !policy.valid():
		return StatusInvalidSuspend
	case policy == PriorityInherit && initial != 1:
		return StatusInvalidCount
	}

	s.k = k
	s.name = truncName(name)
	s.count = initial
	s.policy = policy
	s.waiting = 0
	s.suspended = list[*suspendBlock]{}
	s.created = node[*Semaphore]{value: s}
	s.owner = nil
	s.ownerKilled = false
	s.ownedLink = node[*Semaphore]{value: s}

	k.lock(nil)
	k.semaphores.pushBack(&s.created)
	s.id.Store(semaphoreID)
	k.unlock()

	k.tracef("sem %s: created count=%d policy=%s", s.name, initial, policy)
	return StatusSuccess
}

// NewSemaphore allocates and creates a semaphore.
func (k *Kernel) NewSemaphore(name string, initial uint32, policy SuspendPolicy) (*Semaphore, Status) {
	s := &Semaphore{}
	if st := k.CreateSemaphore(s, name, initial, policy); st != StatusSuccess {
		return nil, st
	}
	return s, StatusSuccess
}

func (s *Semaphore) valid() bool {
	return s != nil && s.id.Load() == semaphoreID
}

// Name returns the semaphore name.
func (s *Semaphore) Name() string { return s.name }

// Obtain takes one instance of s, waiting up to timeout ticks for one.
//
// ctx is the calling task; nil means the caller is not a task, which only
// allows NoSuspend on counting semaphores. A granted priority-inheritance
// lock reports StatusOwnerDead once after its previous owner died holding it.
func (s *Semaphore) Obtain(ctx *Context, timeout uint32) Status {
	if !s.valid() {
		return StatusInvalidSemaphore
	}
	cur := ctx.current()
	if cur == nil {
		if s.policy == PriorityInherit {
			return StatusInvalidOwner
		}
		if timeout != NoSuspend {
			return StatusInvalidSuspend
		}
	}

	k := s.k
	k.lock(cur)
	if !s.valid() {
		k.unlock()
		return StatusInvalidSemaphore
	}

	var status Status
	switch {
	case s.count > 0:
		s.count--
		status = StatusSuccess
		if s.policy == PriorityInherit {
			status = k.acquirePI(s, cur)
		}
	case s.policy == PriorityInherit && s.owner == cur:
		status = StatusAlreadyOwned
	case timeout == NoSuspend:
		status = StatusUnavailable
	default:
		status = k.waitSemaphore(s, cur, timeout)
	}
	k.unlock()
	return status
}

// waitSemaphore queues cur on s and suspends it. It returns with the
// critical section held again.
func (k *Kernel) waitSemaphore(s *Semaphore, cur *Task, timeout uint32) Status {
	sb := suspendBlock{sem: s, task: cur}
	sb.link.value = &sb
	sb.link.prio = cur.priority

	s.waiting++
	if s.policy == FIFO {
		s.suspended.pushBack(&sb.link)
	} else {
		s.suspended.insertByPriority(&sb.link)
	}

	if s.policy == PriorityInherit && s.owner != nil && cur.priority < s.owner.priority {
		k.requestPreempt(k.changePriority(s.owner, cur.priority))
	}

	k.suspend(cur, TaskSemaphoreSuspend, func() {
		if sb.link.linked() {
			s.suspended.remove(&sb.link)
			s.waiting--
		}
		sb.status = StatusTimeout
	}, timeout)

	if sb.link.linked() {
		s.suspended.remove(&sb.link)
		s.waiting--
	}
	return sb.status
}

// acquirePI makes t the owner of s.
func (k *Kernel) acquirePI(s *Semaphore, t *Task) Status {
	t.ownedCount++
	s.owner = t
	t.owned.pushBack(&s.ownedLink)
	if s.ownerKilled {
		s.ownerKilled = false
		k.tracef("sem %s: owner dead, granted to %s", s.name, t.name)
		return StatusOwnerDead
	}
	return StatusSuccess
}

// freePI drops t's ownership of s and restores t's base priority once it
// holds no more locks. It reports whether the caller should be preempted.
func (k *Kernel) freePI(s *Semaphore, t *Task) bool {
	t.ownedCount--
	t.owned.remove(&s.ownedLink)
	s.owner = nil
	if t.ownedCount == 0 && t.priority != t.basePriority {
		return k.changePriority(t, t.basePriority)
	}
	return false
}

// Release returns one instance of s, handing it directly to the head
// waiter if there is one.
func (s *Semaphore) Release(ctx *Context) Status {
	if !s.valid() {
		return StatusInvalidSemaphore
	}
	cur := ctx.current()
	if cur == nil && s.policy == PriorityInherit {
		return StatusInvalidOwner
	}

	k := s.k
	k.lock(cur)
	switch {
	case !s.valid():
		k.unlock()
		return StatusInvalidSemaphore
	case s.policy == PriorityInherit && s.owner != cur:
		k.unlock()
		return StatusInvalidOwner
	case s.waiting == 0 && s.count == math.MaxUint32:
		k.unlock()
		return StatusCountRollover
	}
	k.requestPreempt(k.releaseSemaphore(s, cur))
	k.unlock()
	return StatusSuccess
}

// releaseSemaphore implements Release for owner, who is already known to
// be allowed to release s. It reports whether the caller should be preempted.
func (k *Kernel) releaseSemaphore(s *Semaphore, owner *Task) bool {
	preempt := false
	if s.policy == PriorityInherit {
		preempt = k.freePI(s, owner)
	}

	n := s.suspended.popFront()
	if n == nil {
		s.count++
		return preempt
	}
	s.waiting--
	sb := n.value
	sb.status = StatusSuccess
	if s.policy == PriorityInherit {
		sb.status = k.acquirePI(s, sb.task)
	}
	if k.resume(sb.task, TaskSemaphoreSuspend) {
		preempt = true
	}
	return preempt
}

// killSemaphoreOwner force-releases s on behalf of a terminated owner t.
// The next task to get s sees StatusOwnerDead.
func (k *Kernel) killSemaphoreOwner(s *Semaphore, t *Task) {
	if s.owner != t {
		panic("kernel: task " + t.name + " lists semaphore " + s.name + " it does not own")
	}
	s.ownerKilled = true
	k.requestPreempt(k.releaseSemaphore(s, t))
}

// drain resumes every waiter of s with status. It reports whether the
// caller should be preempted.
func (k *Kernel) drain(s *Semaphore, status Status) bool {
	preempt := false
	for n := s.suspended.popFront(); n != nil; n = s.suspended.popFront() {
		sb := n.value
		sb.status = status
		if k.resume(sb.task, TaskSemaphoreSuspend) {
			preempt = true
		}
	}
	s.waiting = 0
	return preempt
}

// Reset resumes every waiter with StatusReset and sets the count to initial.
func (s *Semaphore) Reset(ctx *Context, initial uint32) Status {
	if !s.valid() {
		return StatusInvalidSemaphore
	}
	if s.policy == PriorityInherit && initial != 1 {
		return StatusInvalidCount
	}

	k := s.k
	k.lock(ctx.current())
	if !s.valid() {
		k.unlock()
		return StatusInvalidSemaphore
	}
	preempt := false
	if s.policy == PriorityInherit && s.owner != nil {
		preempt = k.freePI(s, s.owner)
	}
	if k.drain(s, StatusReset) {
		preempt = true
	}
	s.count = initial
	s.ownerKilled = false
	k.requestPreempt(preempt)
	k.unlock()
	return StatusSuccess
}

// Delete resumes every waiter with StatusDeleted and invalidates s.
func (s *Semaphore) Delete(ctx *Context) Status {
	if !s.valid() {
		return StatusInvalidSemaphore
	}

	k := s.k
	k.lock(ctx.current())
	if !s.valid() {
		k.unlock()
		return StatusInvalidSemaphore
	}
	s.id.Store(0)
	k.semaphores.remove(&s.created)

	preempt := false
	if s.policy == PriorityInherit && s.owner != nil {
		preempt = k.freePI(s, s.owner)
	}
	if k.drain(s, StatusDeleted) {
		preempt = true
	}
	k.requestPreempt(preempt)
	k.unlock()

	k.tracef("sem %s: deleted", s.name)
	return StatusSuccess
}

// Info returns a copy of the semaphore's state.
func (s *Semaphore) Info() (SemaphoreInfo, Status) {
	if !s.valid() {
		return SemaphoreInfo{}, StatusInvalidSemaphore
	}
	k := s.k
	k.lock(nil)
	if !s.valid() {
		k.unlock()
		return SemaphoreInfo{}, StatusInvalidSemaphore
	}
	info := s.infoLocked()
	k.unlock()
	return info, StatusSuccess
}

func (s *Semaphore) infoLocked() SemaphoreInfo {
	info := SemaphoreInfo{
		Name:        s.name,
		Count:       s.count,
		Policy:      s.policy,
		Waiting:     s.waiting,
		OwnerKilled: s.ownerKilled,
	}
	if n := s.suspended.front(); n != nil {
		info.FirstWaiting = n.value.task.id
	}
	if s.owner != nil {
		info.Owner = s.owner.id
	}
	return info
}

// Owner returns the task holding a priority-inheritance semaphore.
// ok is false when it is not owned.
func (s *Semaphore) Owner() (id TaskID, ok bool, st Status) {
	if !s.valid() {
		return 0, false, StatusInvalidSemaphore
	}
	if s.policy != PriorityInherit {
		return 0, false, StatusInvalidSuspend
	}
	k := s.k
	k.lock(nil)
	if s.owner != nil {
		id, ok = s.owner.id, true
	}
	k.unlock()
	return id, ok, StatusSuccess
}

// Semaphores returns the created semaphores in creation order.
func (k *Kernel) Semaphores() []*Semaphore {
	k.lock(nil)
	out := k.semaphores.values()
	k.unlock()
	return out
}

// SemaphoreCount returns the number of created semaphores.
func (k *Kernel) SemaphoreCount() int {
	k.lock(nil)
	n := k.semaphores.len()
	k.unlock()
	return n
}

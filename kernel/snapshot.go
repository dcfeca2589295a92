package kernel

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is a consistent copy of kernel state, taken in one critical section.
type Snapshot struct {
	Ticks      uint64          `msgpack:"ticks"`
	Yields     uint64          `msgpack:"yields"`
	Panics     uint32          `msgpack:"panics"`
	Semaphores []SemaphoreInfo `msgpack:"semaphores"`
	Timers     []TimerInfo     `msgpack:"timers"`
	Tasks      []TaskInfo      `msgpack:"tasks"`
	Ready      []TaskID        `msgpack:"ready"`
	Active     []ActiveEntry   `msgpack:"active"`
}

// Snapshot copies the state of every created object.
func (k *Kernel) Snapshot() Snapshot {
	k.lock(nil)
	if !k.busy {
		k.catchUp()
	}
	snap := Snapshot{
		Ticks:  k.ticks.Load(),
		Yields: k.yields.Load(),
		Panics: k.panics.Load(),
		Ready:  k.ready.order(),
		Active: k.activeEntries(),
	}
	for n := k.semaphores.front(); n != nil; n = n.next {
		snap.Semaphores = append(snap.Semaphores, n.value.infoLocked())
	}
	for n := k.timers.front(); n != nil; n = n.next {
		snap.Timers = append(snap.Timers, n.value.infoLocked())
	}
	for n := k.tasks.front(); n != nil; n = n.next {
		snap.Tasks = append(snap.Tasks, n.value.infoLocked())
	}
	k.unlock()
	return snap
}

// EncodeSnapshot writes snap to w as msgpack.
func EncodeSnapshot(w io.Writer, snap Snapshot) error {
	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads one msgpack snapshot from r.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

package kernel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	k, cd := newTestKernel(t, Config{})
	m, _ := k.NewSemaphore("mutex", 1, PriorityInherit)
	k.NewTimer("tick", noop, 7, 20, 5, true)

	obtained := make(chan Status, 1)
	owner := spawn(t, k, "owner", 4, func(ctx *Context) {
		obtained <- m.Obtain(ctx, SuspendForever)
		ctx.Sleep(8)
		ctx.Sleep(SuspendForever)
	})
	require.Equal(t, StatusSuccess, recv(t, obtained))
	waitStatus(t, owner, TaskSleep)
	cd.Advance(3)

	snap := k.Snapshot()
	require.Equal(t, uint64(3), snap.Ticks)
	require.Equal(t, []SemaphoreInfo{{Name: "mutex", Policy: PriorityInherit, Owner: owner.ID()}}, snap.Semaphores)
	require.Equal(t, uint32(17), snap.Timers[0].Remaining)
	require.Equal(t, []ActiveEntry{
		{Kind: "task", Name: "owner", Delta: 5},
		{Kind: "app", Name: "tick", Delta: 12},
	}, snap.Active)
	require.Equal(t, TaskSleep, snap.Tasks[0].Status)
	require.Equal(t, uint32(1), snap.Tasks[0].OwnedLocks)
	require.Empty(t, snap.Ready)

	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, snap))
	got, err := DecodeSnapshot(&buf)
	require.NoError(t, err)
	require.Equal(t, snap, got)
}

func TestDecodeSnapshotGarbage(t *testing.T) {
	_, err := DecodeSnapshot(bytes.NewReader([]byte{0xc1}))
	require.ErrorContains(t, err, "decode snapshot")
}

package membus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robomesh/comms.go/pkg/bus"
)

func TestBroadcastIncludesSender(t *testing.T) {
	hub := NewHub()
	a := hub.NewPort()
	b := hub.NewPort()
	require.NoError(t, a.Install())

	frm := bus.NewFrame(bus.IDCommandHighLevel, 42)
	a.Send(frm)

	got, ok := b.TryReceive()
	require.True(t, ok)
	require.Equal(t, frm, got)

	// loopback is observable, like on the physical bus
	got, ok = a.TryReceive()
	require.True(t, ok)
	require.Equal(t, frm, got)

	_, ok = a.TryReceive()
	require.False(t, ok)
}

func TestFullQueueDrops(t *testing.T) {
	hub := NewHub()
	a := hub.NewPort()
	for i := 0; i < DefaultQueueDepth+10; i++ {
		a.Send(bus.NewFrame(bus.IDErrorGlobal, uint64(i)))
	}
	for i := 0; i < DefaultQueueDepth; i++ {
		_, ok := a.TryReceive()
		require.True(t, ok)
	}
	_, ok := a.TryReceive()
	require.False(t, ok)
}

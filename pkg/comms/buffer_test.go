package comms

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robomesh/comms.go/pkg/msgs"
)

// scriptedHandler executes commands and declares the slice non-parallelizable
// once it holds width commands.
type scriptedHandler struct {
	width    int
	executed []msgs.Command
}

func (h *scriptedHandler) Execute(cmd msgs.Command) {
	h.executed = append(h.executed, cmd)
}

func (h *scriptedHandler) Parallelizable(slice []msgs.Command) bool {
	return len(slice) < h.width
}

func TestSliceEmptiness(t *testing.T) {
	require.True(t, emptySlice().isEmpty())
	require.True(t, commandSlice{start: 5, end: 5}.isEmpty())
	require.True(t, commandSlice{start: 6, end: 5}.isEmpty())
	require.False(t, commandSlice{start: 0, end: 1}.isEmpty())
}

func TestExecutionRunsWholeBufferWhenParallelizable(t *testing.T) {
	clock := &testClock{}
	b := NewCommandBuffer(clock)
	handler := &scriptedHandler{width: 100}
	b.SetHandler(msgs.CmdMotorControl, handler)

	var stats []ExecutionStats
	b.SetCompletionCallback(func(s ExecutionStats) { stats = append(stats, s) })

	for i := 0; i < 3; i++ {
		b.Add(msgs.Command{Type: msgs.CmdMotorControl, CommandID: uint16(i)})
	}

	b.StartExecution()
	clock.advance(25)
	b.Tick()

	require.Len(t, handler.executed, 3)
	require.False(t, b.Executing())
	require.Len(t, stats, 1)
	require.Equal(t, 3, stats[0].Executed, "stats capture the slice size, not the cleared sentinel")
	require.Equal(t, uint32(25), stats[0].ElapsedMs)
	require.True(t, stats[0].Success)
}

func TestSliceClosesOnNonParallelizable(t *testing.T) {
	clock := &testClock{}
	b := NewCommandBuffer(clock)
	handler := &scriptedHandler{width: 2}
	b.SetHandler(msgs.CmdMotorControl, handler)

	for i := 0; i < 4; i++ {
		b.Add(msgs.Command{Type: msgs.CmdMotorControl, CommandID: uint16(i)})
	}

	// the command that breaks parallelism is included in the slice
	slice := b.findNextSlice(emptySlice())
	require.Equal(t, 0, slice.start)
	require.Equal(t, 2, slice.end)

	next := b.findNextSlice(slice)
	require.Equal(t, 2, next.start)
	require.Equal(t, 4, next.end)

	require.True(t, b.findNextSlice(next).isEmpty())
}

func TestUnhandledCommandsComplete(t *testing.T) {
	clock := &testClock{}
	b := NewCommandBuffer(clock)
	b.Add(msgs.Command{Type: msgs.CmdMotorControl})
	b.StartExecution()
	b.Tick()
	require.False(t, b.Executing(), "commands without a handler do not wedge the run")
}

func TestDoubleStartIgnored(t *testing.T) {
	clock := &testClock{}
	b := NewCommandBuffer(clock)
	b.Add(msgs.Command{Type: msgs.CmdMotorControl})
	b.StartExecution()
	clock.advance(10)
	b.StartExecution()
	require.True(t, b.Executing())

	var stats []ExecutionStats
	b.SetCompletionCallback(func(s ExecutionStats) { stats = append(stats, s) })
	b.Tick()
	require.Len(t, stats, 1)
	require.Equal(t, uint32(10), stats[0].ElapsedMs, "second start did not rewind the timer")
}

func TestResetStopsExecution(t *testing.T) {
	clock := &testClock{}
	b := NewCommandBuffer(clock)
	b.Add(msgs.Command{Type: msgs.CmdMotorControl})
	b.StartExecution()
	b.Reset()
	require.False(t, b.Executing())
	b.Tick()
	require.False(t, b.Executing())
}

func TestStartWithEmptyBufferGoesIdle(t *testing.T) {
	b := NewCommandBuffer(&testClock{})
	b.StartExecution()
	b.Tick()
	require.False(t, b.Executing())
}

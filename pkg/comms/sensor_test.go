package comms

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

func newTestStream(port bus.Port, clock bus.Clock, interval uint32) *Datastream {
	reading := float32(0)
	return NewDatastream(port, clock, bus.NodeLowLevel0, interval, 0, SensorFuncs{
		ReadFunc: func() float32 {
			reading++
			return reading
		},
	})
}

func TestDatastreamEmitsOnInterval(t *testing.T) {
	clock := &testClock{}
	port := &testPort{}
	stream := newTestStream(port, clock, 100)
	stream.Initialize()

	stream.Tick()
	require.Empty(t, port.take(), "interval not elapsed yet")

	clock.advance(100)
	stream.Tick()
	sent := port.take()
	require.Len(t, sent, 1)
	require.Equal(t, bus.IDSensorData0, sent[0].ID)
	require.Equal(t, uint8(bus.PayloadSize), sent[0].Length)
	reading := msgs.UnmarshalSensorReading(sent[0].Data)
	require.Equal(t, float32(1), reading.Value)
	require.Equal(t, uint8(0), reading.SensorID)

	stream.Tick()
	require.Empty(t, port.take(), "timer rearmed after send")
}

func TestDatastreamZeroIntervalOncePerTick(t *testing.T) {
	clock := &testClock{}
	port := &testPort{}
	stream := newTestStream(port, clock, 0)
	stream.Initialize()

	stream.Tick()
	require.Len(t, port.take(), 1)
	stream.Tick()
	require.Len(t, port.take(), 1)
}

func TestDatastreamEnableGate(t *testing.T) {
	clock := &testClock{}
	port := &testPort{}
	stream := newTestStream(port, clock, 100)
	stream.Initialize()

	stream.SetEnabled(false)
	clock.advance(500)
	stream.Tick()
	require.Empty(t, port.take())

	// re-enabling does not reset the timer, so the send is due at once
	stream.SetEnabled(true)
	stream.SetEnabled(true)
	stream.Tick()
	require.Len(t, port.take(), 1)
}

package comms

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

func newTestErrorManager(me bus.NodeID) (*ErrorManager, *testPort, *testClock) {
	clock := &testClock{}
	port := &testPort{}
	m := NewErrorManager(port, clock, me)
	m.Initialize(DefaultErrorRetransmitMs)
	return m, port, clock
}

func TestReportEmitsAndRetransmits(t *testing.T) {
	m, port, clock := newTestErrorManager(bus.NodeLowLevel1)

	number := m.Report(msgs.CodeEncoderFail, msgs.SeverityCritical, msgs.Latching)
	sent := port.take()
	require.Len(t, sent, 1)
	require.Equal(t, bus.IDErrorLowLevel1, sent[0].ID)
	report := msgs.UnmarshalErrorReport(sent[0].Data)
	require.Equal(t, number, report.Number)
	require.Equal(t, msgs.CodeEncoderFail, report.Code)
	require.Equal(t, msgs.SeverityCritical, report.Severity)
	require.Equal(t, msgs.Latching, report.Behavior)

	m.Tick()
	require.Empty(t, port.take(), "interval not elapsed")

	clock.advance(500)
	m.Tick()
	resent := port.take()
	require.Len(t, resent, 1)
	require.Equal(t, sent[0], resent[0], "retransmission is bit-identical")

	m.Tick()
	require.Empty(t, port.take(), "timestamp advanced on retransmit")
}

func TestErrorNumbersMonotone(t *testing.T) {
	m, _, _ := newTestErrorManager(bus.NodeLowLevel0)
	first := m.Report(msgs.CodeHeartbeat, msgs.SeverityLow, msgs.NonLatching)
	second := m.Report(msgs.CodeHeartbeat, msgs.SeverityLow, msgs.NonLatching)
	require.Equal(t, first+1, second)
}

func TestClearStopsRetransmission(t *testing.T) {
	m, port, clock := newTestErrorManager(bus.NodeLowLevel1)
	m.Report(msgs.CodeEncoderFail, msgs.SeverityCritical, msgs.Latching)
	m.Report(msgs.CodeDriveComm, msgs.SeverityMedium, msgs.Latching)
	port.take()

	m.Clear(msgs.CodeEncoderFail)
	m.Clear(msgs.CodeEncoderFail) // idempotent

	clock.advance(500)
	m.Tick()
	sent := port.take()
	require.Len(t, sent, 1)
	require.Equal(t, msgs.CodeDriveComm, msgs.UnmarshalErrorReport(sent[0].Data).Code)
}

func TestHandleDispatchesBySeverity(t *testing.T) {
	m, port, _ := newTestErrorManager(bus.NodeHighLevel)

	var got []msgs.ErrorReport
	m.SetHandler(msgs.SeverityCritical, func(r msgs.ErrorReport) { got = append(got, r) })
	// the most recent registration wins
	m.SetHandler(msgs.SeverityLow, func(msgs.ErrorReport) { t.Fatal("stale handler invoked") })
	m.SetHandler(msgs.SeverityLow, func(msgs.ErrorReport) {})

	info, _ := bus.Lookup(bus.IDErrorLowLevel0)
	report := msgs.ErrorReport{Number: 7, Severity: msgs.SeverityCritical, Behavior: msgs.NonLatching, Code: msgs.CodeCommandFail}
	m.Handle(info, bus.Frame{ID: bus.IDErrorLowLevel0, Length: bus.PayloadSize, Data: report.Marshal()})

	require.Equal(t, []msgs.ErrorReport{report}, got)
	require.Empty(t, m.Active(), "non-latching errors are not stored")
	require.Empty(t, port.take())
}

func TestReceivedLatchingErrorIsReechoed(t *testing.T) {
	m, port, clock := newTestErrorManager(bus.NodeHighLevel)

	info, _ := bus.Lookup(bus.IDErrorLowLevel0)
	report := msgs.ErrorReport{Number: 3, Severity: msgs.SeverityMedium, Behavior: msgs.Latching, Code: msgs.CodeEncoderFail}
	m.Handle(info, bus.Frame{ID: bus.IDErrorLowLevel0, Length: bus.PayloadSize, Data: report.Marshal()})
	require.Len(t, m.Active(), 1)

	clock.advance(500)
	m.Tick()
	sent := port.take()
	require.Len(t, sent, 1)
	require.Equal(t, bus.IDErrorGlobal, sent[0].ID, "re-echo goes out on this node's error id")
	require.Equal(t, report, msgs.UnmarshalErrorReport(sent[0].Data))

	m.Clear(msgs.CodeEncoderFail)
	clock.advance(500)
	m.Tick()
	require.Empty(t, port.take())
}

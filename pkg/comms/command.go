package comms

import (
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

const (
	// commandRetransmitMs is the idle time before an unacknowledged
	// command is re-emitted.
	commandRetransmitMs = 1000
	// commandMaxRetries caps retransmissions; with the initial emit a
	// command is sent at most four times.
	commandMaxRetries = 3
)

type unackedCommand struct {
	frame    bus.Frame
	lastSent uint32
	retries  uint8
}

// CommandManager implements both command roles. As originator (coordinator
// only) it retransmits unacknowledged commands and holds a Begin back until
// everything sent before it has been acknowledged or dropped. As responder
// it echoes each command payload as acknowledgement, then executes it.
type CommandManager struct {
	port  bus.Port
	clock bus.Clock
	me    bus.NodeID

	counter  uint16
	unacked  map[uint16]*unackedCommand
	toRemove []uint16

	pendingStart *bus.Frame

	buffer  *CommandBuffer
	streams map[uint8]*Datastream
}

// NewCommandManager creates a manager. The streams map is shared with the
// controller so SensorToggle commands can gate datastreams.
func NewCommandManager(port bus.Port, clock bus.Clock, me bus.NodeID, streams map[uint8]*Datastream) *CommandManager {
	return &CommandManager{
		port:    port,
		clock:   clock,
		me:      me,
		unacked: make(map[uint16]*unackedCommand),
		buffer:  NewCommandBuffer(clock),
		streams: streams,
	}
}

// Buffer exposes the responder-side execution buffer.
func (m *CommandManager) Buffer() *CommandBuffer {
	return m.buffer
}

// Pending reports how many commands await acknowledgement.
func (m *CommandManager) Pending() int {
	return len(m.unacked)
}

// Send stamps the command with a fresh id and emits it, returning the
// assigned id. A Begin is not transmitted: it is stashed until the
// unacknowledged set drains. Only the coordinator may send.
func (m *CommandManager) Send(cmd msgs.Command) (uint16, bool) {
	if m.me != bus.NodeHighLevel {
		glog.Errorf("cannot send a command: %v is not the coordinator", m.me)
		return 0, false
	}

	id, ok := bus.EncodeID(m.me, bus.ContentCommand)
	if !ok {
		glog.Errorf("no command id registered for %v", m.me)
		return 0, false
	}

	m.counter++
	cmd.CommandID = m.counter
	frm := bus.Frame{ID: id, Length: bus.PayloadSize, Data: cmd.Marshal()}

	if cmd.Type == msgs.CmdBegin {
		glog.V(2).Info("holding begin until in-flight commands drain")
		m.pendingStart = &frm
		return cmd.CommandID, true
	}

	m.port.Send(frm)
	m.unacked[cmd.CommandID] = &unackedCommand{frame: frm, lastSent: m.clock.Now()}
	return cmd.CommandID, true
}

// Tick releases a held Begin once the unacknowledged set is empty, then
// retransmits idle commands, dropping any that exhausted their retries.
// It also advances the responder-side execution buffer.
func (m *CommandManager) Tick() {
	if m.pendingStart != nil && len(m.unacked) == 0 {
		m.port.Send(*m.pendingStart)
		m.pendingStart = nil
	}

	now := m.clock.Now()
	for commandID, entry := range m.unacked {
		if now-entry.lastSent <= commandRetransmitMs {
			continue
		}
		if entry.retries < commandMaxRetries {
			glog.V(2).Infof("retransmitting command %d", commandID)
			m.port.Send(entry.frame)
			entry.retries++
			entry.lastSent = now
		} else {
			glog.Errorf("command %d unacknowledged after %d sends, dropping", commandID, commandMaxRetries+1)
			m.toRemove = append(m.toRemove, commandID)
		}
	}

	for _, commandID := range m.toRemove {
		delete(m.unacked, commandID)
	}
	m.toRemove = m.toRemove[:0]

	m.buffer.Tick()
}

// Handle processes a received command frame per the node's role.
func (m *CommandManager) Handle(info bus.Descriptor, frm bus.Frame) {
	cmd, err := msgs.UnmarshalCommand(frm.Data)
	if err != nil {
		glog.Errorf("unable to handle command from %v: %v", info.Sender, err)
		return
	}

	if m.me == bus.NodeHighLevel {
		m.handleAck(cmd)
		return
	}
	m.handleRequest(cmd, frm)
}

// handleAck matches an acknowledgement echo against the unacknowledged set.
func (m *CommandManager) handleAck(cmd msgs.Command) {
	if _, ok := m.unacked[cmd.CommandID]; !ok {
		glog.Errorf("spurious acknowledgement for command %d", cmd.CommandID)
		return
	}
	delete(m.unacked, cmd.CommandID)
}

// handleRequest acknowledges with a bit-identical payload echo on this
// node's command id, then dispatches.
func (m *CommandManager) handleRequest(cmd msgs.Command, frm bus.Frame) {
	if ackID, ok := bus.EncodeID(m.me, bus.ContentCommand); ok {
		m.port.Send(bus.Frame{ID: ackID, Length: bus.PayloadSize, Data: frm.Data})
	} else {
		glog.Errorf("no command id registered for %v, cannot acknowledge", m.me)
	}

	switch cmd.Type {
	case msgs.CmdBegin:
		m.buffer.StartExecution()
	case msgs.CmdStop:
		glog.Error("command stop unimplemented")
	case msgs.CmdMotorControl:
		m.buffer.Add(cmd)
	case msgs.CmdSensorToggle:
		toggle := msgs.SensorToggleFromDetail(cmd.Detail)
		stream, ok := m.streams[toggle.SensorID]
		if !ok {
			glog.Errorf("sensor toggle for unknown sensor %d", toggle.SensorID)
			return
		}
		stream.SetEnabled(toggle.Enable)
	}
}

package comms

import (
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

// SensorStatus is the last known reading of one remote sensor.
type SensorStatus struct {
	Sender   bus.NodeID
	SensorID uint8
	Value    float32
}

// TickResult is the frame consumed by a tick and its routing descriptor.
type TickResult struct {
	Frame bus.Frame
	Info  bus.Descriptor
}

// UnregisteredMessageHandler receives frames the controller will not
// consume: unknown ids, self-loopback and frames addressed elsewhere.
type UnregisteredMessageHandler func(bus.Frame)

// Controller composes the per-node control plane: sensor datastreams, the
// heartbeat, command and error managers, and the single receive path over
// the shared port.
type Controller struct {
	port  bus.Port
	clock bus.Clock
	me    bus.NodeID

	streams   map[uint8]*Datastream
	heartbeat *HeartbeatManager
	commands  *CommandManager
	errors    *ErrorManager

	statuses     []SensorStatus
	healthy      bool
	unregistered UnregisteredMessageHandler
}

// NewController creates a controller for one node.
func NewController(port bus.Port, clock bus.Clock, me bus.NodeID) *Controller {
	streams := make(map[uint8]*Datastream)
	return &Controller{
		port:      port,
		clock:     clock,
		me:        me,
		streams:   streams,
		heartbeat: NewHeartbeatManager(port, clock, me),
		commands:  NewCommandManager(port, clock, me, streams),
		errors:    NewErrorManager(port, clock, me),
		healthy:   true,
	}
}

// Me returns the node's identity.
func (c *Controller) Me() bus.NodeID {
	return c.me
}

// Initialize installs the port, arms error retransmission with the default
// interval and initializes every registered datastream.
func (c *Controller) Initialize() error {
	if err := c.port.Install(); err != nil {
		return err
	}
	c.errors.Initialize(DefaultErrorRetransmitMs)
	for _, stream := range c.streams {
		stream.Initialize()
	}
	return nil
}

// AddSensor registers a datastream publishing the sensor every
// updateRateMs milliseconds. The stream takes ownership of the handle.
func (c *Controller) AddSensor(updateRateMs uint32, id uint8, sensor Sensor) {
	c.streams[id] = NewDatastream(c.port, c.clock, c.me, updateRateMs, id, sensor)
}

// Sensor returns the datastream registered under id.
func (c *Controller) Sensor(id uint8) (*Datastream, bool) {
	stream, ok := c.streams[id]
	return stream, ok
}

// SendCommand stamps and emits a command (coordinator only), returning the
// assigned command id.
func (c *Controller) SendCommand(cmd msgs.Command) (uint16, bool) {
	return c.commands.Send(cmd)
}

// CommandBuffer exposes the responder-side execution buffer for handler
// registration.
func (c *Controller) CommandBuffer() *CommandBuffer {
	return c.commands.Buffer()
}

// StartMonitoring arms heartbeat probing of the given peers every
// intervalMs milliseconds. Coordinator only.
func (c *Controller) StartMonitoring(intervalMs uint32, peers []bus.NodeID) {
	c.heartbeat.Initialize(intervalMs, peers)
}

// Heartbeat exposes the heartbeat manager.
func (c *Controller) Heartbeat() *HeartbeatManager {
	return c.heartbeat
}

// Healthy reports the liveness verdict of the last tick.
func (c *Controller) Healthy() bool {
	return c.healthy
}

// ReportError reports an error on the bus.
func (c *Controller) ReportError(code msgs.Code, severity msgs.Severity, behavior msgs.Behavior) uint32 {
	return c.errors.Report(code, severity, behavior)
}

// ClearError clears every active error with the given code.
func (c *Controller) ClearError(code msgs.Code) {
	c.errors.Clear(code)
}

// SetErrorHandler registers the handler for one severity.
func (c *Controller) SetErrorHandler(severity msgs.Severity, handler ErrorHandler) {
	c.errors.SetHandler(severity, handler)
}

// ActiveErrors returns the errors currently being retransmitted.
func (c *Controller) ActiveErrors() []msgs.ErrorReport {
	return c.errors.Active()
}

// SetUnregisteredMessageHandler installs the hook for frames the receive
// path rejects.
func (c *Controller) SetUnregisteredMessageHandler(handler UnregisteredMessageHandler) {
	c.unregistered = handler
}

// GetSensorValue returns the last reading received from a remote sensor.
func (c *Controller) GetSensorValue(sender bus.NodeID, sensorID uint8) (float32, bool) {
	for _, status := range c.statuses {
		if status.Sender == sender && status.SensorID == sensorID {
			return status.Value, true
		}
	}
	return 0, false
}

// SensorStatuses returns a copy of the remote sensor table.
func (c *Controller) SensorStatuses() []SensorStatus {
	return append([]SensorStatus(nil), c.statuses...)
}

// Tick advances every sub-protocol, then consumes at most one received
// frame. The consumed frame and its descriptor are returned when the frame
// was dispatched.
func (c *Controller) Tick() (TickResult, bool) {
	for _, stream := range c.streams {
		stream.Tick()
	}
	c.healthy = c.heartbeat.Tick()
	if !c.healthy {
		glog.Errorf("heartbeat failure: %v", c.heartbeat.BadPeers())
	}
	c.commands.Tick()
	c.errors.Tick()

	frm, ok := c.port.TryReceive()
	if !ok {
		return TickResult{}, false
	}

	info, ok := bus.Lookup(frm.ID)
	if !ok {
		c.reject(frm, "unregistered id 0x%03x", frm.ID)
		return TickResult{}, false
	}

	if info.Sender == c.me {
		c.reject(frm, "frame from self on 0x%03x", frm.ID)
		return TickResult{}, false
	}

	if !bus.ShouldListen(info, c.me) {
		if c.unregistered != nil {
			c.unregistered(frm)
		}
		return TickResult{}, false
	}

	switch info.Type {
	case bus.ContentCommand:
		c.commands.Handle(info, frm)
	case bus.ContentHeartbeat:
		if c.me == bus.NodeHighLevel {
			c.heartbeat.HandleResponse(info.Sender)
		} else {
			c.heartbeat.HandleRequest(msgs.UnmarshalHeartbeatRequest(frm.Data))
		}
	case bus.ContentError:
		c.errors.Handle(info, frm)
	case bus.ContentSensorData:
		c.updateSensorStatus(info.Sender, msgs.UnmarshalSensorReading(frm.Data))
	}

	return TickResult{Frame: frm, Info: info}, true
}

func (c *Controller) reject(frm bus.Frame, format string, args ...interface{}) {
	if c.unregistered != nil {
		c.unregistered(frm)
		return
	}
	glog.Errorf(format, args...)
}

func (c *Controller) updateSensorStatus(sender bus.NodeID, reading msgs.SensorReading) {
	for i := range c.statuses {
		if c.statuses[i].Sender == sender && c.statuses[i].SensorID == reading.SensorID {
			c.statuses[i].Value = reading.Value
			return
		}
	}
	glog.V(2).Infof("first reading from %v sensor %d", sender, reading.SensorID)
	c.statuses = append(c.statuses, SensorStatus{
		Sender:   sender,
		SensorID: reading.SensorID,
		Value:    reading.Value,
	})
}

package comms

import (
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

// Sensor is the polling handle of one hardware sensor, provided by the host.
type Sensor interface {
	// Initialize prepares the hardware, reporting success.
	Initialize() bool
	// Read samples the sensor.
	Read() float32
	// Cleanup releases the hardware.
	Cleanup()
}

// SensorFuncs adapts plain functions to Sensor. Nil members are no-ops
// (Initialize defaults to success).
type SensorFuncs struct {
	InitFunc    func() bool
	ReadFunc    func() float32
	CleanupFunc func()
}

// Initialize implements Sensor.
func (s SensorFuncs) Initialize() bool {
	if s.InitFunc == nil {
		return true
	}
	return s.InitFunc()
}

// Read implements Sensor.
func (s SensorFuncs) Read() float32 {
	if s.ReadFunc == nil {
		return 0
	}
	return s.ReadFunc()
}

// Cleanup implements Sensor.
func (s SensorFuncs) Cleanup() {
	if s.CleanupFunc != nil {
		s.CleanupFunc()
	}
}

// Datastream periodically samples one sensor and emits its reading on the
// owner's sensor-data id. A stream owns its sensor handle exclusively.
type Datastream struct {
	port     bus.Port
	clock    bus.Clock
	sender   bus.NodeID
	sensor   Sensor
	id       uint8
	interval uint32
	enabled  bool
	lastSend uint32
}

// NewDatastream creates a stream emitting every interval milliseconds.
func NewDatastream(port bus.Port, clock bus.Clock, sender bus.NodeID, interval uint32, id uint8, sensor Sensor) *Datastream {
	return &Datastream{
		port:     port,
		clock:    clock,
		sender:   sender,
		sensor:   sensor,
		id:       id,
		interval: interval,
		enabled:  true,
	}
}

// Initialize initializes the sensor hardware and arms the send timer.
func (d *Datastream) Initialize() {
	if !d.sensor.Initialize() {
		glog.Errorf("sensor %d on %v failed to initialize", d.id, d.sender)
	}
	d.lastSend = d.clock.Now()
}

// Tick emits one reading when the stream is enabled and the interval has
// elapsed. An unregistered sender id leaves the timer untouched so the
// stream keeps retrying every tick.
func (d *Datastream) Tick() {
	if !d.enabled {
		return
	}
	now := d.clock.Now()
	if now-d.lastSend < d.interval {
		return
	}

	reading := msgs.SensorReading{Value: d.sensor.Read(), SensorID: d.id}

	id, ok := bus.EncodeID(d.sender, bus.ContentSensorData)
	if !ok {
		glog.Errorf("no sensor-data id registered for %v", d.sender)
		return
	}

	d.lastSend = now
	if d.port == nil {
		glog.Errorf("sensor %d on %v has no port", d.id, d.sender)
		return
	}
	d.port.Send(bus.Frame{ID: id, Length: bus.PayloadSize, Data: reading.Marshal()})
}

// SetEnabled gates the stream without resetting its timer.
func (d *Datastream) SetEnabled(enabled bool) {
	d.enabled = enabled
}

// Enabled reports the gate state.
func (d *Datastream) Enabled() bool {
	return d.enabled
}

// Cleanup releases the sensor hardware.
func (d *Datastream) Cleanup() {
	d.sensor.Cleanup()
}

package msgs

import (
	"encoding/binary"
	"math"

	"github.com/robomesh/comms.go/pkg/bus"
)

// SensorReading is the payload of a telemetry frame.
//
// Wire layout: value (4, IEEE-754 f32 LE) | sensorID (1) | reserved (3).
type SensorReading struct {
	Value    float32
	SensorID uint8
}

// Marshal encodes the reading into payload bytes.
func (s SensorReading) Marshal() [bus.PayloadSize]byte {
	var data [bus.PayloadSize]byte
	binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(s.Value))
	data[4] = s.SensorID
	return data
}

// UnmarshalSensorReading decodes a reading from payload bytes.
func UnmarshalSensorReading(data [bus.PayloadSize]byte) SensorReading {
	return SensorReading{
		Value:    math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])),
		SensorID: data[4],
	}
}

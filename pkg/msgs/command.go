package msgs

import (
	"encoding/binary"
	"fmt"

	"github.com/robomesh/comms.go/pkg/bus"
)

// CommandType identifies what a command instructs the receiver to do.
type CommandType uint8

// Command types.
const (
	// CmdBegin starts execution of the buffered commands.
	CmdBegin CommandType = iota
	// CmdStop is reserved: a responder acknowledges and logs it but takes
	// no further action.
	CmdStop
	CmdMotorControl
	CmdSensorToggle

	numCommandTypes
)

func (t CommandType) String() string {
	switch t {
	case CmdBegin:
		return "begin"
	case CmdStop:
		return "stop"
	case CmdMotorControl:
		return "motor-control"
	case CmdSensorToggle:
		return "sensor-toggle"
	}
	return "unknown"
}

// Command is the payload of a command frame.
//
// Wire layout: type (1) | target (1) | commandID (2, LE) | detail (4, LE).
// CommandID is assigned by the originating command manager at send time and
// matches the command to its acknowledgement echo.
type Command struct {
	Type      CommandType
	Target    bus.NodeID
	CommandID uint16
	Detail    uint32
}

// Marshal encodes the command into payload bytes.
func (c Command) Marshal() [bus.PayloadSize]byte {
	var data [bus.PayloadSize]byte
	data[0] = byte(c.Type)
	data[1] = byte(c.Target)
	binary.LittleEndian.PutUint16(data[2:4], c.CommandID)
	binary.LittleEndian.PutUint32(data[4:8], c.Detail)
	return data
}

// ErrBadCommandType reports an out-of-range command type byte.
type ErrBadCommandType struct {
	Type uint8
}

// Error implements error.
func (e *ErrBadCommandType) Error() string {
	return fmt.Sprintf("bad command type %d", e.Type)
}

// UnmarshalCommand decodes a command from payload bytes.
func UnmarshalCommand(data [bus.PayloadSize]byte) (Command, error) {
	if data[0] >= byte(numCommandTypes) {
		return Command{}, &ErrBadCommandType{Type: data[0]}
	}
	return Command{
		Type:      CommandType(data[0]),
		Target:    bus.NodeID(data[1]),
		CommandID: binary.LittleEndian.Uint16(data[2:4]),
		Detail:    binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// MotorMode selects position or velocity control.
type MotorMode uint8

// Motor control modes.
const (
	MotorPosition MotorMode = iota
	MotorVelocity
)

// MotorControl is the detail of a CmdMotorControl command.
//
// Detail layout: targetNode (1) | motor (1) | mode (1) | value (1).
type MotorControl struct {
	TargetNode bus.NodeID
	Motor      uint8
	Mode       MotorMode
	Value      uint8
}

// Detail packs the motor control into the command detail word.
func (m MotorControl) Detail() uint32 {
	return uint32(m.TargetNode) |
		uint32(m.Motor)<<8 |
		uint32(m.Mode)<<16 |
		uint32(m.Value)<<24
}

// MotorControlFromDetail unpacks a motor control from the detail word.
func MotorControlFromDetail(detail uint32) MotorControl {
	return MotorControl{
		TargetNode: bus.NodeID(detail),
		Motor:      uint8(detail >> 8),
		Mode:       MotorMode(detail >> 16),
		Value:      uint8(detail >> 24),
	}
}

// SensorToggle is the detail of a CmdSensorToggle command.
//
// Detail layout: target (1) | sensorID (1) | enable (1) | reserved (1).
type SensorToggle struct {
	Target   bus.NodeID
	SensorID uint8
	Enable   bool
}

// Detail packs the sensor toggle into the command detail word.
func (s SensorToggle) Detail() uint32 {
	detail := uint32(s.Target) | uint32(s.SensorID)<<8
	if s.Enable {
		detail |= 1 << 16
	}
	return detail
}

// SensorToggleFromDetail unpacks a sensor toggle from the detail word.
func SensorToggleFromDetail(detail uint32) SensorToggle {
	return SensorToggle{
		Target:   bus.NodeID(detail),
		SensorID: uint8(detail >> 8),
		Enable:   detail>>16&1 != 0,
	}
}

// NewBegin builds a Begin command.
func NewBegin() Command {
	return Command{Type: CmdBegin, Target: bus.NodeAnyLowLevel}
}

// NewStop builds a Stop command for a node.
func NewStop(target bus.NodeID) Command {
	return Command{Type: CmdStop, Target: target}
}

// NewMotorControl builds a MotorControl command.
func NewMotorControl(mc MotorControl) Command {
	return Command{Type: CmdMotorControl, Target: mc.TargetNode, Detail: mc.Detail()}
}

// NewSensorToggle builds a SensorToggle command.
func NewSensorToggle(st SensorToggle) Command {
	return Command{Type: CmdSensorToggle, Target: st.Target, Detail: st.Detail()}
}

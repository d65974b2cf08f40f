package msgs

import (
	"encoding/binary"

	"github.com/robomesh/comms.go/pkg/bus"
)

// Severity grades how bad an error is so handlers can react differently.
type Severity uint8

// Severities.
const (
	SeverityLow Severity = iota
	SeverityMedium
	// SeverityCritical errors are expected to shut the whole system down.
	SeverityCritical

	// NumSeverities sizes handler tables.
	NumSeverities
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Behavior selects whether an error latches until cleared.
type Behavior uint8

// Behaviors.
const (
	NonLatching Behavior = iota
	Latching
)

func (b Behavior) String() string {
	if b == Latching {
		return "latching"
	}
	return "non-latching"
}

// Code enumerates the error conditions known to the system.
type Code uint8

// Error codes.
const (
	CodeHeartbeat Code = iota
	CodeDriveComm
	CodeEncoderFail
	CodeCommandFail
)

func (c Code) String() string {
	switch c {
	case CodeHeartbeat:
		return "heartbeat"
	case CodeDriveComm:
		return "drive-comm"
	case CodeEncoderFail:
		return "encoder-fail"
	case CodeCommandFail:
		return "command-fail"
	}
	return "unknown"
}

// ErrorReport is the payload of an error frame.
//
// Wire layout: errorNumber (4, LE) | severity (1) | behavior (1) | code (1)
// | reserved (1). Number is unique per originator and monotone.
type ErrorReport struct {
	Number   uint32
	Severity Severity
	Behavior Behavior
	Code     Code
}

// Marshal encodes the report into payload bytes.
func (e ErrorReport) Marshal() [bus.PayloadSize]byte {
	var data [bus.PayloadSize]byte
	binary.LittleEndian.PutUint32(data[0:4], e.Number)
	data[4] = byte(e.Severity)
	data[5] = byte(e.Behavior)
	data[6] = byte(e.Code)
	return data
}

// UnmarshalErrorReport decodes a report from payload bytes.
func UnmarshalErrorReport(data [bus.PayloadSize]byte) ErrorReport {
	return ErrorReport{
		Number:   binary.LittleEndian.Uint32(data[0:4]),
		Severity: Severity(data[4]),
		Behavior: Behavior(data[5]),
		Code:     Code(data[6]),
	}
}

package msgs

import (
	"encoding/binary"

	"github.com/robomesh/comms.go/pkg/bus"
)

// HeartbeatRequest is the payload the coordinator broadcasts to probe one
// node. Wire layout: target (1) | reserved (7, zero).
type HeartbeatRequest struct {
	Target bus.NodeID
}

// Marshal encodes the request into payload bytes.
func (h HeartbeatRequest) Marshal() [bus.PayloadSize]byte {
	var data [bus.PayloadSize]byte
	data[0] = byte(h.Target)
	return data
}

// UnmarshalHeartbeatRequest decodes a request from payload bytes.
func UnmarshalHeartbeatRequest(data [bus.PayloadSize]byte) HeartbeatRequest {
	return HeartbeatRequest{Target: bus.NodeID(data[0])}
}

// HeartbeatResponse carries the responder's monotonic counter.
// Wire layout: counter (8, LE).
type HeartbeatResponse struct {
	Counter uint64
}

// Marshal encodes the response into payload bytes.
func (h HeartbeatResponse) Marshal() [bus.PayloadSize]byte {
	var data [bus.PayloadSize]byte
	binary.LittleEndian.PutUint64(data[:], h.Counter)
	return data
}

// UnmarshalHeartbeatResponse decodes a response from payload bytes.
func UnmarshalHeartbeatResponse(data [bus.PayloadSize]byte) HeartbeatResponse {
	return HeartbeatResponse{Counter: binary.LittleEndian.Uint64(data[:])}
}

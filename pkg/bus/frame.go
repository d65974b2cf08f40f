package bus

import "encoding/binary"

// PayloadSize is the fixed payload size of a bus frame.
const PayloadSize = 8

// Frame is a raw bus frame: an 11-bit arbitration id, a length and exactly
// eight payload bytes. The payload is accessible both as bytes and as a
// little-endian 64-bit scalar; both views address the same bits.
type Frame struct {
	ID     uint32
	Length uint8
	Data   [PayloadSize]uint8
}

// NewFrame returns a frame carrying the given little-endian scalar payload.
func NewFrame(id uint32, payload uint64) Frame {
	frm := Frame{ID: id, Length: PayloadSize}
	frm.SetPayload(payload)
	return frm
}

// Payload returns the payload bytes as a little-endian 64-bit scalar.
func (frm *Frame) Payload() uint64 {
	return binary.LittleEndian.Uint64(frm.Data[:])
}

// SetPayload overwrites the payload bytes from a little-endian 64-bit scalar.
func (frm *Frame) SetPayload(payload uint64) {
	binary.LittleEndian.PutUint64(frm.Data[:], payload)
}

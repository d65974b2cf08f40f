package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFramePayloadViews(t *testing.T) {
	frm := NewFrame(IDCommandHighLevel, 0x0807060504030201)
	require.Equal(t, uint8(PayloadSize), frm.Length)
	require.Equal(t, [PayloadSize]uint8{1, 2, 3, 4, 5, 6, 7, 8}, frm.Data,
		"scalar view is little-endian over the same bytes")

	frm.Data[0] = 0xFF
	require.Equal(t, uint64(0x08070605040302FF), frm.Payload())
}

func TestClockWrapDelta(t *testing.T) {
	// unsigned subtraction keeps deltas small across 32-bit wrap
	var now, then uint32 = 500, 0xFFFFFF00
	require.Equal(t, uint32(0x2F4), now-then)
}

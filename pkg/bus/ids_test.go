package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup(0x7FF)
	require.False(t, ok)
}

func TestRegistryRoundTrip(t *testing.T) {
	// every registered id must be recoverable from its own (sender, type)
	for _, id := range registryIDs {
		d, ok := Lookup(id)
		require.True(t, ok)
		encoded, ok := EncodeID(d.Sender, d.Type)
		require.True(t, ok, "id 0x%03x has no encoder", id)
		back, _ := Lookup(encoded)
		require.Equal(t, d.Sender, back.Sender)
		require.Equal(t, d.Type, back.Type)
	}
}

func TestEncodeIDStable(t *testing.T) {
	testCases := []struct {
		sender NodeID
		kind   ContentType
		expect uint32
	}{
		{NodeHighLevel, ContentError, IDErrorGlobal},
		{NodeHighLevel, ContentHeartbeat, IDHeartbeatRequest},
		{NodeHighLevel, ContentCommand, IDCommandHighLevel},
		{NodeLowLevel0, ContentHeartbeat, IDHeartbeatResp0},
		{NodeLowLevel2, ContentError, IDErrorLowLevel2},
		{NodeLowLevel3, ContentError, IDErrorLowLevel3},
		{NodeLowLevel3, ContentCommand, IDCommandResp3},
		{NodePalm, ContentCommand, IDCommandRespPalm},
		{NodePalm, ContentSensorData, IDSensorDataPalm},
	}
	for _, tc := range testCases {
		for i := 0; i < 3; i++ {
			id, ok := EncodeID(tc.sender, tc.kind)
			require.True(t, ok)
			require.Equal(t, tc.expect, id)
		}
	}

	_, ok := EncodeID(NodePalm, ContentHeartbeat)
	require.False(t, ok, "the palm is not a heartbeat emitter")
	_, ok = EncodeID(NodeHighLevel, ContentSensorData)
	require.False(t, ok)
}

func TestShouldListen(t *testing.T) {
	actualNodes := []NodeID{
		NodeHighLevel, NodeLowLevel0, NodeLowLevel1, NodeLowLevel2, NodeLowLevel3, NodePalm,
	}
	for _, id := range registryIDs {
		d, _ := Lookup(id)
		for _, me := range actualNodes {
			expect := d.Target == NodeAny || d.Target == me ||
				(me.IsLowLevel() && d.Target == NodeAnyLowLevel)
			require.Equal(t, expect, ShouldListen(d, me),
				"id 0x%03x target %v me %v", id, d.Target, me)
		}
	}

	// the palm is not covered by the low-level wildcard
	require.False(t, ShouldListen(Descriptor{NodeHighLevel, NodeAnyLowLevel, ContentCommand}, NodePalm))
}

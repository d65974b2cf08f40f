package bus

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Descriptor describes who emits a registered arbitration id, who it is
// addressed to and what kind of payload it carries.
type Descriptor struct {
	Sender NodeID
	Target NodeID
	Type   ContentType
}

// Registered arbitration ids, per the electrical architecture document.
// The document assigns 0x030 to both low-level 2 and 3; low-level 3 was
// moved to 0x050 to keep the forward map total.
const (
	IDErrorGlobal    uint32 = 0x000
	IDErrorLowLevel0 uint32 = 0x010
	IDErrorLowLevel1 uint32 = 0x020
	IDErrorLowLevel2 uint32 = 0x030
	IDErrorPalm      uint32 = 0x040
	IDErrorLowLevel3 uint32 = 0x050

	IDHeartbeatResp0   uint32 = 0x100
	IDHeartbeatRequest uint32 = 0x10A
	IDHeartbeatResp1   uint32 = 0x110
	IDHeartbeatResp2   uint32 = 0x120
	IDHeartbeatResp3   uint32 = 0x130

	IDCommandHighLevel uint32 = 0x200

	IDCommandResp0    uint32 = 0x300
	IDCommandResp1    uint32 = 0x310
	IDCommandResp2    uint32 = 0x320
	IDCommandResp3    uint32 = 0x330
	IDCommandRespPalm uint32 = 0x340

	IDSensorData0    uint32 = 0x400
	IDSensorData1    uint32 = 0x410
	IDSensorData2    uint32 = 0x420
	IDSensorData3    uint32 = 0x430
	IDSensorDataPalm uint32 = 0x440
)

var registry = map[uint32]Descriptor{
	IDErrorGlobal:    {NodeHighLevel, NodeAny, ContentError},
	IDErrorLowLevel0: {NodeLowLevel0, NodeAny, ContentError},
	IDErrorLowLevel1: {NodeLowLevel1, NodeAny, ContentError},
	IDErrorLowLevel2: {NodeLowLevel2, NodeAny, ContentError},
	IDErrorLowLevel3: {NodeLowLevel3, NodeAny, ContentError},
	IDErrorPalm:      {NodePalm, NodeAny, ContentError},

	IDHeartbeatRequest: {NodeHighLevel, NodeAnyLowLevel, ContentHeartbeat},
	IDHeartbeatResp0:   {NodeLowLevel0, NodeHighLevel, ContentHeartbeat},
	IDHeartbeatResp1:   {NodeLowLevel1, NodeHighLevel, ContentHeartbeat},
	IDHeartbeatResp2:   {NodeLowLevel2, NodeHighLevel, ContentHeartbeat},
	IDHeartbeatResp3:   {NodeLowLevel3, NodeHighLevel, ContentHeartbeat},

	IDCommandHighLevel: {NodeHighLevel, NodeAnyLowLevel, ContentCommand},
	IDCommandResp0:     {NodeLowLevel0, NodeHighLevel, ContentCommand},
	IDCommandResp1:     {NodeLowLevel1, NodeHighLevel, ContentCommand},
	IDCommandResp2:     {NodeLowLevel2, NodeHighLevel, ContentCommand},
	IDCommandResp3:     {NodeLowLevel3, NodeHighLevel, ContentCommand},
	IDCommandRespPalm:  {NodePalm, NodeHighLevel, ContentCommand},

	IDSensorData0:    {NodeLowLevel0, NodeHighLevel, ContentSensorData},
	IDSensorData1:    {NodeLowLevel1, NodeHighLevel, ContentSensorData},
	IDSensorData2:    {NodeLowLevel2, NodeHighLevel, ContentSensorData},
	IDSensorData3:    {NodeLowLevel3, NodeHighLevel, ContentSensorData},
	IDSensorDataPalm: {NodePalm, NodeHighLevel, ContentSensorData},
}

// registryIDs holds every registered id in ascending order so EncodeID is
// stable across calls.
var registryIDs = func() []uint32 {
	ids := maps.Keys(registry)
	slices.Sort(ids)
	return ids
}()

// Lookup resolves a received arbitration id to its descriptor.
func Lookup(id uint32) (Descriptor, bool) {
	d, ok := registry[id]
	return d, ok
}

// EncodeID returns the arbitration id a node emits for the given content
// type: the lowest registered id whose descriptor matches (sender, type).
func EncodeID(sender NodeID, contentType ContentType) (uint32, bool) {
	for _, id := range registryIDs {
		d := registry[id]
		if d.Sender == sender && d.Type == contentType {
			return id, true
		}
	}
	return 0, false
}

// ShouldListen reports whether a node should consume frames carrying this
// descriptor. The decision depends only on the target; self-loopback
// filtering is the receive path's job.
func ShouldListen(d Descriptor, me NodeID) bool {
	if d.Target == NodeAny || d.Target == me {
		return true
	}
	return me.IsLowLevel() && d.Target == NodeAnyLowLevel
}

// Package bus defines the broadcast-bus primitives shared by every node of
// the device: raw frames, the transceiver port abstraction, the monotonic
// clock abstraction, node identities and the arbitration-id registry that
// maps each 11-bit id to its (sender, target, content-type) descriptor.
package bus

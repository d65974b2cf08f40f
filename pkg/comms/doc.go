// Package comms is the per-node control plane of the bus: a cooperative
// state machine advanced by Controller.Tick that multiplexes commands,
// heartbeats, errors and sensor telemetry over one shared transceiver port.
//
// The core is strictly single-threaded and non-blocking: every behaviour
// advances only inside a tick, the port is polled, and the clock is the
// host's monotonic millisecond counter. Hosts that want a self-driving
// controller wrap it in a Loop.
package comms

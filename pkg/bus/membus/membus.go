// Package membus provides an in-process broadcast hub implementing the bus
// Port interface. It stands in for the physical transceiver in tests,
// simulations and the interactive shell.
package membus

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
)

// DefaultQueueDepth is the per-port receive queue depth.
const DefaultQueueDepth = 256

// Hub connects any number of ports. A frame sent through one port is
// enqueued to every attached port, the sender included, so loopback is
// observable just as on the physical bus.
type Hub struct {
	lock  sync.Mutex
	ports []*Port
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{}
}

// NewPort attaches a new port to the hub.
func (h *Hub) NewPort() *Port {
	p := &Port{hub: h, queue: make(chan bus.Frame, DefaultQueueDepth)}
	h.lock.Lock()
	h.ports = append(h.ports, p)
	h.lock.Unlock()
	return p
}

func (h *Hub) broadcast(frm bus.Frame) {
	h.lock.Lock()
	ports := make([]*Port, len(h.ports))
	copy(ports, h.ports)
	h.lock.Unlock()
	for _, p := range ports {
		select {
		case p.queue <- frm:
		default:
			glog.Warningf("membus: receive queue full, dropping frame 0x%03x", frm.ID)
		}
	}
}

// Port is one attachment point on a Hub.
type Port struct {
	hub   *Hub
	queue chan bus.Frame
}

// Install implements bus.Port.
func (p *Port) Install() error { return nil }

// Uninstall implements bus.Port.
func (p *Port) Uninstall() {}

// Send implements bus.Port.
func (p *Port) Send(frm bus.Frame) {
	p.hub.broadcast(frm)
}

// TryReceive implements bus.Port.
func (p *Port) TryReceive() (bus.Frame, bool) {
	select {
	case frm := <-p.queue:
		return frm, true
	default:
		return bus.Frame{}, false
	}
}

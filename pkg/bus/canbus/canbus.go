// Package canbus adapts a SocketCAN interface to the bus Port contract.
// Frames are received on a background goroutine into a bounded queue that
// TryReceive drains without blocking.
package canbus

import (
	"time"

	"github.com/FabianPetersen/can"
	retry "github.com/avast/retry-go"
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
)

const (
	// maskIDSff extracts the valid 11-bit identifier bits from a
	// standard-frame-format CAN id.
	maskIDSff = 0x7FF

	queueDepth      = 256
	installAttempts = 5
	installDelay    = 200 * time.Millisecond
)

// Port is a bus.Port backed by one SocketCAN interface.
type Port struct {
	// Interface is the SocketCAN interface name, e.g. "can0".
	Interface string

	canBus *can.Bus
	rx     chan bus.Frame
}

// NewPort creates a port for the named interface.
func NewPort(ifaceName string) *Port {
	return &Port{Interface: ifaceName, rx: make(chan bus.Frame, queueDepth)}
}

// Install opens the interface, retrying briefly, subscribes to all frames
// and starts the receive loop.
func (p *Port) Install() error {
	err := retry.Do(func() error {
		canBus, err := can.NewBusForInterfaceWithName(p.Interface)
		if err != nil {
			return err
		}
		p.canBus = canBus
		return nil
	}, retry.Attempts(installAttempts), retry.Delay(installDelay))
	if err != nil {
		return err
	}

	p.canBus.SubscribeFunc(p.handleFrame)
	go func() {
		if err := p.canBus.ConnectAndPublish(); err != nil {
			glog.Errorf("can receive loop on %s: %v", p.Interface, err)
		}
	}()
	return nil
}

// Uninstall disconnects from the interface.
func (p *Port) Uninstall() {
	if p.canBus == nil {
		return
	}
	if err := p.canBus.Disconnect(); err != nil {
		glog.Errorf("disconnecting %s: %v", p.Interface, err)
	}
}

// Send implements bus.Port, best effort.
func (p *Port) Send(frm bus.Frame) {
	if p.canBus == nil {
		glog.Errorf("send on uninstalled can port %s", p.Interface)
		return
	}
	err := p.canBus.Publish(can.Frame{
		ID:     frm.ID,
		Length: frm.Length,
		Data:   frm.Data,
	})
	if err != nil {
		glog.Errorf("publish on %s: %v", p.Interface, err)
	}
}

// TryReceive implements bus.Port.
func (p *Port) TryReceive() (bus.Frame, bool) {
	select {
	case frm := <-p.rx:
		return frm, true
	default:
		return bus.Frame{}, false
	}
}

func (p *Port) handleFrame(frm can.Frame) {
	select {
	case p.rx <- bus.Frame{ID: frm.ID & maskIDSff, Length: frm.Length, Data: frm.Data}:
	default:
		glog.Warningf("rx queue full on %s, dropping frame 0x%03x", p.Interface, frm.ID&maskIDSff)
	}
}

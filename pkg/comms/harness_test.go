package comms

import (
	"github.com/robomesh/comms.go/pkg/bus"
)

// testClock is a hand-advanced millisecond clock.
type testClock struct {
	now uint32
}

func (c *testClock) Now() uint32 { return c.now }

func (c *testClock) advance(ms uint32) { c.now += ms }

// testPort records sends and replays queued frames.
type testPort struct {
	installed bool
	sent      []bus.Frame
	rx        []bus.Frame
}

func (p *testPort) Install() error { p.installed = true; return nil }

func (p *testPort) Uninstall() {}

func (p *testPort) Send(frm bus.Frame) { p.sent = append(p.sent, frm) }

func (p *testPort) TryReceive() (bus.Frame, bool) {
	if len(p.rx) == 0 {
		return bus.Frame{}, false
	}
	frm := p.rx[0]
	p.rx = p.rx[1:]
	return frm, true
}

func (p *testPort) push(frm bus.Frame) { p.rx = append(p.rx, frm) }

// take returns and clears the recorded sends.
func (p *testPort) take() []bus.Frame {
	sent := p.sent
	p.sent = nil
	return sent
}

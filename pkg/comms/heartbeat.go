package comms

import (
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

// heartbeatSilenceMs is how long a peer may stay silent after a request
// before it is classified bad and re-probed.
const heartbeatSilenceMs = 5000

// PeerStatus is the liveness bookkeeping for one monitored peer.
type PeerStatus struct {
	// Expected counts fresh requests sent (re-probes of a silent peer are
	// not counted); Actual counts responses received.
	// One in-flight request (Expected == Actual+1) is healthy.
	Expected     uint64
	Actual       uint64
	LastRequest  uint32
	LastResponse uint32
}

// HeartbeatManager probes monitored peers from the coordinator and answers
// probes with a monotonic counter on every other node.
type HeartbeatManager struct {
	port  bus.Port
	clock bus.Clock
	me    bus.NodeID

	counter uint64 // own response counter

	interval     uint32
	lastDispatch uint32
	monitored    []bus.NodeID
	peers        map[bus.NodeID]*PeerStatus
	bad          []bus.NodeID
}

// NewHeartbeatManager creates a manager for the given node.
func NewHeartbeatManager(port bus.Port, clock bus.Clock, me bus.NodeID) *HeartbeatManager {
	return &HeartbeatManager{
		port:  port,
		clock: clock,
		me:    me,
		peers: make(map[bus.NodeID]*PeerStatus),
	}
}

// Initialize arms periodic probing of the given peers. Coordinator only;
// an initial request goes out to each peer immediately.
func (m *HeartbeatManager) Initialize(intervalMs uint32, peers []bus.NodeID) {
	m.interval = intervalMs
	m.monitored = append([]bus.NodeID(nil), peers...)
	m.lastDispatch = m.clock.Now()
	for _, id := range m.monitored {
		m.sendRequest(id, true)
	}
}

// Tick advances probing and classifies peers. It reports overall liveness:
// true iff every monitored peer is healthy. On non-coordinators it is a
// no-op reporting true.
func (m *HeartbeatManager) Tick() bool {
	if m.me != bus.NodeHighLevel {
		return true
	}

	now := m.clock.Now()
	if len(m.monitored) > 0 && now-m.lastDispatch >= m.interval {
		for _, id := range m.monitored {
			m.sendRequest(id, true)
		}
		m.lastDispatch = now
	}

	m.bad = m.bad[:0]
	for id, status := range m.peers {
		if status.LastRequest-status.LastResponse > heartbeatSilenceMs {
			glog.Errorf("no heartbeat from %v for over %dms, re-probing", id, heartbeatSilenceMs)
			m.sendRequest(id, false)
			m.bad = append(m.bad, id)
			continue
		}

		if status.Expected == status.Actual || status.Expected == status.Actual+1 {
			continue
		}

		glog.Errorf("heartbeat mismatch on %v: expected %d, got %d", id, status.Expected, status.Actual)
		m.bad = append(m.bad, id)
	}

	return len(m.bad) == 0
}

// HandleResponse records a response from a peer.
func (m *HeartbeatManager) HandleResponse(sender bus.NodeID) {
	status := m.peer(sender)
	status.Actual++
	status.LastResponse = m.clock.Now()
}

// HandleRequest answers a probe naming this node. Requests for other nodes
// are ignored.
func (m *HeartbeatManager) HandleRequest(req msgs.HeartbeatRequest) {
	if req.Target != m.me {
		return
	}
	m.sendResponse()
}

// BadPeers returns the peers classified bad by the last Tick.
func (m *HeartbeatManager) BadPeers() []bus.NodeID {
	return m.bad
}

// PeerStatuses exposes the bookkeeping per monitored peer.
func (m *HeartbeatManager) PeerStatuses() map[bus.NodeID]PeerStatus {
	out := make(map[bus.NodeID]PeerStatus, len(m.peers))
	for id, status := range m.peers {
		out[id] = *status
	}
	return out
}

func (m *HeartbeatManager) peer(id bus.NodeID) *PeerStatus {
	status := m.peers[id]
	if status == nil {
		status = &PeerStatus{}
		m.peers[id] = status
	}
	return status
}

// sendRequest probes one peer. A fresh probe bumps the expected counter;
// a re-probe of a silent peer does not.
func (m *HeartbeatManager) sendRequest(destination bus.NodeID, expectMore bool) {
	if m.me != bus.NodeHighLevel {
		glog.Errorf("cannot send a heartbeat request: not the coordinator")
		return
	}
	id, ok := bus.EncodeID(m.me, bus.ContentHeartbeat)
	if !ok {
		glog.Errorf("no heartbeat id registered for %v", m.me)
		return
	}

	payload := msgs.HeartbeatRequest{Target: destination}
	m.port.Send(bus.Frame{ID: id, Length: bus.PayloadSize, Data: payload.Marshal()})

	status := m.peer(destination)
	if expectMore {
		status.Expected++
		status.LastRequest = m.clock.Now()
	}
}

func (m *HeartbeatManager) sendResponse() {
	if m.me == bus.NodeHighLevel {
		glog.Errorf("cannot send a heartbeat response: am the coordinator")
		return
	}
	id, ok := bus.EncodeID(m.me, bus.ContentHeartbeat)
	if !ok {
		glog.Errorf("no heartbeat id registered for %v", m.me)
		return
	}

	m.counter++
	payload := msgs.HeartbeatResponse{Counter: m.counter}
	m.port.Send(bus.Frame{ID: id, Length: bus.PayloadSize, Data: payload.Marshal()})
}

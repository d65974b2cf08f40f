package comms

import (
	"github.com/golang/glog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

// DefaultErrorRetransmitMs is the retransmit interval the controller
// installs when the host does not choose one.
const DefaultErrorRetransmitMs = 500

// ErrorHandler reacts to an error of a given severity, whether reported
// locally or received from the bus.
type ErrorHandler func(msgs.ErrorReport)

type managedError struct {
	report           msgs.ErrorReport
	lastTransmission uint32
}

// ErrorManager reports, retransmits and dispatches errors. Active errors
// (reported locally, or received with latching behavior) are re-emitted on
// this node's error id every retransmit interval until cleared.
type ErrorManager struct {
	port  bus.Port
	clock bus.Clock
	me    bus.NodeID

	counter      uint32
	retransmitMs uint32
	handlers     [msgs.NumSeverities]ErrorHandler
	active       map[uint32]*managedError
}

// NewErrorManager creates a manager for the given node.
func NewErrorManager(port bus.Port, clock bus.Clock, me bus.NodeID) *ErrorManager {
	return &ErrorManager{
		port:   port,
		clock:  clock,
		me:     me,
		active: make(map[uint32]*managedError),
	}
}

// Initialize sets the retransmit interval.
func (m *ErrorManager) Initialize(retransmitMs uint32) {
	m.retransmitMs = retransmitMs
}

// SetHandler registers the handler for one severity. Only the most recent
// registration per severity is retained.
func (m *ErrorManager) SetHandler(severity msgs.Severity, handler ErrorHandler) {
	if severity < msgs.NumSeverities {
		m.handlers[severity] = handler
	}
}

// Report assigns a fresh error number, stores the error for retransmission
// and emits it immediately. It returns the assigned number.
func (m *ErrorManager) Report(code msgs.Code, severity msgs.Severity, behavior msgs.Behavior) uint32 {
	number := m.counter
	m.counter++

	report := msgs.ErrorReport{
		Number:   number,
		Severity: severity,
		Behavior: behavior,
		Code:     code,
	}
	m.active[number] = &managedError{report: report, lastTransmission: m.clock.Now()}

	m.emit(report)
	return number
}

// Tick re-emits every active error whose retransmit interval has elapsed.
func (m *ErrorManager) Tick() {
	now := m.clock.Now()
	for _, status := range m.active {
		if now-status.lastTransmission < m.retransmitMs {
			continue
		}
		if m.emit(status.report) {
			status.lastTransmission = now
		}
	}
}

// Handle dispatches a received error frame: the severity handler runs if
// registered, and latching errors enter the local store so this node keeps
// re-echoing them until cleared.
func (m *ErrorManager) Handle(info bus.Descriptor, frm bus.Frame) {
	report := msgs.UnmarshalErrorReport(frm.Data)

	if report.Severity < msgs.NumSeverities {
		if handler := m.handlers[report.Severity]; handler != nil {
			handler(report)
		}
	}

	if report.Behavior == msgs.Latching {
		glog.V(2).Infof("latching error %v from %v", report.Code, info.Sender)
		m.active[report.Number] = &managedError{report: report, lastTransmission: m.clock.Now()}
	}
}

// Clear removes every active error with the given code, stopping its
// retransmission. Clearing is local to this node.
func (m *ErrorManager) Clear(code msgs.Code) {
	var toErase []uint32
	for number, status := range m.active {
		if status.report.Code == code {
			toErase = append(toErase, number)
		}
	}
	for _, number := range toErase {
		delete(m.active, number)
	}
}

// Active returns the stored errors ordered by number.
func (m *ErrorManager) Active() []msgs.ErrorReport {
	numbers := maps.Keys(m.active)
	slices.Sort(numbers)
	out := make([]msgs.ErrorReport, 0, len(numbers))
	for _, number := range numbers {
		out = append(out, m.active[number].report)
	}
	return out
}

func (m *ErrorManager) emit(report msgs.ErrorReport) bool {
	id, ok := bus.EncodeID(m.me, bus.ContentError)
	if !ok {
		glog.Errorf("no error id registered for %v", m.me)
		return false
	}
	m.port.Send(bus.Frame{ID: id, Length: bus.PayloadSize, Data: report.Marshal()})
	return true
}

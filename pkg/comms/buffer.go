package comms

import (
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

// CommandHandler executes buffered commands of one type and decides how
// they group into slices.
type CommandHandler interface {
	// Execute runs one command.
	Execute(msgs.Command)
	// Parallelizable reports whether the prospective slice, which ends
	// with a command of this handler's type, may run concurrently.
	Parallelizable(slice []msgs.Command) bool
}

// ExecutionStats summarizes one completed execution run.
type ExecutionStats struct {
	// ElapsedMs is the time since StartExecution.
	ElapsedMs uint32
	// Executed is the number of commands the completed slice held.
	Executed int
	Success  bool
}

// commandSlice is a half-open index range over the buffer. Any slice with
// start >= end is empty; the sentinel is (10, 0).
type commandSlice struct {
	start, end int
}

func emptySlice() commandSlice {
	return commandSlice{start: 10, end: 0}
}

func (s commandSlice) isEmpty() bool {
	return s.start >= s.end
}

func (s commandSlice) size() int {
	return s.end - s.start
}

// CommandBuffer holds commands queued by the responder role and executes
// them in slices once a Begin arrives. A slice grows forward until a
// handler declares it non-parallelizable; that command closes the slice
// inclusively.
type CommandBuffer struct {
	clock bus.Clock

	commands []msgs.Command
	handlers [numBufferHandlers]CommandHandler

	current      commandSlice
	executing    bool
	numCompleted int
	startTime    uint32

	onComplete func(ExecutionStats)
}

const numBufferHandlers = int(msgs.CmdSensorToggle) + 1

// NewCommandBuffer creates an idle buffer.
func NewCommandBuffer(clock bus.Clock) *CommandBuffer {
	return &CommandBuffer{clock: clock, current: emptySlice()}
}

// Add appends a command to the pending sequence.
func (b *CommandBuffer) Add(cmd msgs.Command) {
	b.commands = append(b.commands, cmd)
}

// SetHandler installs the handler for one command type.
func (b *CommandBuffer) SetHandler(commandType msgs.CommandType, handler CommandHandler) {
	if int(commandType) < numBufferHandlers {
		b.handlers[commandType] = handler
	}
}

// SetCompletionCallback installs the callback fired when an execution run
// completes.
func (b *CommandBuffer) SetCompletionCallback(fn func(ExecutionStats)) {
	b.onComplete = fn
}

// StartExecution begins executing the buffered commands.
func (b *CommandBuffer) StartExecution() {
	if b.executing {
		glog.Error("command buffer is already executing")
		return
	}
	b.startTime = b.clock.Now()
	b.executing = true
}

// Executing reports whether a run is in progress.
func (b *CommandBuffer) Executing() bool {
	return b.executing
}

// Len reports how many commands are buffered.
func (b *CommandBuffer) Len() int {
	return len(b.commands)
}

// Tick advances execution: selects the next slice when none is current,
// dispatches its commands and, once all of them completed, fires the
// completion callback and goes idle.
func (b *CommandBuffer) Tick() {
	if !b.executing {
		return
	}

	if b.current.isEmpty() {
		b.current = b.findNextSlice(b.current)
	}

	if b.current.isEmpty() {
		b.executing = false
		return
	}

	for i := b.current.start; i < b.current.end; i++ {
		cmd := b.commands[i]
		handler := b.handler(cmd.Type)
		if handler == nil {
			glog.V(2).Infof("no handler for %v command, skipping", cmd.Type)
		} else {
			handler.Execute(cmd)
		}
		b.numCompleted++
	}

	if b.numCompleted == b.current.size() {
		stats := ExecutionStats{
			ElapsedMs: b.clock.Now() - b.startTime,
			Executed:  b.current.size(),
			Success:   true,
		}
		b.current = emptySlice()
		b.numCompleted = 0
		if b.onComplete != nil {
			b.onComplete(stats)
		}
		b.executing = false
	}
}

// Clear drops all buffered commands.
func (b *CommandBuffer) Clear() {
	b.commands = b.commands[:0]
	b.current = emptySlice()
}

// Reset rewinds execution to the start of the buffer and stops it.
func (b *CommandBuffer) Reset() {
	b.current = commandSlice{}
	b.executing = false
	b.numCompleted = 0
}

// findNextSlice walks forward from the current slice's end, growing the
// prospective slice until a handler reports it non-parallelizable; that
// command is included. With every remaining command parallelizable the
// slice runs to the end of the buffer.
func (b *CommandBuffer) findNextSlice(current commandSlice) commandSlice {
	start := current.end
	if start >= len(b.commands) {
		return emptySlice()
	}

	end := len(b.commands)
	for i := start; i < len(b.commands); i++ {
		handler := b.handler(b.commands[i].Type)
		if handler == nil {
			continue
		}
		if !handler.Parallelizable(b.commands[start : i+1]) {
			end = i + 1
			break
		}
	}

	return commandSlice{start: start, end: end}
}

func (b *CommandBuffer) handler(commandType msgs.CommandType) CommandHandler {
	if int(commandType) >= numBufferHandlers {
		return nil
	}
	return b.handlers[commandType]
}

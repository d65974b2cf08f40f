// Command commsh is an interactive shell driving a coordinator node: issue
// motor commands, release the start barrier, toggle remote sensors and
// inspect sensor/heartbeat/error state.
//
// With -sim the shell runs against an in-process bus carrying a simulated
// low-level node, so the whole command/ack/telemetry path can be exercised
// without hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/bus/canbus"
	"github.com/robomesh/comms.go/pkg/bus/membus"
	"github.com/robomesh/comms.go/pkg/comms"
	"github.com/robomesh/comms.go/pkg/msgs"
)

var (
	canInterface = "can0"
	simulate     = false

	monitorPeers = []bus.NodeID{bus.NodeLowLevel0, bus.NodeLowLevel1, bus.NodeLowLevel2, bus.NodeLowLevel3}
)

func init() {
	if val := os.Getenv("COMMS_CAN_INTERFACE"); val != "" {
		canInterface = val
	}
	flag.StringVar(&canInterface, "can", canInterface, "CAN interface to attach to.")
	flag.BoolVar(&simulate, "sim", simulate, "Drive an in-process simulated bus instead of CAN.")
}

// session serializes shell access to the single-threaded controllers: the
// tick loop and every shell command take the lock.
type session struct {
	lock        sync.Mutex
	controllers []*comms.Controller
}

func (s *session) run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.lock.Lock()
			for _, c := range s.controllers {
				c.Tick()
			}
			s.lock.Unlock()
		}
	}
}

func (s *session) coordinator() *comms.Controller {
	return s.controllers[0]
}

func main() {
	flag.Parse()

	sess := &session{}

	if simulate {
		hub := membus.NewHub()
		coordinator := comms.NewController(hub.NewPort(), clock(), bus.NodeHighLevel)

		peer := comms.NewController(hub.NewPort(), clock(), bus.NodeLowLevel0)
		value := float32(0)
		peer.AddSensor(100, 0, comms.SensorFuncs{ReadFunc: func() float32 {
			value++
			return value
		}})
		sess.controllers = []*comms.Controller{coordinator, peer}
	} else {
		port := canbus.NewPort(canInterface)
		coordinator := comms.NewController(port, clock(), bus.NodeHighLevel)
		sess.controllers = []*comms.Controller{coordinator}
	}

	for _, c := range sess.controllers {
		if err := c.Initialize(); err != nil {
			log.Fatalln(err)
		}
	}
	peers := monitorPeers
	if simulate {
		peers = []bus.NodeID{bus.NodeLowLevel0}
	}
	sess.coordinator().StartMonitoring(1000, peers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.run(ctx)

	shell := ishell.New()
	shell.Println("comms shell; `help` lists commands")
	for _, cmd := range commands(sess) {
		shell.AddCmd(cmd)
	}
	shell.Run()
}

func clock() bus.Clock {
	start := time.Now()
	return bus.ClockFunc(func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	})
}

func commands(sess *session) []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name: "motor",
			Help: "motor <node 0-3> <motor> <pos|vel> <value>: queue a motor command",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 4 {
					c.Err(errUsage(c))
					return
				}
				node, err1 := strconv.Atoi(c.Args[0])
				motor, err2 := strconv.Atoi(c.Args[1])
				value, err3 := strconv.Atoi(c.Args[3])
				if err1 != nil || err2 != nil || err3 != nil {
					c.Err(errUsage(c))
					return
				}
				mode := msgs.MotorPosition
				if c.Args[2] == "vel" {
					mode = msgs.MotorVelocity
				}
				cmd := msgs.NewMotorControl(msgs.MotorControl{
					TargetNode: bus.NodeLowLevel0 + bus.NodeID(node),
					Motor:      uint8(motor),
					Mode:       mode,
					Value:      uint8(value),
				})
				sess.lock.Lock()
				id, ok := sess.coordinator().SendCommand(cmd)
				sess.lock.Unlock()
				if !ok {
					c.Err(errSendFailed)
					return
				}
				c.Printf("sent command #%d\n", id)
			},
		},
		{
			Name: "begin",
			Help: "begin: release the start barrier once all commands are acknowledged",
			Func: func(c *ishell.Context) {
				sess.lock.Lock()
				id, ok := sess.coordinator().SendCommand(msgs.NewBegin())
				sess.lock.Unlock()
				if !ok {
					c.Err(errSendFailed)
					return
				}
				c.Printf("begin #%d held until in-flight commands drain\n", id)
			},
		},
		{
			Name: "stop",
			Help: "stop <node 0-3>: send a stop command",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(errUsage(c))
					return
				}
				node, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(errUsage(c))
					return
				}
				sess.lock.Lock()
				id, ok := sess.coordinator().SendCommand(msgs.NewStop(bus.NodeLowLevel0 + bus.NodeID(node)))
				sess.lock.Unlock()
				if !ok {
					c.Err(errSendFailed)
					return
				}
				c.Printf("sent command #%d\n", id)
			},
		},
		{
			Name: "toggle",
			Help: "toggle <node 0-3> <sensor> <on|off>: gate a remote sensor stream",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 3 {
					c.Err(errUsage(c))
					return
				}
				node, err1 := strconv.Atoi(c.Args[0])
				sensor, err2 := strconv.Atoi(c.Args[1])
				if err1 != nil || err2 != nil {
					c.Err(errUsage(c))
					return
				}
				cmd := msgs.NewSensorToggle(msgs.SensorToggle{
					Target:   bus.NodeLowLevel0 + bus.NodeID(node),
					SensorID: uint8(sensor),
					Enable:   c.Args[2] == "on",
				})
				sess.lock.Lock()
				id, ok := sess.coordinator().SendCommand(cmd)
				sess.lock.Unlock()
				if !ok {
					c.Err(errSendFailed)
					return
				}
				c.Printf("sent command #%d\n", id)
			},
		},
		{
			Name: "sensors",
			Help: "sensors: show the last reading from every remote sensor",
			Func: func(c *ishell.Context) {
				sess.lock.Lock()
				statuses := sess.coordinator().SensorStatuses()
				sess.lock.Unlock()
				if len(statuses) == 0 {
					c.Println("no readings yet")
					return
				}
				for _, s := range statuses {
					c.Printf("%s sensor %d: %g\n", s.Sender, s.SensorID, s.Value)
				}
			},
		},
		{
			Name: "health",
			Help: "health: show heartbeat liveness per monitored peer",
			Func: func(c *ishell.Context) {
				sess.lock.Lock()
				healthy := sess.coordinator().Healthy()
				statuses := sess.coordinator().Heartbeat().PeerStatuses()
				sess.lock.Unlock()
				c.Printf("healthy: %t\n", healthy)
				for id, s := range statuses {
					c.Printf("%s: expected=%d actual=%d\n", id, s.Expected, s.Actual)
				}
			},
		},
		{
			Name: "errors",
			Help: "errors: show the errors this node is retransmitting",
			Func: func(c *ishell.Context) {
				sess.lock.Lock()
				reports := sess.coordinator().ActiveErrors()
				sess.lock.Unlock()
				if len(reports) == 0 {
					c.Println("no active errors")
					return
				}
				for _, r := range reports {
					c.Printf("#%d %s severity=%s %s\n", r.Number, r.Code, r.Severity, r.Behavior)
				}
			},
		},
	}
}

var errSendFailed = errors.New("send refused, see log")

func errUsage(c *ishell.Context) error {
	return fmt.Errorf("usage: %s", c.Cmd.Help)
}

// Command busmon attaches to a CAN interface and logs every registered
// frame in human-readable form. With -mqtt it also republishes each frame
// as JSON for off-device tooling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robomesh/comms.go/pkg/bridge/mqtt"
	"github.com/robomesh/comms.go/pkg/bus"
	"github.com/robomesh/comms.go/pkg/bus/canbus"
	"github.com/robomesh/comms.go/pkg/msgs"
)

var (
	canInterface = "can0"
	mqttURL      = ""
)

func init() {
	if val := os.Getenv("COMMS_CAN_INTERFACE"); val != "" {
		canInterface = val
	}
	if val := os.Getenv("COMMS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&canInterface, "can", canInterface, "CAN interface to monitor.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL to republish frames to.")
}

type frameRecord struct {
	ID      uint32  `json:"id"`
	Sender  string  `json:"sender"`
	Target  string  `json:"target"`
	Type    string  `json:"type"`
	Payload [8]byte `json:"payload"`
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	port := canbus.NewPort(canInterface)
	if err := port.Install(); err != nil {
		log.Fatalln(err)
	}
	defer port.Uninstall()

	var queue *mqtt.Queue
	if mqttURL != "" {
		var err error
		if queue, err = mqtt.NewQueueFromURL(mqttURL); err != nil {
			log.Fatalln(err)
		}
		if err = queue.Connect(); err != nil {
			log.Fatalln(err)
		}
		defer queue.Close()
	}

	for {
		frm, ok := port.TryReceive()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		info, ok := bus.Lookup(frm.ID)
		if !ok {
			log.Printf("0x%03x: unregistered id, payload %x", frm.ID, frm.Data)
			continue
		}
		log.Printf("0x%03x [%s -> %s] %s", frm.ID, info.Sender, info.Target, describe(info, frm))

		if queue != nil {
			record := frameRecord{
				ID:      frm.ID,
				Sender:  info.Sender.String(),
				Target:  info.Target.String(),
				Type:    info.Type.String(),
				Payload: frm.Data,
			}
			data, err := json.Marshal(record)
			if err != nil {
				log.Printf("marshal frame: %v", err)
				continue
			}
			if err := queue.Pub("frames", data); err != nil {
				log.Printf("publish frame: %v", err)
			}
		}
	}
}

func describe(info bus.Descriptor, frm bus.Frame) string {
	switch info.Type {
	case bus.ContentCommand:
		cmd, err := msgs.UnmarshalCommand(frm.Data)
		if err != nil {
			return fmt.Sprintf("bad command: %v", err)
		}
		switch cmd.Type {
		case msgs.CmdMotorControl:
			mc := msgs.MotorControlFromDetail(cmd.Detail)
			return fmt.Sprintf("command #%d motor-control %s motor=%d mode=%d value=%d",
				cmd.CommandID, mc.TargetNode, mc.Motor, mc.Mode, mc.Value)
		case msgs.CmdSensorToggle:
			st := msgs.SensorToggleFromDetail(cmd.Detail)
			return fmt.Sprintf("command #%d sensor-toggle %s sensor=%d enable=%t",
				cmd.CommandID, st.Target, st.SensorID, st.Enable)
		default:
			return fmt.Sprintf("command #%d %s target=%s", cmd.CommandID, cmd.Type, cmd.Target)
		}
	case bus.ContentHeartbeat:
		if info.Sender == bus.NodeHighLevel {
			req := msgs.UnmarshalHeartbeatRequest(frm.Data)
			return fmt.Sprintf("heartbeat request for %s", req.Target)
		}
		resp := msgs.UnmarshalHeartbeatResponse(frm.Data)
		return fmt.Sprintf("heartbeat response counter=%d", resp.Counter)
	case bus.ContentError:
		report := msgs.UnmarshalErrorReport(frm.Data)
		return fmt.Sprintf("error #%d %s severity=%s %s",
			report.Number, report.Code, report.Severity, report.Behavior)
	case bus.ContentSensorData:
		reading := msgs.UnmarshalSensorReading(frm.Data)
		return fmt.Sprintf("sensor %d value=%g", reading.SensorID, reading.Value)
	}
	return fmt.Sprintf("payload %x", frm.Data)
}

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/golang/glog"

	"github.com/robomesh/comms.go/pkg/comms"
	"github.com/robomesh/comms.go/pkg/msgs"
)

// Snapshot is one published view of the device, assembled on the control
// loop goroutine.
type Snapshot struct {
	Node    string               `json:"node"`
	Healthy bool                 `json:"healthy"`
	Sensors []comms.SensorStatus `json:"sensors"`
	Errors  []msgs.ErrorReport   `json:"errors"`
}

// Take assembles a snapshot from a controller. Call it from the goroutine
// that ticks the controller.
func Take(c *comms.Controller) Snapshot {
	return Snapshot{
		Node:    c.Me().String(),
		Healthy: c.Healthy(),
		Sensors: c.SensorStatuses(),
		Errors:  c.ActiveErrors(),
	}
}

// Bridge publishes snapshots to an MQTT broker. The control loop offers
// snapshots; the bridge goroutine owns the connection, so a slow broker
// never stalls a tick.
type Bridge struct {
	Queue *Queue

	snapshots chan Snapshot
}

// NewBridge creates a bridge publishing through the queue.
func NewBridge(queue *Queue) *Bridge {
	return &Bridge{Queue: queue, snapshots: make(chan Snapshot, 16)}
}

// Offer enqueues a snapshot for publishing, dropping it when the bridge is
// behind.
func (b *Bridge) Offer(s Snapshot) {
	select {
	case b.snapshots <- s:
	default:
		glog.V(2).Info("bridge behind, dropping snapshot")
	}
}

// Run implements comms.Runnable: connects (with retries) and publishes
// offered snapshots until the context ends.
func (b *Bridge) Run(ctx context.Context) error {
	err := retry.Do(b.Queue.Connect,
		retry.Attempts(5),
		retry.Delay(time.Second))
	if err != nil {
		return err
	}
	defer b.Queue.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-b.snapshots:
			b.publish(s)
		}
	}
}

func (b *Bridge) publish(s Snapshot) {
	if err := b.Queue.Pub(fmt.Sprintf("%s/health", s.Node), jsonBytes(s.Healthy)); err != nil {
		glog.Errorf("publish health: %v", err)
	}
	for _, sensor := range s.Sensors {
		topic := fmt.Sprintf("%s/sensors/%s/%d", s.Node, sensor.Sender, sensor.SensorID)
		if err := b.Queue.Pub(topic, jsonBytes(sensor)); err != nil {
			glog.Errorf("publish %s: %v", topic, err)
		}
	}
	if err := b.Queue.Pub(fmt.Sprintf("%s/errors", s.Node), jsonBytes(s.Errors)); err != nil {
		glog.Errorf("publish errors: %v", err)
	}
}

func jsonBytes(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("marshal snapshot: %v", err)
		return nil
	}
	return data
}

package comms

import (
	"context"
	"time"
)

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Loop drives a Controller from a host goroutine. The controller itself
// stays single-threaded: everything, the OnTick observer included, runs on
// the loop goroutine.
type Loop struct {
	Interval   time.Duration
	Controller *Controller

	// OnTick, when set, observes every consumed frame.
	OnTick func(TickResult)
}

// DefaultInterval is used when Loop.Interval is zero.
const DefaultInterval = time.Millisecond

// NewLoop creates a Loop around a controller.
func NewLoop(controller *Controller) *Loop {
	return &Loop{Interval: DefaultInterval, Controller: controller}
}

// Run implements Runnable. It ticks the controller until the context ends.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if res, ok := l.Controller.Tick(); ok && l.OnTick != nil {
				l.OnTick(res)
			}
		}
	}
}

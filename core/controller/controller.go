// Package controller wires the aggregator, allocator, hysteresis gate,
// device state tracker and command dispatcher into one control loop.
//
// A Controller is the single owner of the mutable control state. Samples and
// resync ticks are serialised behind one mutex; command completions only
// touch the dispatcher, which has its own synchronisation.
package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/loadshift/core/allocation"
	"github.com/kilianp07/loadshift/core/devicestate"
	"github.com/kilianp07/loadshift/core/dispatch"
	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/hysteresis"
	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/core/power"
	"github.com/kilianp07/loadshift/internal/eventbus"
)

// Submitter accepts device commands. *dispatch.CallDispatcher implements it.
type Submitter interface {
	Submit(req model.CommandRequest) (*dispatch.Call, error)
}

// Config groups the tuning of the control loop.
type Config struct {
	Power power.Config
	Gate  hysteresis.Config
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithBus publishes controller events on bus.
func WithBus(bus *eventbus.TypedBus[events.Event]) Option {
	return func(c *Controller) { c.bus = bus }
}

// Controller runs the load shifting loop.
type Controller struct {
	mu sync.Mutex

	agg     *power.Aggregator
	alloc   allocation.Allocator
	gate    *hysteresis.Gate
	tracker *devicestate.Tracker
	calls   Submitter
	catalog []model.Device

	bus *eventbus.TypedBus[events.Event]
	log logger.Logger
	now func() time.Time
}

// New builds a controller for catalog. The applied allocation starts with
// every managed device off, so the first evaluation asserts OFF on all of
// them.
func New(cfg Config, catalog []model.Device, calls Submitter, log logger.Logger, opts ...Option) (*Controller, error) {
	if calls == nil || log == nil {
		return nil, fmt.Errorf("controller: nil parameter provided to New")
	}
	for _, d := range catalog {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if !d.Managed() {
			log.Warnf("device %s has no expected power and will not be managed", d.Name)
		}
	}
	tracker, err := devicestate.NewTracker(catalog)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		agg:     power.NewAggregator(cfg.Power),
		alloc:   allocation.NewAllocator(cfg.Gate.HeadroomWatts),
		gate:    hysteresis.NewGate(cfg.Gate, allocation.AllOff(catalog)),
		tracker: tracker,
		calls:   calls,
		catalog: append([]model.Device(nil), catalog...),
		log:     log,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// HandleSample ingests one meter reading and runs an evaluation. Malformed
// samples are ignored. The only error returned is fatal: the allocation
// referenced a device the tracker does not know.
func (c *Controller) HandleSample(s model.PowerSample) error {
	if err := c.agg.Update(s.Channel, s.Watts); err != nil {
		c.log.Debugf("ignoring sample: %v", err)
		return nil
	}
	return c.Tick()
}

// Tick evaluates the current surplus without a new sample.
func (c *Controller) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	surplus := c.agg.Surplus()
	applied := c.gate.Current()
	uncontrolled := surplus - float64(applied.ExpectedPowerDraw)

	desired := c.alloc.Compute(uncontrolled, c.catalog)
	dec := c.gate.Evaluate(now, uncontrolled, desired)

	for _, p := range dec.Created {
		c.log.Infof("step %s to %dW pending until %s", p.Step, p.TargetDraw(), p.ActivationTime.Format(time.RFC3339))
	}
	for _, p := range dec.Cancelled {
		c.log.Infof("step %s to %dW cancelled", p.Step, p.TargetDraw())
	}
	if dec.Applied != nil {
		c.log.Infof("applying allocation %s", dec.Allocation)
		allocationsApplied.WithLabelValues(dec.Applied.Step.String()).Inc()
		c.publish(events.AllocationEvent{Allocation: dec.Allocation, Step: dec.Applied.Step, Time: now})
	}

	err := c.submit(dec.Allocation, now)

	pending := len(c.gate.Pending())
	surplusWatts.Set(surplus)
	expectedDrawWatts.Set(float64(dec.Allocation.ExpectedPowerDraw))
	pendingTransitions.Set(float64(pending))
	c.publish(events.PowerEvent{
		SurplusWatts:      surplus,
		UncontrolledWatts: uncontrolled,
		ExpectedDrawWatts: dec.Allocation.ExpectedPowerDraw,
		Pending:           pending,
		Time:              now,
	})
	return err
}

// submit pushes every assignment of alloc through the tracker and hands the
// surviving commands to the dispatcher.
func (c *Controller) submit(alloc model.Allocation, now time.Time) error {
	for _, as := range alloc.Assignments {
		d, err := c.tracker.ShouldSend(as.Device, as.Direction)
		if errors.Is(err, devicestate.ErrInvalidDirection) {
			c.log.Errorf("not sending: %v", err)
			continue
		}
		if err != nil {
			c.log.Errorf("allocation references %s: %v", as.Device, err)
			return fmt.Errorf("controller: %w", err)
		}
		if !d.Send {
			c.log.Tracef("device %s already %s", as.Device, as.Direction)
			continue
		}
		req := model.CommandRequest{Device: d.Device, Direction: as.Direction, Resync: d.Resync, Submitted: now}
		if _, err := c.calls.Submit(req); err != nil {
			// Never issued: the presumed state must not change.
			c.tracker.Rollback(d)
			c.log.Errorf("submit %s %s: %v", as.Device, as.Direction, err)
			continue
		}
		if d.Resync {
			c.log.Debugf("re-asserting %s %s", as.Device, as.Direction)
		} else {
			c.log.Infof("switching %s %s", as.Device, as.Direction)
		}
		c.publish(events.NewStateChangeEvent(as.Device, as.Direction, d.Resync, alloc.ExpectedPowerDraw, now))
	}
	return nil
}

// Resync flags every device so that the next evaluation re-asserts its
// state.
func (c *Controller) Resync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.MarkAllForResync()
	c.log.Debugf("all devices flagged for resync")
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	SurplusWatts float64
	Applied      model.Allocation
	Pending      []model.PendingTransition
	Devices      []model.Device
	Channels     []string
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SurplusWatts: c.agg.Surplus(),
		Applied:      c.gate.Current(),
		Pending:      c.gate.Pending(),
		Devices:      c.tracker.Devices(),
		Channels:     c.agg.Channels(),
	}
}

func (c *Controller) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

// CompletionPublisher returns a dispatcher completion callback publishing
// a CommandEvent on bus.
func CompletionPublisher(bus *eventbus.TypedBus[events.Event]) dispatch.CompletionFunc {
	return func(r model.CommandResult) {
		if bus != nil {
			bus.Publish(events.CommandEvent{Result: r})
		}
	}
}

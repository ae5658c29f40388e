// Package hysteresis decides when a newly computed allocation is allowed to
// replace the applied one.
//
// Candidate allocations are tracked per distinct expected power draw. A
// candidate is promoted only after it stayed justified for the configured
// dwell time, and it is dropped on the first evaluation where the live
// signal stops justifying its target. A step-down that falls due while the
// applied draw is affordable again is dropped instead of applied. Distinct
// allocations that share the same total draw are coalesced into one
// candidate.
package hysteresis

import (
	"sort"
	"time"

	"github.com/kilianp07/loadshift/core/model"
)

// Config holds the gate thresholds.
type Config struct {
	HeadroomWatts int
	// SpanWatts is the hysteresis band. Half of it is added to the headroom
	// before stepping up and removed from it before stepping down.
	SpanWatts     int
	IncreaseDelay time.Duration
	DecreaseDelay time.Duration
}

// Decision is the outcome of one evaluation.
type Decision struct {
	// Allocation is the applied allocation after the evaluation. It is
	// submitted to the device layer whether or not it changed.
	Allocation model.Allocation
	// Applied is set when a pending transition was promoted.
	Applied   *model.PendingTransition
	Created   []model.PendingTransition
	Cancelled []model.PendingTransition
}

// Gate is the debounce/hysteresis state machine. It is not safe for
// concurrent use; callers serialise Evaluate.
type Gate struct {
	cfg     Config
	current model.Allocation
	pending map[model.Watts]model.PendingTransition
}

// NewGate returns a gate whose applied allocation is initial.
func NewGate(cfg Config, initial model.Allocation) *Gate {
	return &Gate{
		cfg:     cfg,
		current: initial,
		pending: make(map[model.Watts]model.PendingTransition),
	}
}

// Current returns the applied allocation.
func (g *Gate) Current() model.Allocation { return g.current }

// Pending returns the pending transitions ordered by target draw.
func (g *Gate) Pending() []model.PendingTransition {
	out := make([]model.PendingTransition, 0, len(g.pending))
	for _, p := range g.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDraw() < out[j].TargetDraw() })
	return out
}

// Evaluate runs one tick of the state machine. uncontrolled is the surplus
// with the applied allocation's draw removed, and desired is the allocation
// computed from it.
func (g *Gate) Evaluate(now time.Time, uncontrolled float64, desired model.Allocation) Decision {
	var dec Decision
	want := desired.ExpectedPowerDraw

	if want != g.current.ExpectedPowerDraw {
		if p, ok := g.pending[want]; ok {
			p.Target = desired
			g.pending[want] = p
		} else {
			step := model.StepDown
			delay := g.cfg.DecreaseDelay
			if want > g.current.ExpectedPowerDraw {
				step = model.StepUp
				delay = g.cfg.IncreaseDelay
			}
			p := model.PendingTransition{
				Target:         desired,
				Step:           step,
				CreatedAt:      now,
				ActivationTime: now.Add(delay),
			}
			if g.valid(step, want, want, uncontrolled) && g.ready(p, want, uncontrolled) {
				g.pending[want] = p
				dec.Created = append(dec.Created, p)
			}
		}
	}

	var due []model.PendingTransition
	for _, p := range g.Pending() {
		if !g.valid(p.Step, p.TargetDraw(), want, uncontrolled) {
			delete(g.pending, p.TargetDraw())
			dec.Cancelled = append(dec.Cancelled, p)
			continue
		}
		if now.Before(p.ActivationTime) {
			continue
		}
		if !g.ready(p, want, uncontrolled) {
			delete(g.pending, p.TargetDraw())
			dec.Cancelled = append(dec.Cancelled, p)
			continue
		}
		due = append(due, p)
	}

	if p, ok := pick(due, want); ok {
		delete(g.pending, p.TargetDraw())
		g.current = p.Target
		dec.Applied = &p
		dec.Cancelled = append(dec.Cancelled, g.dropStale()...)
	}
	dec.Allocation = g.current
	return dec
}

// valid reports whether the live signal still supports the transition
// towards target. It only looks at the candidate's own target, so step-up and
// step-down candidates can be pending together.
func (g *Gate) valid(step model.Step, target, want model.Watts, uncontrolled float64) bool {
	if target == g.current.ExpectedPowerDraw {
		return false
	}
	half := float64(g.cfg.SpanWatts) / 2
	available := -uncontrolled
	headroom := float64(g.cfg.HeadroomWatts)
	if step == model.StepUp {
		return want >= target && float64(target)+headroom+half <= available
	}
	return float64(target)+headroom-half <= available
}

// ready reports whether a due transition may apply now. A step-down needs
// the applied draw to be out of reach, half a span below the headroom, and
// must not shed more than the desired allocation does. A due transition that
// is not ready is dropped.
func (g *Gate) ready(p model.PendingTransition, want model.Watts, uncontrolled float64) bool {
	if p.Step == model.StepUp {
		return true
	}
	half := float64(g.cfg.SpanWatts) / 2
	headroom := float64(g.cfg.HeadroomWatts)
	return want <= p.TargetDraw() && float64(g.current.ExpectedPowerDraw)+headroom-half > -uncontrolled
}

// dropStale removes transitions whose direction no longer matches the
// applied allocation.
func (g *Gate) dropStale() []model.PendingTransition {
	var dropped []model.PendingTransition
	cur := g.current.ExpectedPowerDraw
	for draw, p := range g.pending {
		up := draw > cur
		if draw == cur || up != (p.Step == model.StepUp) {
			delete(g.pending, draw)
			dropped = append(dropped, p)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i].TargetDraw() < dropped[j].TargetDraw() })
	return dropped
}

// pick selects the transition to apply: the one targeting the desired draw
// if it is due, otherwise the due transition closest to it.
func pick(due []model.PendingTransition, want model.Watts) (model.PendingTransition, bool) {
	if len(due) == 0 {
		return model.PendingTransition{}, false
	}
	best := due[0]
	for _, p := range due[1:] {
		if distance(p.TargetDraw(), want) < distance(best.TargetDraw(), want) {
			best = p
		}
	}
	return best, true
}

func distance(a, b model.Watts) model.Watts {
	if a > b {
		return a - b
	}
	return b - a
}

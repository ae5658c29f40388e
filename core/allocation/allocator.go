// Package allocation computes which devices should be switched on for a
// given surplus.
package allocation

import (
	"sort"

	"github.com/kilianp07/loadshift/core/model"
)

// Allocator performs a single-pass greedy bin-fill over the device catalog,
// highest expected power first.
type Allocator struct {
	// HeadroomWatts is the export margin that must remain after switching
	// devices on.
	HeadroomWatts int
}

// NewAllocator returns an allocator using the given headroom.
func NewAllocator(headroom int) Allocator {
	return Allocator{HeadroomWatts: headroom}
}

// Compute returns the ideal allocation for surplus. The result depends only
// on its inputs: identical surplus, catalog order and headroom always yield
// the identical allocation.
//
// A device is switched on when remaining+power <= -headroom, after which its
// power is added to remaining. Devices with no expected power are left out
// of the allocation entirely.
func (a Allocator) Compute(surplus float64, catalog []model.Device) model.Allocation {
	managed := make([]model.Device, 0, len(catalog))
	for _, d := range catalog {
		if d.Managed() {
			managed = append(managed, d)
		}
	}

	order := make([]int, len(managed))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return managed[order[i]].ExpectedPowerWatts > managed[order[j]].ExpectedPowerWatts
	})

	on := make([]bool, len(managed))
	remaining := surplus
	limit := -float64(a.HeadroomWatts)
	var draw model.Watts
	for _, idx := range order {
		p := managed[idx].ExpectedPowerWatts
		if remaining+float64(p) <= limit {
			on[idx] = true
			remaining += float64(p)
			draw += model.Watts(p)
		}
	}

	res := model.Allocation{
		Assignments:       make([]model.Assignment, len(managed)),
		ExpectedPowerDraw: draw,
	}
	for i, d := range managed {
		dir := model.DirectionOff
		if on[i] {
			dir = model.DirectionOn
		}
		res.Assignments[i] = model.Assignment{Device: d.Name, Direction: dir}
	}
	return res
}

// AllOff returns the allocation switching every managed device off.
func AllOff(catalog []model.Device) model.Allocation {
	var res model.Allocation
	for _, d := range catalog {
		if d.Managed() {
			res.Assignments = append(res.Assignments, model.Assignment{Device: d.Name, Direction: model.DirectionOff})
		}
	}
	return res
}

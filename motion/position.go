package motion

import "stepcore/core"

// PositionMirror is the authoritative machine-coordinate step counter.
// CountPosition is mutated only from ISR context; thread-context reads
// and writes go through the Get/Set methods, which mask the stepper
// interrupt for the duration of the access.
type PositionMirror struct {
	countPosition  [NumAxes]int32
	countDirection [NumAxes]int8
	stepsPerUnit   [NumAxes]float64
}

// NewPositionMirror creates a mirror with count_direction defaulting to
// +1 on every axis, matching the source's initializer.
func NewPositionMirror(stepsPerUnit [NumAxes]float64) *PositionMirror {
	pm := &PositionMirror{stepsPerUnit: stepsPerUnit}
	for a := range pm.countDirection {
		pm.countDirection[a] = 1
	}
	return pm
}

// SetDirection is called only from the ISR (via Router.ApplyDirection)
// and needs no critical section: the ISR is the sole writer.
func (pm *PositionMirror) SetDirection(axis Axis, negative bool) {
	if negative {
		pm.countDirection[axis] = -1
	} else {
		pm.countDirection[axis] = 1
	}
}

// Direction returns the last-applied sign for axis; ISR-only.
func (pm *PositionMirror) Direction(axis Axis) int8 {
	return pm.countDirection[axis]
}

// Advance is called once per Bresenham step start, from the ISR.
func (pm *PositionMirror) Advance(axis Axis) {
	pm.countPosition[axis] += int32(pm.countDirection[axis])
}

// stepsUnsafe reads count_position without a critical section — for
// ISR-internal callers (endstop trigger capture) that are already the
// sole writer and do not need to synchronize with themselves.
func (pm *PositionMirror) stepsUnsafe(axis Axis) int32 {
	return pm.countPosition[axis]
}

// SetAll sets every axis position under a critical section — st_set_position.
func (pm *PositionMirror) SetAll(steps [NumAxes]int32) {
	state := core.DisableStepperIRQ()
	pm.countPosition = steps
	core.RestoreStepperIRQ(state)
}

// SetAxis sets a single axis position under a critical section —
// st_set_e_position generalized to any axis.
func (pm *PositionMirror) SetAxis(axis Axis, steps int32) {
	state := core.DisableStepperIRQ()
	pm.countPosition[axis] = steps
	core.RestoreStepperIRQ(state)
}

// Get reads a single axis position under a critical section — st_get_position.
func (pm *PositionMirror) Get(axis Axis) int32 {
	state := core.DisableStepperIRQ()
	v := pm.countPosition[axis]
	core.RestoreStepperIRQ(state)
	return v
}

// GetMM reads a single axis position converted to real units — st_get_position_mm.
func (pm *PositionMirror) GetMM(axis Axis) float64 {
	return float64(pm.Get(axis)) / pm.stepsPerUnit[axis]
}

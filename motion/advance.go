package motion

import "sync/atomic"

// Advance is the pressure-advance (linear advance) sub-engine:
// a second, independent ~10kHz timer ISR that consumes an e_steps
// accumulator built up by the main stepper ISR's Bresenham pass over the
// E axis, instead of the main ISR pulsing the extruder motor directly.
// This decouples extruder step timing from the X/Y/Z trapezoid so the
// advance term can smooth flow-rate changes without perturbing the
// carriage move.
//
// State is kept per extruder index (0..MaxExtruders-1): a block started
// on extruder A leaves outstanding e_steps that must still drain onto
// A's own motor even if a later block switches the active extruder to B
// before A's accumulator empties.
type Advance struct {
	hal     HAL
	router  *Router
	Enabled bool

	IntervalTicks uint32 // fixed ~10kHz period, configured at construction

	activeExtruder uint8 // which index the current block's Bresenham pass targets

	eSteps       [MaxExtruders]int32 // atomic: shared with the main ISR's Bresenham pass
	oldAdvance   [MaxExtruders]int32
	advance      [MaxExtruders]int32
	finalAdvance [MaxExtruders]int32
	advanceRate  [MaxExtruders]int32
	eDirNegative [MaxExtruders]bool
}

func NewAdvance(hal HAL, router *Router, intervalTicks uint32) *Advance {
	return &Advance{hal: hal, router: router, IntervalTicks: intervalTicks}
}

// ResetForBlock primes the integrator endpoints for a freshly started
// block, mirroring the initial_advance/final_advance/advance_rate fields
// stashed on the planner block, against block.ActiveExtruder's own slot.
func (a *Advance) ResetForBlock(block *Block) {
	if !a.Enabled {
		return
	}
	idx := block.ActiveExtruder
	a.activeExtruder = idx
	a.advance[idx] = block.InitialAdvance
	a.finalAdvance[idx] = block.FinalAdvance
	a.advanceRate[idx] = block.AdvanceRate
	a.eDirNegative[idx] = block.DirectionBits&DirBitE != 0
}

// AccumulateEStep is called from the main ISR's Bresenham pass in place
// of a direct E step pulse when advance is enabled, crediting the
// current block's own extruder.
func (a *Advance) AccumulateEStep() {
	idx := a.activeExtruder
	if a.eDirNegative[idx] {
		atomic.AddInt32(&a.eSteps[idx], -1)
	} else {
		atomic.AddInt32(&a.eSteps[idx], 1)
	}
}

// StepAdvance updates the extra pressure-advance step budget for the
// current tick of the main ISR, against the current block's extruder
// (advance ramps toward finalAdvance at advanceRate per accel/decel
// tick, same recurrence shape as the main trapezoid but over a much
// smaller range).
func (a *Advance) StepAdvance(accelerating, decelerating bool) {
	if !a.Enabled {
		return
	}
	idx := a.activeExtruder
	switch {
	case accelerating:
		a.advance[idx] += a.advanceRate[idx]
		if a.advance[idx] > a.finalAdvance[idx] {
			a.advance[idx] = a.finalAdvance[idx]
		}
	case decelerating:
		a.advance[idx] -= a.advanceRate[idx]
		if a.advance[idx] < a.finalAdvance[idx] {
			a.advance[idx] = a.finalAdvance[idx]
		}
	}
	steps := (a.advance[idx] >> 8) - (a.oldAdvance[idx] >> 8)
	a.oldAdvance[idx] = a.advance[idx]
	if steps == 0 {
		return
	}
	atomic.AddInt32(&a.eSteps[idx], steps)
}

// Tick is the ~10kHz extruder-stepping ISR: it drains one step from
// every extruder index whose e_steps is nonzero, one physical pulse per
// extruder per call, and reprograms itself. Draining every index each
// tick (not just the currently active one) is what lets an extruder
// that lost ActiveExtruder mid-drain keep stepping on its own motor.
// The direction pin is set from the sign of the balance being drained
// on every pulse, not just once per block, since a leftover balance can
// be drained on an extruder ApplyDirection never touched this block.
func (a *Advance) Tick() {
	for idx := uint8(0); idx < MaxExtruders; idx++ {
		steps := atomic.LoadInt32(&a.eSteps[idx])
		switch {
		case steps > 0:
			a.router.SetExtruderDir(idx, false)
			a.router.StepExtruder(idx, true)
			a.router.StepExtruder(idx, false)
			atomic.AddInt32(&a.eSteps[idx], -1)
		case steps < 0:
			a.router.SetExtruderDir(idx, true)
			a.router.StepExtruder(idx, true)
			a.router.StepExtruder(idx, false)
			atomic.AddInt32(&a.eSteps[idx], 1)
		}
	}
	a.hal.ScheduleNextTick(a.IntervalTicks)
}

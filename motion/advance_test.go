package motion_test

import (
	"testing"

	"stepcore/hal/sim"
	"stepcore/motion"
)

func TestAdvanceAccumulateEStepFollowsDirection(t *testing.T) {
	hal := sim.New(1_000_000, 4)
	router := motion.NewRouter(hal, motion.Capabilities{})
	adv := motion.NewAdvance(hal, router, 100)
	adv.Enabled = true
	adv.ResetForBlock(&motion.Block{DirectionBits: 0})
	adv.AccumulateEStep()
	adv.AccumulateEStep()

	// Draining via Tick should produce two positive-direction E pulses.
	adv.Tick()
	adv.Tick()
	if got := hal.StepCount(motion.MotorE0); got != 2 {
		t.Errorf("MotorE0 steps = %d, want 2", got)
	}
	if hal.DirNegative(motion.MotorE0) {
		t.Error("MotorE0 direction reported negative for a positive E move")
	}
}

func TestAdvanceAccumulateEStepNegativeDirection(t *testing.T) {
	hal := sim.New(1_000_000, 4)
	router := motion.NewRouter(hal, motion.Capabilities{})
	adv := motion.NewAdvance(hal, router, 100)
	adv.Enabled = true
	adv.ResetForBlock(&motion.Block{DirectionBits: motion.DirBitE})
	adv.AccumulateEStep()

	adv.Tick()
	if got := hal.StepCount(motion.MotorE0); got != 1 {
		t.Errorf("MotorE0 steps = %d, want 1", got)
	}
}

func TestAdvanceTickDrainsOneStepAtATime(t *testing.T) {
	hal := sim.New(1_000_000, 4)
	router := motion.NewRouter(hal, motion.Capabilities{})
	adv := motion.NewAdvance(hal, router, 100)
	adv.Enabled = true
	adv.ResetForBlock(&motion.Block{})
	adv.AccumulateEStep()
	adv.AccumulateEStep()
	adv.AccumulateEStep()

	adv.Tick()
	if got := hal.StepCount(motion.MotorE0); got != 1 {
		t.Fatalf("after one Tick: MotorE0 steps = %d, want 1", got)
	}
	adv.Tick()
	adv.Tick()
	if got := hal.StepCount(motion.MotorE0); got != 3 {
		t.Fatalf("after three Ticks: MotorE0 steps = %d, want 3", got)
	}
	// The accumulator should be drained: a further Tick with no new
	// accumulation must not pulse again.
	adv.Tick()
	if got := hal.StepCount(motion.MotorE0); got != 3 {
		t.Errorf("Tick with an empty accumulator stepped again: %d, want 3", got)
	}
}

func TestAdvanceDrainsToOriginatingExtruderAfterActiveExtruderChanges(t *testing.T) {
	hal := sim.New(1_000_000, 4)
	router := motion.NewRouter(hal, motion.Capabilities{})
	adv := motion.NewAdvance(hal, router, 100)
	adv.Enabled = true

	router.ActiveExtruder = 0
	// Extruder 0 is draining a negative-direction balance.
	adv.ResetForBlock(&motion.Block{ActiveExtruder: 0, DirectionBits: motion.DirBitE})
	adv.AccumulateEStep()
	adv.AccumulateEStep()

	// The active extruder switches to 1, with a positive-direction
	// balance, before extruder 0's accumulator has fully drained.
	router.ActiveExtruder = 1
	adv.ResetForBlock(&motion.Block{ActiveExtruder: 1, DirectionBits: 0})
	adv.AccumulateEStep()

	adv.Tick()

	if got := hal.StepCount(motion.MotorE0); got != 1 {
		t.Errorf("MotorE0 steps after one Tick = %d, want 1 (extruder 0's own leftover step)", got)
	}
	if got := hal.StepCount(motion.MotorE1); got != 1 {
		t.Errorf("MotorE1 steps after one Tick = %d, want 1 (extruder 1's new step)", got)
	}
	// Extruder 0's direction pin must follow its own drained balance
	// even though ActiveExtruder has already moved on to extruder 1 and
	// ApplyDirection was never called for extruder 0 this block.
	if !hal.DirNegative(motion.MotorE0) {
		t.Error("MotorE0 direction not set negative while draining its own negative balance")
	}
	if hal.DirNegative(motion.MotorE1) {
		t.Error("MotorE1 direction set negative for a positive-direction balance")
	}

	adv.Tick()
	if got := hal.StepCount(motion.MotorE0); got != 2 {
		t.Errorf("MotorE0 steps after two Ticks = %d, want 2 (extruder 0's accumulator fully drained)", got)
	}
	if got := hal.StepCount(motion.MotorE1); got != 1 {
		t.Errorf("MotorE1 steps after two Ticks = %d, want 1 (extruder 1's accumulator was already empty)", got)
	}
}

func TestAdvanceDisabledDoesNothing(t *testing.T) {
	hal := sim.New(1_000_000, 4)
	router := motion.NewRouter(hal, motion.Capabilities{})
	adv := motion.NewAdvance(hal, router, 100)
	adv.ResetForBlock(&motion.Block{InitialAdvance: 500, FinalAdvance: 2000, AdvanceRate: 10})
	adv.StepAdvance(true, false)
	if hal.StepCount(motion.MotorE0) != 0 {
		t.Error("disabled Advance pulsed the extruder motor")
	}
}

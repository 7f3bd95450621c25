package motion

import "testing"

// Diagonal XY move, steps=(3,4,0,0), step_event_count=4: cumulative
// pulses on each axis must track floor(completed*steps/total) within
// +-1 at every tick, and total pulses must equal the axis's step count.
func TestTracerDiagonal3_4_5(t *testing.T) {
	tr := &Tracer{}
	tr.ResetForBlock(4)

	var cumX, cumY uint32
	for k := uint32(1); k <= 4; k++ {
		tr.StepEventsCompleted++
		if tr.StepAxis(AxisX, 3, 4) {
			cumX++
		}
		if tr.StepAxis(AxisY, 4, 4) {
			cumY++
		}
		// Bresenham fairness: cumulative pulses on an axis track
		// floor(completed*steps/total) within +-1.
		expX := k * 3 / 4
		if diff := int64(cumX) - int64(expX); diff > 1 || diff < -1 {
			t.Errorf("tick %d: cumulative X = %d, want within 1 of %d", k, cumX, expX)
		}
		expY := k * 4 / 4
		if diff := int64(cumY) - int64(expY); diff > 1 || diff < -1 {
			t.Errorf("tick %d: cumulative Y = %d, want within 1 of %d", k, cumY, expY)
		}
	}
	if cumX != 3 {
		t.Errorf("total X pulses = %d, want 3", cumX)
	}
	if cumY != 4 {
		t.Errorf("total Y pulses = %d, want 4", cumY)
	}
}

// A dominant axis (steps == stepEventCount) pulses on every tick.
func TestTracerDominantAxisPulsesEveryTick(t *testing.T) {
	tr := &Tracer{}
	tr.ResetForBlock(10)
	for i := 0; i < 10; i++ {
		if !tr.StepAxis(AxisX, 10, 10) {
			t.Fatalf("tick %d: dominant axis did not pulse", i)
		}
	}
}

// A zero-step axis never pulses.
func TestTracerZeroStepsNeverPulses(t *testing.T) {
	tr := &Tracer{}
	tr.ResetForBlock(10)
	for i := 0; i < 10; i++ {
		if tr.StepAxis(AxisY, 0, 10) {
			t.Fatalf("tick %d: zero-step axis pulsed", i)
		}
	}
}

// Bresenham fairness holds generally, not just for the 3-4-5 case.
func TestTracerFairnessGeneral(t *testing.T) {
	const total = uint32(37)
	for _, steps := range []uint32{0, 1, 5, 17, 36, 37} {
		tr := &Tracer{}
		tr.ResetForBlock(total)
		var cum uint32
		for k := uint32(1); k <= total; k++ {
			if tr.StepAxis(AxisX, steps, total) {
				cum++
			}
			exp := k * steps / total
			diff := int64(cum) - int64(exp)
			if diff > 1 || diff < -1 {
				t.Fatalf("steps=%d tick=%d: cumulative=%d, want within 1 of %d", steps, k, cum, exp)
			}
		}
		if cum != steps {
			t.Errorf("steps=%d: total pulses = %d, want %d", steps, cum, steps)
		}
	}
}

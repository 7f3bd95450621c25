package motion_test

import (
	"testing"

	"stepcore/motion"
)

// set_position/get_position must round-trip exactly with no
// intervening motion, on every axis.
func TestPositionMirrorSetGetRoundTrip(t *testing.T) {
	pm := motion.NewPositionMirror([motion.NumAxes]float64{80, 80, 400, 100})
	want := [motion.NumAxes]int32{123, -45, 6789, -1}
	pm.SetAll(want)
	for a := motion.Axis(0); a < motion.NumAxes; a++ {
		if got := pm.Get(a); got != want[a] {
			t.Errorf("Get(%d) = %d, want %d", a, got, want[a])
		}
	}
}

func TestPositionMirrorSetAxisOnlyTouchesThatAxis(t *testing.T) {
	pm := motion.NewPositionMirror([motion.NumAxes]float64{1, 1, 1, 1})
	pm.SetAll([motion.NumAxes]int32{1, 2, 3, 4})
	pm.SetAxis(motion.AxisY, 99)
	if got := pm.Get(motion.AxisY); got != 99 {
		t.Errorf("Get(Y) = %d, want 99", got)
	}
	if got := pm.Get(motion.AxisX); got != 1 {
		t.Errorf("Get(X) = %d, want unchanged 1", got)
	}
}

func TestPositionMirrorGetMMConvertsByStepsPerUnit(t *testing.T) {
	pm := motion.NewPositionMirror([motion.NumAxes]float64{80, 80, 400, 100})
	pm.SetAxis(motion.AxisZ, 2000)
	if got := pm.GetMM(motion.AxisZ); got != 5 {
		t.Errorf("GetMM(Z) = %v, want 5", got)
	}
}

func TestPositionMirrorAdvanceFollowsDirection(t *testing.T) {
	pm := motion.NewPositionMirror([motion.NumAxes]float64{1, 1, 1, 1})
	pm.SetDirection(motion.AxisX, false)
	pm.Advance(motion.AxisX)
	pm.Advance(motion.AxisX)
	if got := pm.Get(motion.AxisX); got != 2 {
		t.Errorf("Get(X) after two positive advances = %d, want 2", got)
	}
	pm.SetDirection(motion.AxisX, true)
	pm.Advance(motion.AxisX)
	if got := pm.Get(motion.AxisX); got != 1 {
		t.Errorf("Get(X) after direction flip and one negative advance = %d, want 1", got)
	}
}

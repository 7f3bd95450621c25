package report_test

import (
	"testing"

	"stepcore/motion"
	"stepcore/report"
)

func TestFormatEndstopHitOnlyIncludesLatchedAxes(t *testing.T) {
	get := func(axis motion.Axis) float64 {
		switch axis {
		case motion.AxisX:
			return 12.5
		case motion.AxisZ:
			return 200
		default:
			return 0
		}
	}

	got := report.FormatEndstopHit(motion.HitBitX, get)
	want := "echo: endstops hit: X:12.500"
	if got != want {
		t.Errorf("FormatEndstopHit(X only) = %q, want %q", got, want)
	}

	got = report.FormatEndstopHit(motion.HitBitX|motion.HitBitZ, get)
	want = "echo: endstops hit: X:12.500 Z:200.000"
	if got != want {
		t.Errorf("FormatEndstopHit(X+Z) = %q, want %q", got, want)
	}

	got = report.FormatEndstopHit(0, get)
	want = "echo: endstops hit:"
	if got != want {
		t.Errorf("FormatEndstopHit(none) = %q, want %q", got, want)
	}
}

func TestFormatEndstopHitZProbeUsesZPosition(t *testing.T) {
	get := func(axis motion.Axis) float64 { return 42 }
	got := report.FormatEndstopHit(motion.HitBitZProbe, get)
	want := "echo: endstops hit: Z_PROBE:42.000"
	if got != want {
		t.Errorf("FormatEndstopHit(Z_PROBE) = %q, want %q", got, want)
	}
}

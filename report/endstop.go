// Package report formats and broadcasts engine status for the host
// side: the classic serial "endstops hit" line, and a WebSocket status
// stream in the style of AndySze-klipper's moonraker package.
package report

import (
	"fmt"
	"strings"

	"stepcore/motion"
)

// FormatEndstopHit renders the sticky endstop bitmask, with the position
// get returns for each latched axis, into the firmware's traditional
// serial line, e.g. "echo: endstops hit: X:12.500 Y:0.000 Z:200.000" —
// with a trailing "Z_PROBE:" segment only when that bit is set.
// checkHitEndstops in the original firmware writes exactly this line
// before halting.
func FormatEndstopHit(bits uint32, get func(motion.Axis) float64) string {
	var b strings.Builder
	b.WriteString("echo: endstops hit:")
	if bits&motion.HitBitX != 0 {
		fmt.Fprintf(&b, " X:%.3f", get(motion.AxisX))
	}
	if bits&motion.HitBitY != 0 {
		fmt.Fprintf(&b, " Y:%.3f", get(motion.AxisY))
	}
	if bits&motion.HitBitZ != 0 {
		fmt.Fprintf(&b, " Z:%.3f", get(motion.AxisZ))
	}
	if bits&motion.HitBitZProbe != 0 {
		fmt.Fprintf(&b, " Z_PROBE:%.3f", get(motion.AxisZ))
	}
	return b.String()
}

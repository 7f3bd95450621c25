package motion

import "sync/atomic"

// BabystepAxis picks which physical axis a babystep nudge steps. Delta
// machines route a Z babystep to all three towers at once; everything
// else routes 1:1 to its own motor.
type BabystepAxis uint8

const (
	BabystepX BabystepAxis = iota
	BabystepY
	BabystepZ
)

// Babystepper is an ISR-safe single-step nudge
// requested from thread context (typically a UI encoder) and applied on
// the next stepper tick. It deliberately does not touch PositionMirror —
// the nudge is a live mechanical offset, not a commanded move, so the
// planner's notion of position and the physical position are allowed to
// drift apart by design. It does read PositionMirror's last-applied
// direction, purely to save and restore the physical direction pin
// around the nudge.
type Babystepper struct {
	hal     HAL
	pm      *PositionMirror
	isDelta bool

	// invert holds each axis's babystep polarity, XORed into the
	// requested sign before it reaches the direction pin — distinct
	// from the ordinary per-axis direction-pin inversion the HAL
	// backend already owns, matching the firmware's separate
	// BABYSTEP_INVERT_* build constants.
	invert [3]bool

	pending int32 // atomic: signed step request queued by RequestStep
	axis    BabystepAxis
}

func NewBabystepper(hal HAL, pm *PositionMirror, isDelta bool, invertX, invertY, invertZ bool) *Babystepper {
	return &Babystepper{hal: hal, pm: pm, isDelta: isDelta, invert: [3]bool{invertX, invertY, invertZ}}
}

// RequestStep queues one step in the given direction on axis, called
// from thread context. Only one request may be outstanding; callers
// should wait for it to drain (Pending() == 0) before issuing another.
func (b *Babystepper) RequestStep(axis BabystepAxis, negative bool) {
	b.axis = axis
	if negative {
		atomic.StoreInt32(&b.pending, -1)
	} else {
		atomic.StoreInt32(&b.pending, 1)
	}
}

// Pending reports whether a nudge is still waiting to be applied.
func (b *Babystepper) Pending() int32 {
	return atomic.LoadInt32(&b.pending)
}

// Apply is called from the stepper ISR once per tick; it applies at
// most one pending nudge and clears it. The direction pin for every
// motor it touches is saved before the nudge and restored after, so a
// later block that happens to share the pre-babystep direction bits
// isn't left running the wrong way just because the ISR only re-latches
// direction on a change (see Engine.Tick's DirectionBits != OutBits
// check).
func (b *Babystepper) Apply() {
	dir := atomic.SwapInt32(&b.pending, 0)
	if dir == 0 {
		return
	}
	negative := (dir < 0) != b.invert[b.axis]

	if b.isDelta && b.axis == BabystepZ {
		savedX := b.pm.Direction(AxisX) < 0
		savedY := b.pm.Direction(AxisY) < 0
		savedZ := b.pm.Direction(AxisZ) < 0

		b.hal.SetDir(MotorX, negative)
		b.hal.SetDir(MotorY, negative)
		b.hal.SetDir(MotorZ, negative)
		pulseAll(b.hal, MotorX, MotorY, MotorZ)
		b.hal.SetDir(MotorX, savedX)
		b.hal.SetDir(MotorY, savedY)
		b.hal.SetDir(MotorZ, savedZ)
		return
	}

	motor, axis := babystepTarget(b.axis)
	saved := b.pm.Direction(axis) < 0
	b.hal.SetDir(motor, negative)
	pulseAll(b.hal, motor)
	b.hal.SetDir(motor, saved)
}

func babystepTarget(axis BabystepAxis) (Motor, Axis) {
	switch axis {
	case BabystepX:
		return MotorX, AxisX
	case BabystepY:
		return MotorY, AxisY
	default:
		return MotorZ, AxisZ
	}
}

// pulseAll drives every motor's rising edge, then every motor's falling
// edge — never a motor's own falling edge before another motor in the
// same call has had its rising edge, matching the source ISR's two-block
// STEP_START/STEP_END structure.
func pulseAll(hal HAL, motors ...Motor) {
	for _, m := range motors {
		hal.SetStep(m, true)
	}
	for _, m := range motors {
		hal.SetStep(m, false)
	}
}

package motion

// Capabilities selects the compile-time build options this firmware
// supports: which optional motor/endstop fan-outs are wired on this
// machine. A single Router instance is configured once at startup from
// these flags (small strategy composition, not runtime if-chains on the
// hot path).
type Capabilities struct {
	CoreXY bool

	DualXCarriage bool // second X motor on its own carriage
	XHomeDir      int8 // +1 or -1, home direction for the primary X carriage
	X2HomeDir     int8 // home direction for the second carriage

	DualYStepperDrivers bool
	InvertY2VsY         bool // Y2 direction is inverted relative to Y

	DualZStepperDrivers bool
	DualZEndstops       bool // independent Z/Z2 endstops (implies DualZStepperDrivers)
	ZHomeDir            int8 // +1 or -1

	// ZLateEnable defers energizing the Z motor until a block that
	// actually moves Z is picked up, instead of holding it enabled the
	// whole time: some Z drivers need a short wake delay after being
	// enabled before they can be trusted to step correctly.
	ZLateEnable bool

	NumExtruders uint8 // 1..4
}

// Router fans a logical (axis, level) out to physical motor pins per
// Capabilities: dual-X carriage duplication/selection, dual-Y/dual-Z
// pairs, and dual-Z-endstop per-motor suppression during homing.
// CoreXY needs no special fan-out here — the A/B motors ARE MotorX/
// MotorY in this firmware's naming; head-direction is derived
// separately, only for endstop gating (see Router.HeadDirection).
type Router struct {
	caps Capabilities
	hal  HAL

	// DuplicationEnabled mirrors Marlin's extruder_duplication_enabled,
	// toggled by the (out-of-scope) M605 handler.
	DuplicationEnabled bool
	// ActiveExtruder selects which X carriage drives when DualXCarriage
	// is set and duplication is off. Set by the engine from the current
	// block before tracing it.
	ActiveExtruder uint8
}

func NewRouter(hal HAL, caps Capabilities) *Router {
	return &Router{hal: hal, caps: caps}
}

// ApplyDirection latches a new direction bitmask to the physical pins
// and reports the per-axis sign the position mirror should record. It
// is only ever called from the ISR when direction_bits != out_bits.
func (r *Router) ApplyDirection(dirBits uint8) (signs [NumAxes]int8) {
	negX := dirBits&DirBitX != 0
	negY := dirBits&DirBitY != 0
	negZ := dirBits&DirBitZ != 0
	negE := dirBits&DirBitE != 0

	r.applyXDir(negX)
	r.applyYDir(negY)
	r.applyZDir(negZ)
	r.hal.SetDir(r.extruderMotor(), negE)

	sign := func(neg bool) int8 {
		if neg {
			return -1
		}
		return 1
	}
	signs[AxisX] = sign(negX)
	signs[AxisY] = sign(negY)
	signs[AxisZ] = sign(negZ)
	signs[AxisE] = sign(negE)
	return signs
}

func (r *Router) applyXDir(negative bool) {
	if !r.caps.DualXCarriage {
		r.hal.SetDir(MotorX, negative)
		return
	}
	if r.DuplicationEnabled {
		r.hal.SetDir(MotorX, negative)
		r.hal.SetDir(MotorX2, negative)
		return
	}
	if r.ActiveExtruder != 0 {
		r.hal.SetDir(MotorX2, negative)
	} else {
		r.hal.SetDir(MotorX, negative)
	}
}

func (r *Router) applyYDir(negative bool) {
	r.hal.SetDir(MotorY, negative)
	if r.caps.DualYStepperDrivers {
		r.hal.SetDir(MotorY2, negative != r.caps.InvertY2VsY)
	}
}

func (r *Router) applyZDir(negative bool) {
	r.hal.SetDir(MotorZ, negative)
	if r.caps.DualZStepperDrivers {
		r.hal.SetDir(MotorZ2, negative)
	}
}

// StepX emits a step edge on whichever X motor(s) the block's active
// extruder and duplication mode select.
func (r *Router) StepX(high bool) {
	if !r.caps.DualXCarriage {
		r.hal.SetStep(MotorX, high)
		return
	}
	if r.DuplicationEnabled {
		r.hal.SetStep(MotorX, high)
		r.hal.SetStep(MotorX2, high)
		return
	}
	if r.ActiveExtruder != 0 {
		r.hal.SetStep(MotorX2, high)
	} else {
		r.hal.SetStep(MotorX, high)
	}
}

// StepY emits a step edge on Y (and Y2, if configured).
func (r *Router) StepY(high bool) {
	r.hal.SetStep(MotorY, high)
	if r.caps.DualYStepperDrivers {
		r.hal.SetStep(MotorY2, high)
	}
}

// ZSuppression decides whether a Z step edge
// should be withheld from Z or Z2 this tick because that motor's own
// endstop has already latched in the homing direction while the other
// continues. oldEndstopBits is the raw sample Endstops.Check has just
// stored as its old bits (not the two-sample debounced result), countDirZ is the
// mirror's current Z direction sign, and lockedZ/lockedZ2 are the
// main-loop-driven Lock_z{,2}_motor flags.
func (r *Router) ZSuppression(performingHoming bool, oldEndstopBits uint32, countDirZ int8, lockedZ, lockedZ2 bool) (suppressZ, suppressZ2 bool) {
	if !r.caps.DualZEndstops || !performingHoming {
		return lockedZ, lockedZ2
	}
	if r.caps.ZHomeDir > 0 {
		zHit := oldEndstopBits&EndstopBit(EndZMax) != 0 && countDirZ > 0
		z2Hit := oldEndstopBits&EndstopBit(EndZ2Max) != 0 && countDirZ > 0
		return zHit || lockedZ, z2Hit || lockedZ2
	}
	zHit := oldEndstopBits&EndstopBit(EndZMin) != 0 && countDirZ < 0
	z2Hit := oldEndstopBits&EndstopBit(EndZ2Min) != 0 && countDirZ < 0
	return zHit || lockedZ, z2Hit || lockedZ2
}

// StepZ emits a step edge on Z and/or Z2, honoring ZSuppression.
func (r *Router) StepZ(high bool, suppressZ, suppressZ2 bool) {
	if !r.caps.DualZStepperDrivers {
		r.hal.SetStep(MotorZ, high)
		return
	}
	if !suppressZ {
		r.hal.SetStep(MotorZ, high)
	}
	if !suppressZ2 {
		r.hal.SetStep(MotorZ2, high)
	}
}

// StepE emits a step edge on the active extruder's motor.
func (r *Router) StepE(high bool) {
	r.hal.SetStep(r.extruderMotor(), high)
}

// StepExtruder emits a step edge on extruder idx's motor directly,
// independent of ActiveExtruder — used by Advance to drain each
// extruder's accumulated e_steps onto its own motor rather than
// whichever extruder happens to be active at drain time.
func (r *Router) StepExtruder(idx uint8, high bool) {
	r.hal.SetStep(extruderMotor(idx), high)
}

// SetExtruderDir latches extruder idx's direction pin directly,
// independent of ActiveExtruder — Advance calls this once per drained
// pulse, keyed off the sign of the e_steps balance it is draining, so a
// leftover balance on a no-longer-active extruder still pulses in the
// right physical direction (E0_DIR_WRITE-style, not just the once-per-
// block ApplyDirection write).
func (r *Router) SetExtruderDir(idx uint8, negative bool) {
	r.hal.SetDir(extruderMotor(idx), negative)
}

func (r *Router) extruderMotor() Motor {
	return extruderMotor(r.ActiveExtruder)
}

func extruderMotor(idx uint8) Motor {
	switch idx {
	case 1:
		return MotorE1
	case 2:
		return MotorE2
	case 3:
		return MotorE3
	default:
		return MotorE0
	}
}

// HeadDirection reports whether the CoreXY head is moving at all on the
// given logical head axis (X or Y) and, if so, which direction, derived
// from the A/B motor steps and directions: ΔX_head ∝ ΔA+ΔB, ΔY_head ∝
// ΔA-ΔB. Only meaningful when caps.CoreXY is set; see
// Endstops for how this feeds the gating decision. If DeltaX == -DeltaY
// the movement is purely in Y (and vice versa).
func (r *Router) HeadDirection(headAxis Axis, block *Block, outBits uint8) (moving bool, negative bool) {
	signA, signB := int64(1), int64(1)
	if outBits&DirBitX != 0 {
		signA = -1
	}
	if outBits&DirBitY != 0 {
		signB = -1
	}
	a := signA * int64(block.Steps[AxisX])
	b := signB * int64(block.Steps[AxisY])

	var combined int64
	switch headAxis {
	case AxisX:
		combined = a + b
	case AxisY:
		combined = a - b
	default:
		return false, false
	}
	if combined == 0 {
		return false, false
	}
	return true, combined < 0
}

package motion

import (
	"sync/atomic"

	"stepcore/core"
)

// Sticky report bits, latched into EndstopHitBits and read by
// CheckHitEndstops / the serial report (report.FormatEndstopHit). These
// are deliberately axis-indexed, not endstop-pin-indexed: a MIN or MAX
// trigger on the same axis reports under the same bit, matching the
// original firmware's _ENDSTOP_HIT macro.
const (
	HitBitX uint32 = 1 << iota
	HitBitY
	HitBitZ
	HitBitZProbe
)

// Endstops runs per-tick sampling with a two-sample
// debounce, direction-gated activation, and sticky trigger latching.
// CheckEndstops, PerformingHoming, LockedZMotor and LockedZ2Motor are
// shared with thread context and are plain fields mutated
// only through their setters, which the caller is responsible for
// invoking under a critical section if it races the ISR — in practice
// the main loop only flips them between moves, with st_synchronize
// already having drained the queue.
type Endstops struct {
	hal  HAL
	caps Capabilities
	has  [NumEndstops]bool

	CheckEndstops bool

	oldBits uint32 // last tick's raw sample (9 endstop-pin bits)
	hitBits uint32 // sticky report latch (atomic: read from thread context)

	trigSteps [NumAxes]int32

	PerformingHoming bool
	LockedZMotor     bool
	LockedZ2Motor    bool
}

// NewEndstops builds an Endstops sampler. has reports which physical
// endstop pins are wired on this machine.
func NewEndstops(hal HAL, caps Capabilities, has [NumEndstops]bool) *Endstops {
	return &Endstops{hal: hal, caps: caps, has: has, CheckEndstops: true}
}

func (e *Endstops) sample() uint32 {
	var bits uint32
	for id := EndstopID(0); id < NumEndstops; id++ {
		if e.has[id] && e.hal.ReadEndstop(id) {
			bits |= EndstopBit(id)
		}
	}
	return bits
}

func confirmed(current, old uint32, id EndstopID) bool {
	bit := EndstopBit(id)
	return current&bit != 0 && old&bit != 0
}

// Check runs the endstop pass for one tick. It returns forceComplete
// when the block must terminate this tick (an ungated axis latched),
// and the Z-motor suppression flags Router.StepZ needs for this same
// tick — computed from the raw sample this call just
// took, not from the previous tick's sample.
func (e *Endstops) Check(block *Block, outBits uint8, router *Router, pm *PositionMirror) (forceComplete, suppressZ, suppressZ2 bool) {
	if !e.CheckEndstops {
		return false, e.LockedZMotor, e.LockedZ2Motor
	}

	current := e.sample()
	old := e.oldBits

	e.checkXAxis(block, outBits, router, pm, current, old, &forceComplete)
	e.checkYAxis(block, outBits, router, pm, current, old, &forceComplete)
	e.checkZAxis(block, outBits, pm, current, old, &forceComplete)
	e.checkZProbe(block, pm, current, old)

	e.oldBits = current
	suppressZ, suppressZ2 = router.ZSuppression(e.PerformingHoming, e.oldBits, pm.Direction(AxisZ), e.LockedZMotor, e.LockedZ2Motor)
	return forceComplete, suppressZ, suppressZ2
}

func (e *Endstops) checkXAxis(block *Block, outBits uint8, router *Router, pm *PositionMirror, current, old uint32, forceComplete *bool) {
	var moving, negative bool
	if e.caps.CoreXY {
		moving, negative = router.HeadDirection(AxisX, block, outBits)
	} else {
		moving, negative = true, outBits&DirBitX != 0
	}
	if !moving {
		return
	}

	homeDirOK := true
	if e.caps.DualXCarriage {
		if block.ActiveExtruder == 0 {
			homeDirOK = (negative && e.caps.XHomeDir == -1) || (!negative && e.caps.XHomeDir == 1)
		} else {
			homeDirOK = (negative && e.caps.X2HomeDir == -1) || (!negative && e.caps.X2HomeDir == 1)
		}
	}
	if !homeDirOK {
		return
	}

	id := EndXMax
	if negative {
		id = EndXMin
	}
	e.updateEndstop(id, HitBitX, block, AxisX, pm, current, old, forceComplete)
}

func (e *Endstops) checkYAxis(block *Block, outBits uint8, router *Router, pm *PositionMirror, current, old uint32, forceComplete *bool) {
	var moving, negative bool
	if e.caps.CoreXY {
		moving, negative = router.HeadDirection(AxisY, block, outBits)
	} else {
		moving, negative = true, outBits&DirBitY != 0
	}
	if !moving {
		return
	}
	id := EndYMax
	if negative {
		id = EndYMin
	}
	e.updateEndstop(id, HitBitY, block, AxisY, pm, current, old, forceComplete)
}

func (e *Endstops) checkZAxis(block *Block, outBits uint8, pm *PositionMirror, current, old uint32, forceComplete *bool) {
	negative := outBits&DirBitZ != 0

	if !e.caps.DualZEndstops {
		id := EndZMax
		if negative {
			id = EndZMin
		}
		e.updateEndstop(id, HitBitZ, block, AxisZ, pm, current, old, forceComplete)
		return
	}

	// Dual-Z endstops: combine both latches with a plain OR of bit
	// positions rather than the source firmware's
	// `TEST(...) << 0 + TEST(...) << 1`, whose `+` binds tighter than
	// the shift and silently corrupts the composed bit pattern.
	primary, secondary := EndZMin, EndZ2Min
	if !negative {
		primary, secondary = EndZMax, EndZ2Max
	}
	zHit := confirmed(current, old, primary)
	z2Hit := confirmed(current, old, secondary)
	var zTest uint8
	if zHit {
		zTest |= 1 << 0
	}
	if z2Hit {
		zTest |= 1 << 1
	}
	if zTest != 0 && block.Steps[AxisZ] > 0 {
		e.trigSteps[AxisZ] = pm.stepsUnsafe(AxisZ)
		// The source firmware's Z_MAX path incorrectly latched the
		// MIN-flavored report bit even on a MAX trigger; the report
		// bit here is axis-indexed so there is only one bit to set,
		// which sidesteps that bug by construction.
		e.setHit(HitBitZ)
		if !e.PerformingHoming || zTest == 0x3 {
			*forceComplete = true
		}
	}
}

func (e *Endstops) checkZProbe(block *Block, pm *PositionMirror, current, old uint32) {
	if !e.has[EndZProbe] || block.Steps[AxisZ] == 0 {
		return
	}
	if confirmed(current, old, EndZProbe) {
		e.trigSteps[AxisZ] = pm.stepsUnsafe(AxisZ)
		e.setHit(HitBitZProbe)
	}
}

func (e *Endstops) updateEndstop(id EndstopID, hitBit uint32, block *Block, axis Axis, pm *PositionMirror, current, old uint32, forceComplete *bool) {
	if !e.has[id] {
		return
	}
	if confirmed(current, old, id) && block.Steps[axis] > 0 {
		e.trigSteps[axis] = pm.stepsUnsafe(axis)
		e.setHit(hitBit)
		*forceComplete = true
	}
}

func (e *Endstops) setHit(bit uint32) {
	for {
		old := atomic.LoadUint32(&e.hitBits)
		if atomic.CompareAndSwapUint32(&e.hitBits, old, old|bit) {
			core.RecordTiming(core.EvtEndstopHit, hitBitAxis(bit), e.hal.Now(), bit, 0)
			return
		}
	}
}

// hitBitAxis maps a sticky report bit back to the axis index it was
// latched under, for the timing ring's Axis field.
func hitBitAxis(bit uint32) uint8 {
	switch bit {
	case HitBitX:
		return uint8(AxisX)
	case HitBitY:
		return uint8(AxisY)
	case HitBitZ:
		return uint8(AxisZ)
	default:
		return uint8(AxisZ) // HitBitZProbe rides on the Z axis
	}
}

// EndstopsHitOnPurpose clears the sticky latch without reporting it —
// used after a deliberate homing overshoot.
func (e *Endstops) EndstopsHitOnPurpose() {
	atomic.StoreUint32(&e.hitBits, 0)
}

// HitBits reads the sticky latch from thread context.
func (e *Endstops) HitBits() uint32 {
	return atomic.LoadUint32(&e.hitBits)
}

// HitBitsAndClear reads the sticky latch and clears it in the same
// atomic step — checkHitEndstops's "reports then clears" contract,
// distinct from EndstopsHitOnPurpose's "clears without reporting".
func (e *Endstops) HitBitsAndClear() uint32 {
	return atomic.SwapUint32(&e.hitBits, 0)
}

// TrigSteps returns the captured count_position at the moment axis's
// endstop last latched.
func (e *Endstops) TrigSteps(axis Axis) int32 {
	return e.trigSteps[axis]
}

// EnableEndstops implements enable_endstops(bool).
func (e *Endstops) EnableEndstops(enabled bool) { e.CheckEndstops = enabled }

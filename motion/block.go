package motion

// Block is one straight-line multi-axis move with a trapezoidal speed
// profile, produced by the (out-of-scope) planner. The engine treats it
// as read-only except for Busy, which it sets the instant it starts
// tracing the block so the planner knows not to evict it.
type Block struct {
	Steps         [NumAxes]uint32 // absolute step count per axis, >= 0
	StepEventCount uint32         // max(Steps[axis]), the dominant-axis tick count
	DirectionBits uint8           // one bit per axis (DirBitX..DirBitE), 1 = negative

	AccelerateUntil uint32 // tick threshold ending the accel phase
	DecelerateAfter uint32 // tick threshold starting the decel phase

	InitialRate uint32 // step frequency (Hz) at segment entry
	NominalRate uint32 // step frequency (Hz) at cruise
	FinalRate   uint32 // step frequency (Hz) at segment exit

	AccelerationRate uint32 // pre-scaled: delta_rate = AccelerationRate*delta_ticks >> 32

	// Pressure-advance integrator endpoints; only meaningful when the
	// engine's Advance sub-engine is enabled.
	InitialAdvance int32
	FinalAdvance   int32
	AdvanceRate    int32

	ActiveExtruder uint8 // which extruder tool this block drives
	Busy           bool  // set by the engine once tracing starts
}

// BlockSource is the external interface to the (out-of-scope) planner.
// CurrentBlock peeks without dequeueing; the engine calls DiscardCurrent
// only after it has fully consumed the block. Both must be safe to call
// from the stepper ISR, and the memory behind a returned Block must stay
// valid until the next DiscardCurrent.
type BlockSource interface {
	CurrentBlock() *Block
	DiscardCurrent()
	BlocksQueued() bool
}

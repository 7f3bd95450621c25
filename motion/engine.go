package motion

import (
	"sync"

	"stepcore/core"
)

// idleIntervalDivisor sets how often the tick handler polls for new
// work while the queue is empty: TimerRateHz/idleIntervalDivisor.
const idleIntervalDivisor = 200

// quickStopFlushIntervalDivisor sets the re-arm rate during a
// QuickStop's flush window (~200Hz), distinct from idleIntervalDivisor.
const quickStopFlushIntervalDivisor = 200

// quickStopFlushTicks is how many flush-interval ticks QuickStop's
// settle window lasts before normal idle polling resumes.
const quickStopFlushTicks = 5000

// zLateEnableIntervalDivisor reschedules the tick handler 1ms after
// enabling a newly-picked-up block's Z motor, letting the driver wake
// before the first step pulse.
const zLateEnableIntervalDivisor = 1000

// Engine is the top-level motor controller: it owns the
// trapezoid generator, the Bresenham tracer, the direction/step router,
// the endstop sampler, and the position mirror, and drives all of them
// from a single stepper-timer tick handler. Everything except the
// exported Synchronize/QuickStop/FinishAndDisableSteppers/Set*/Get*
// methods runs on the ISR stack; those methods are the only ones meant
// to be called from thread context.
type Engine struct {
	hal    HAL
	caps   Capabilities
	blocks BlockSource

	pm       *PositionMirror
	router   *Router
	endstops *Endstops
	trace    *Tracer
	trap     *Trapezoid
	advance  *Advance     // nil if pressure advance is not built in
	baby     *Babystepper // nil if babystepping is not built in

	idleInterval        uint32
	flushInterval       uint32
	zLateEnableInterval uint32

	currentBlock *Block
	zEnabled     bool // latched once ZLateEnable has energized the Z motor for the current run

	homingTimeoutTicks uint32 // 0 disables the watchdog
	homingEpoch        uint32

	mu   sync.Mutex
	cond *sync.Cond
	busy bool
}

func NewEngine(hal HAL, caps Capabilities, blocks BlockSource, pm *PositionMirror, router *Router, endstops *Endstops, trap *Trapezoid, advance *Advance, baby *Babystepper) *Engine {
	e := &Engine{
		hal:      hal,
		caps:     caps,
		blocks:   blocks,
		pm:       pm,
		router:   router,
		endstops: endstops,
		trace:    &Tracer{},
		trap:     trap,
		advance:  advance,
		baby:     baby,
	}
	e.cond = sync.NewCond(&e.mu)
	e.idleInterval = hal.TimerRateHz() / idleIntervalDivisor
	if e.idleInterval == 0 {
		e.idleInterval = 1
	}
	e.flushInterval = hal.TimerRateHz() / quickStopFlushIntervalDivisor
	if e.flushInterval == 0 {
		e.flushInterval = 1
	}
	e.zLateEnableInterval = hal.TimerRateHz() / zLateEnableIntervalDivisor
	if e.zLateEnableInterval == 0 {
		e.zLateEnableInterval = 1
	}
	return e
}

// Init arms the tick interrupt for the first time — st_init.
func (e *Engine) Init() {
	e.hal.EnableTickInterrupt()
	e.hal.ScheduleNextTick(e.idleInterval)
	if e.advance != nil {
		e.advance.hal.ScheduleNextTick(e.advance.IntervalTicks)
	}
}

// WakeUp re-arms the tick interrupt after it has been left idling —
// st_wake_up.
func (e *Engine) WakeUp() {
	e.hal.EnableTickInterrupt()
}

// Synchronize blocks the calling goroutine until the block queue is
// empty and the engine has finished tracing whatever it was tracing —
// st_synchronize.
func (e *Engine) Synchronize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.busy || e.blocks.BlocksQueued() {
		e.cond.Wait()
	}
}

// FinishAndDisableSteppers drains the queue, then de-energizes every
// motor — finishAndDisableSteppers.
func (e *Engine) FinishAndDisableSteppers() {
	e.Synchronize()
	for m := Motor(0); m < NumMotors; m++ {
		e.hal.SetEnable(m, false)
	}
	e.zEnabled = false
}

// QuickStop discards the queue and any block in flight without
// finishing it, then arms a decaying flush window so blocks the
// producer pushes immediately after re-enabling the tick interrupt are
// still discarded rather than picked up — quickStop. Safe to call from
// thread context; it briefly holds off the tick handler while it resets
// shared state.
func (e *Engine) QuickStop() {
	e.hal.DisableTickInterrupt()
	for e.blocks.BlocksQueued() {
		e.blocks.DiscardCurrent()
	}
	core.RecordTiming(core.EvtQuickStop, 0, e.hal.Now(), 0, 0)
	e.currentBlock = nil
	e.zEnabled = false
	e.trace = &Tracer{}
	e.trace.ArmCleaningBuffer(quickStopFlushTicks)
	e.setBusy(false)
	e.hal.ScheduleNextTick(e.flushInterval)
	e.hal.EnableTickInterrupt()
}

func (e *Engine) setBusy(busy bool) {
	e.mu.Lock()
	e.busy = busy
	e.mu.Unlock()
	e.cond.Broadcast()
}

// SetPosition overwrites the machine-coordinate step counters on every
// axis — st_set_position. Callers must have already synchronized.
func (e *Engine) SetPosition(steps [NumAxes]int32) { e.pm.SetAll(steps) }

// SetAxisPosition overwrites a single axis's step counter — generalizes
// st_set_e_position to any axis.
func (e *Engine) SetAxisPosition(axis Axis, steps int32) { e.pm.SetAxis(axis, steps) }

// GetPosition reads a single axis's step counter — st_get_position.
func (e *Engine) GetPosition(axis Axis) int32 { return e.pm.Get(axis) }

// GetPositionMM reads a single axis's position converted to real units —
// st_get_position_mm.
func (e *Engine) GetPositionMM(axis Axis) float64 { return e.pm.GetMM(axis) }

// EnableEndstops implements enable_endstops(bool).
func (e *Engine) EnableEndstops(enabled bool) { e.endstops.EnableEndstops(enabled) }

// EndstopsHitOnPurpose clears the sticky hit latch after a deliberate
// homing overshoot — endstops_hit_on_purpose.
func (e *Engine) EndstopsHitOnPurpose() { e.endstops.EndstopsHitOnPurpose() }

// CheckHitEndstops reports whether any endstop has latched since the
// last call, and the sticky bit mask for report.FormatEndstopHit —
// checkHitEndstops: reports then clears, so a repeated call without an
// intervening trigger reports nothing.
func (e *Engine) CheckHitEndstops() (hit bool, bits uint32) {
	bits = e.endstops.HitBitsAndClear()
	return bits != 0, bits
}

// TrigSteps returns the machine position, in steps, at the moment axis's
// endstop last latched.
func (e *Engine) TrigSteps(axis Axis) int32 { return e.endstops.TrigSteps(axis) }

// SetHomingTimeout arms (or disarms, with 0) a watchdog that QuickStops
// the machine if homing is still in progress this many ticks after
// SetInHomingProcess(true) — a stuck or disconnected endstop must not
// be allowed to run a homing move into the frame indefinitely.
func (e *Engine) SetHomingTimeout(ticks uint32) { e.homingTimeoutTicks = ticks }

// SetInHomingProcess toggles whether the engine treats endstop latches
// as homing events (dual-Z suppression, non-fatal on partial latch) —
// In_Homing_Process(bool). Turning it on arms the homing watchdog;
// turning it off (homing finished, on time) retires it.
func (e *Engine) SetInHomingProcess(homing bool) {
	e.endstops.PerformingHoming = homing
	e.homingEpoch++
	if !homing || e.homingTimeoutTicks == 0 {
		return
	}
	epoch := e.homingEpoch
	core.ScheduleTimer(&core.Timer{
		WakeTime: core.GetTime() + e.homingTimeoutTicks,
		Handler: func(*core.Timer) uint8 {
			if epoch == e.homingEpoch && e.endstops.PerformingHoming {
				core.RecordTiming(core.EvtHomingTimeout, 0, e.hal.Now(), epoch, 0)
				e.QuickStop()
				e.endstops.PerformingHoming = false
			}
			return core.SF_DONE
		},
	})
}

// LockZMotor and LockZ2Motor withhold step pulses from one Z motor
// while the other continues homing, once its own endstop has triggered —
// Lock_z_motor / Lock_z2_motor.
func (e *Engine) LockZMotor(locked bool)  { e.endstops.LockedZMotor = locked }
func (e *Engine) LockZ2Motor(locked bool) { e.endstops.LockedZ2Motor = locked }

// RequestBabystep queues a single-step nudge to be applied on the next
// tick, if this build includes a babystepper.
func (e *Engine) RequestBabystep(axis BabystepAxis, negative bool) {
	if e.baby != nil {
		e.baby.RequestStep(axis, negative)
	}
}

// Tick is the stepper-timer interrupt handler: one call per programmed
// timer period. It advances at most one block by StepLoops Bresenham
// events, reprograms the timer for the interval the trapezoid generator
// computes, and releases the block once every axis has caught up to the
// dominant axis's step count.
func (e *Engine) Tick() {
	core.SetTime(e.hal.Now())
	core.ProcessTimers()

	if e.trace.CleaningBufferCounter > 0 {
		if e.blocks.BlocksQueued() {
			e.blocks.DiscardCurrent()
		}
		e.trace.CleaningBufferCounter--
		if e.trace.CleaningBufferCounter > 0 {
			e.hal.ScheduleNextTick(e.flushInterval)
			core.RecordTiming(core.EvtTickFire, 0, e.hal.Now(), e.flushInterval, 0)
		} else {
			e.hal.ScheduleNextTick(e.idleInterval)
			core.RecordTiming(core.EvtTickFire, 0, e.hal.Now(), e.idleInterval, 0)
		}
		return
	}

	if e.baby != nil {
		e.baby.Apply()
	}

	if e.currentBlock == nil {
		e.currentBlock = e.blocks.CurrentBlock()
		if e.currentBlock == nil {
			e.hal.ScheduleNextTick(e.idleInterval)
			core.RecordTiming(core.EvtTickFire, 0, e.hal.Now(), e.idleInterval, 0)
			return
		}
		e.currentBlock.Busy = true
		e.setBusy(true)
		e.trap.Reset(e.currentBlock)
		e.trace.ResetForBlock(e.currentBlock.StepEventCount)
		e.router.ActiveExtruder = e.currentBlock.ActiveExtruder
		if e.advance != nil {
			e.advance.ResetForBlock(e.currentBlock)
		}
		core.RecordTiming(core.EvtBlockStart, 0, e.hal.Now(), e.currentBlock.StepEventCount, 0)

		if e.caps.ZLateEnable && e.currentBlock.Steps[AxisZ] > 0 && !e.zEnabled {
			e.hal.SetEnable(MotorZ, true)
			if e.caps.DualZStepperDrivers {
				e.hal.SetEnable(MotorZ2, true)
			}
			e.zEnabled = true
			e.hal.ScheduleNextTick(e.zLateEnableInterval)
			core.RecordTiming(core.EvtTickFire, 0, e.hal.Now(), e.zLateEnableInterval, 0)
			return
		}
	}

	block := e.currentBlock

	if block.DirectionBits != e.trace.OutBits {
		signs := e.router.ApplyDirection(block.DirectionBits)
		for a := Axis(0); a < NumAxes; a++ {
			e.pm.SetDirection(a, signs[a] < 0)
		}
		e.trace.OutBits = block.DirectionBits
	}

	forceComplete, suppressZ, suppressZ2 := e.endstops.Check(block, e.trace.OutBits, e.router, e.pm)

	for i := uint8(0); i < e.trap.StepLoops; i++ {
		e.trace.StepEventsCompleted++

		stepX := e.trace.StepAxis(AxisX, block.Steps[AxisX], block.StepEventCount)
		if stepX {
			e.pm.Advance(AxisX)
		}
		stepY := e.trace.StepAxis(AxisY, block.Steps[AxisY], block.StepEventCount)
		if stepY {
			e.pm.Advance(AxisY)
		}
		stepZ := e.trace.StepAxis(AxisZ, block.Steps[AxisZ], block.StepEventCount)
		if stepZ {
			e.pm.Advance(AxisZ)
		}
		stepE := e.trace.StepAxis(AxisE, block.Steps[AxisE], block.StepEventCount)
		useAdvance := e.advance != nil && e.advance.Enabled
		if stepE {
			e.pm.Advance(AxisE)
			if useAdvance {
				e.advance.AccumulateEStep()
			}
		}

		// Every axis pulsing this event gets its rising edge before any
		// of them gets a falling edge, mirroring the source ISR's
		// STEP_START(x)/STEP_START(y)/STEP_START(z)/STEP_START(e) block
		// running to completion before any STEP_END call.
		if stepX {
			e.router.StepX(true)
		}
		if stepY {
			e.router.StepY(true)
		}
		if stepZ {
			e.router.StepZ(true, suppressZ, suppressZ2)
		}
		if stepE && !useAdvance {
			e.router.StepE(true)
		}

		if stepX {
			e.router.StepX(false)
		}
		if stepY {
			e.router.StepY(false)
		}
		if stepZ {
			e.router.StepZ(false, suppressZ, suppressZ2)
		}
		if stepE && !useAdvance {
			e.router.StepE(false)
		}

		if e.trace.StepEventsCompleted >= block.StepEventCount {
			break
		}
	}

	if forceComplete {
		e.trace.StepEventsCompleted = block.StepEventCount
	}

	accelerating := e.trace.StepEventsCompleted <= block.AccelerateUntil
	decelerating := e.trace.StepEventsCompleted > block.DecelerateAfter
	if e.advance != nil {
		e.advance.StepAdvance(accelerating, decelerating)
	}

	if e.trace.StepEventsCompleted >= block.StepEventCount {
		core.RecordTiming(core.EvtBlockDone, 0, e.hal.Now(), e.trace.StepEventsCompleted, 0)
		e.blocks.DiscardCurrent()
		e.currentBlock = nil
		e.setBusy(false)
		e.hal.ScheduleNextTick(e.idleInterval)
		core.RecordTiming(core.EvtTickFire, 0, e.hal.Now(), e.idleInterval, 0)
		return
	}

	interval := e.trap.Advance(block, e.trace.StepEventsCompleted)
	e.hal.ScheduleNextTick(interval)
	core.RecordTiming(core.EvtTickFire, 0, e.hal.Now(), interval, 0)
}

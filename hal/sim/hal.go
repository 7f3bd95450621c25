// Package sim is a non-hardware motion.HAL: a manually-advanced virtual
// clock plus in-memory pin state, used by the hosted (!tinygo) test
// suite and by cmd/stepcore-sim to exercise the engine without real
// timers or GPIO. Grounded on core/timer_go.go's plain-variable clock
// and motion.HAL's documented contract.
package sim

import (
	"sync"

	"stepcore/core"
	"stepcore/motion"
)

// HAL is a single-threaded simulation clock. It is not safe for
// concurrent use from more than one goroutine; the intent is that the
// engine's Tick and the test driving it run on the same goroutine, the
// way a bare-metal ISR and its own reprogramming would.
type HAL struct {
	mu sync.Mutex

	now         uint32
	nextTickAt  uint32
	timerRateHz uint32
	guardTicks  uint32

	tickEnabled bool
	onTick      func()

	motorEnabled [motion.NumMotors]bool
	motorDirNeg  [motion.NumMotors]bool
	stepHigh     [motion.NumMotors]bool
	stepCount    [motion.NumMotors]uint64
	stepDirNeg   [motion.NumMotors]bool // direction pin latched at the most recent rising edge

	endstops [motion.NumEndstops]bool
}

// New builds a simulated HAL with the given timer rate and guard-ticks
// floor (both in the same units ScheduleNextTick's intervals use).
func New(timerRateHz, guardTicks uint32) *HAL {
	return &HAL{timerRateHz: timerRateHz, guardTicks: guardTicks}
}

// SetTickHandler wires the engine's Tick method as the callback Pump
// invokes when the simulated clock reaches the next scheduled fire.
func (h *HAL) SetTickHandler(fn func()) { h.onTick = fn }

func (h *HAL) SetStep(m motion.Motor, high bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if high && !h.stepHigh[m] {
		h.stepCount[m]++
		h.stepDirNeg[m] = h.motorDirNeg[m]
	}
	h.stepHigh[m] = high
}

func (h *HAL) SetDir(m motion.Motor, negative bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.motorDirNeg[m] = negative
}

func (h *HAL) SetEnable(m motion.Motor, enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.motorEnabled[m] = enabled
}

func (h *HAL) ReadEndstop(id motion.EndstopID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.endstops[id]
}

// SetEndstop is a test hook: it forces endstop id's simulated pin state.
func (h *HAL) SetEndstop(id motion.EndstopID, triggered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endstops[id] = triggered
}

// StepCount is a test hook: how many rising edges motor m has seen.
func (h *HAL) StepCount(m motion.Motor) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stepCount[m]
}

// DirNegative is a test hook: motor m's last-applied direction.
func (h *HAL) DirNegative(m motion.Motor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.motorDirNeg[m]
}

// StepDirNegative is a test hook: the direction pin's state at the
// moment of motor m's most recent rising edge, for asserting direction
// against a pulse the caller may since have restored away from.
func (h *HAL) StepDirNegative(m motion.Motor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stepDirNeg[m]
}

// Enabled is a test hook: motor m's last-applied enable state.
func (h *HAL) Enabled(m motion.Motor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.motorEnabled[m]
}

func (h *HAL) ScheduleNextTick(intervalTicks uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	target := h.nextTickAt + intervalTicks
	if target <= h.now+h.guardTicks {
		target = h.now + h.guardTicks
		core.RecordTiming(core.EvtGuardClamp, 0, h.now, intervalTicks, target)
	}
	h.nextTickAt = target
}

func (h *HAL) EnableTickInterrupt()  { h.tickEnabled = true }
func (h *HAL) DisableTickInterrupt() { h.tickEnabled = false }

func (h *HAL) Now() uint32         { return h.now }
func (h *HAL) GuardTicks() uint32  { return h.guardTicks }
func (h *HAL) TimerRateHz() uint32 { return h.timerRateHz }

// Pump advances the simulated clock to the next scheduled tick and
// invokes the handler, up to n times or until the tick interrupt is
// disabled or no handler is set. Returns how many ticks ran.
func (h *HAL) Pump(n int) int {
	ran := 0
	for i := 0; i < n; i++ {
		if !h.tickEnabled || h.onTick == nil {
			break
		}
		h.now = h.nextTickAt
		h.onTick()
		ran++
	}
	return ran
}

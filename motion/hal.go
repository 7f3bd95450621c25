package motion

// HAL is the hardware abstraction the engine drives every tick. All pin
// polarity is the backend's problem: a logical "step high" may map to an
// electrically low pulse, and HAL implementations must apply that
// inversion internally so the engine never has to know about it.
//
// ScheduleNextTick must apply the guard-ticks floor itself:
// if the requested interval would land at or
// before now()+GuardTicks(), it must clamp forward rather than program
// a comparator target that has already passed. The engine calls it with
// the raw computed interval and relies on the HAL for the clamp so the
// clamp constant stays a backend property (real timers and the
// simulation clock have different minimum useful guards).
type HAL interface {
	SetStep(m Motor, high bool)
	SetDir(m Motor, negative bool)
	SetEnable(m Motor, enabled bool)

	ReadEndstop(id EndstopID) bool

	// ScheduleNextTick programs the timer to fire the engine's tick
	// handler intervalTicks after the last scheduled fire (not after
	// now) — the engine always passes a relative interval.
	ScheduleNextTick(intervalTicks uint32)
	EnableTickInterrupt()
	DisableTickInterrupt()

	Now() uint32
	GuardTicks() uint32
	TimerRateHz() uint32
}

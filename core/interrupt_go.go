//go:build !tinygo

package core

// InterruptState captures whatever the platform needs to restore the
// stepper interrupt mask. On hosted Go builds (tests, the simulation
// harness, host-side tooling) there is no real interrupt controller, so
// this is a no-op pair used purely to keep the critical-section call
// sites identical across build targets.
type InterruptState uintptr

// DisableStepperIRQ masks the stepper timer interrupt and returns the
// previous state. Callers must pair every call with RestoreStepperIRQ.
func DisableStepperIRQ() InterruptState {
	return 0
}

// RestoreStepperIRQ unmasks the stepper timer interrupt to the state
// captured by a prior DisableStepperIRQ call.
func RestoreStepperIRQ(state InterruptState) {
	// No-op on hosted builds.
}

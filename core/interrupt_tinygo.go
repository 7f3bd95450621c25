//go:build tinygo

package core

import "runtime/interrupt"

// InterruptState is the CPU interrupt-enable state saved across a
// critical section. On TinyGo targets this is the real hardware PRIMASK
// (or equivalent) captured by runtime/interrupt.
type InterruptState = interrupt.State

// DisableStepperIRQ masks all interrupts and returns the previous state.
// The stepper ISR itself must never call this on itself; it is for
// thread-context code (position mirror reads, quickStop, homing lock
// flags) that touches state the ISR also owns.
func DisableStepperIRQ() InterruptState {
	return interrupt.Disable()
}

// RestoreStepperIRQ restores the interrupt state captured by
// DisableStepperIRQ.
func RestoreStepperIRQ(state InterruptState) {
	interrupt.Restore(state)
}

//go:build tinygo

// Package rp2040 is the TinyGo/RP2040 motion.HAL backend: GPIO step/dir/
// enable/endstop pins driven through a core.GPIODriver (Driver, a thin
// wrapper over the machine package), a hardware alarm for
// ScheduleNextTick, and a PIO state machine
// (github.com/tinygo-org/pio) doing the extruder's high-rate pulse
// train so the CPU-driven main ISR only has to keep up with X/Y/Z.
// Grounded on targets/rp2040/clock.go's raw timer register access and
// targets/pio/stepper_pio.go's PIO program.
package rp2040

import (
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08
	timerTIMERAWL = timerBase + 0x0C
	timerALARM0   = timerBase + 0x10
	timerINTE     = timerBase + 0x38
	timerINTR     = timerBase + 0x34
)

var (
	timerLow    = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerALARM  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM0)))
	timerIntEn  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	timerIntAck = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
)

// readNow reads the low 32 bits of the RP2040's free-running 1MHz timer.
func readNow() uint32 { return timerLow.Get() }

// armAlarm programs ALARM0 to fire when the timer reaches target.
func armAlarm(target uint32) { timerALARM.Set(target) }

// ackAlarm clears the pending ALARM0 interrupt flag.
func ackAlarm() { timerIntAck.Set(1) }

// enableAlarmInterrupt unmasks ALARM0 at the timer peripheral. The
// vector itself is wired by the target's main package, which must call
// interrupt.New(irq.TIMER_IRQ_0, handler) and route into HAL.fireTick.
func enableAlarmInterrupt(enable bool) {
	if enable {
		timerIntEn.SetBits(1)
	} else {
		timerIntEn.ClearBits(1)
	}
}

var criticalState interrupt.State

func disableIRQ() { criticalState = interrupt.Disable() }
func restoreIRQ() { interrupt.Restore(criticalState) }

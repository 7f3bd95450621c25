//go:build tinygo

package rp2040

import (
	"machine"
	"runtime/interrupt"

	"stepcore/core"
	"stepcore/motion"
)

// PinMap assigns a machine.Pin to each motor's step and direction lines
// and each configured endstop input. Zero-value machine.Pin entries for
// unused motors/endstops are simply never configured or read.
type PinMap struct {
	Step [motion.NumMotors]machine.Pin
	Dir  [motion.NumMotors]machine.Pin
	En   [motion.NumMotors]machine.Pin
	Has  [motion.NumMotors]bool

	Endstop    [motion.NumEndstops]machine.Pin
	HasEndstop [motion.NumEndstops]bool

	// InvertStep/InvertEndstop flip electrical polarity per motor/input,
	// so motion never has to know about wiring.
	InvertStep    [motion.NumMotors]bool
	InvertEndstop [motion.NumEndstops]bool
}

// Driver adapts the tinygo machine package's pin API to core.GPIODriver,
// so HAL configures and drives pins through the shared interface instead
// of calling machine.Pin methods directly.
type Driver struct{}

func (Driver) ConfigureOutput(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (Driver) ConfigureInputPullUp(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return nil
}

func (Driver) ConfigureInputPullDown(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return nil
}

func (Driver) SetPin(pin core.GPIOPin, value bool) error {
	machine.Pin(pin).Set(value)
	return nil
}

func (Driver) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}

// HAL drives real GPIO for step/dir/enable/endstop lines and a hardware
// alarm for tick scheduling. It implements motion.HAL.
type HAL struct {
	gpio        core.GPIODriver
	pins        PinMap
	timerRateHz uint32
	guardTicks  uint32
	lastTarget  uint32
	onTick      func()

	// pioExtruder, when set, takes over step/dir pulsing for pioMotor: the
	// PIO state machine owns that motor's step and dir pins directly, so
	// SetStep/SetDir stop driving GPIO for it and instead queue pulses on
	// the state machine.
	pioExtruder    *PIOExtruder
	pioMotor       motion.Motor
	pioDirNegative bool
}

// New configures every pin PinMap declares present, through a Driver,
// and returns a ready HAL. timerRateHz is the RP2040 timer's tick rate
// (1MHz on real silicon); guardTicks is the minimum lead time
// ScheduleNextTick will program relative to now.
func New(pins PinMap, timerRateHz, guardTicks uint32) *HAL {
	return NewWithDriver(Driver{}, pins, timerRateHz, guardTicks)
}

// NewWithDriver is New with an injectable core.GPIODriver, for backends
// that front something other than the raw machine package (e.g. an I/O
// expander chip wired over SPI).
func NewWithDriver(gpio core.GPIODriver, pins PinMap, timerRateHz, guardTicks uint32) *HAL {
	for m := motion.Motor(0); m < motion.NumMotors; m++ {
		if !pins.Has[m] {
			continue
		}
		gpio.ConfigureOutput(core.GPIOPin(pins.Step[m]))
		gpio.ConfigureOutput(core.GPIOPin(pins.Dir[m]))
		gpio.ConfigureOutput(core.GPIOPin(pins.En[m]))
	}
	for id := motion.EndstopID(0); id < motion.NumEndstops; id++ {
		if !pins.HasEndstop[id] {
			continue
		}
		gpio.ConfigureInputPullUp(core.GPIOPin(pins.Endstop[id]))
	}
	return &HAL{gpio: gpio, pins: pins, timerRateHz: timerRateHz, guardTicks: guardTicks}
}

// SetTickHandler wires the engine's Tick method as the alarm callback.
// The target's main package must route TIMER_IRQ_0 into h.fireTick.
func (h *HAL) SetTickHandler(fn func()) { h.onTick = fn }

// fireTick is the alarm ISR body: ack the interrupt and hand off to the
// engine's own Tick, which reprograms the next alarm before returning.
func (h *HAL) fireTick(interrupt.Interrupt) {
	ackAlarm()
	if h.onTick != nil {
		h.onTick()
	}
}

// UsePIOExtruder hands step/dir pulsing for motor m over to e, so
// motion.Advance's StepExtruder calls feed a PIO state machine instead of
// bit-banging GPIO. e's step/dir pins must match m's PinMap entries; this
// only changes which hardware path SetStep/SetDir take for m.
func (h *HAL) UsePIOExtruder(m motion.Motor, e *PIOExtruder) {
	h.pioExtruder = e
	h.pioMotor = m
}

func (h *HAL) SetStep(m motion.Motor, high bool) {
	if h.pioExtruder != nil && m == h.pioMotor {
		if high {
			h.pioExtruder.PushSteps(1, h.pioDirNegative)
		}
		return
	}
	if !h.pins.Has[m] {
		return
	}
	h.gpio.SetPin(core.GPIOPin(h.pins.Step[m]), high != h.pins.InvertStep[m])
}

func (h *HAL) SetDir(m motion.Motor, negative bool) {
	if h.pioExtruder != nil && m == h.pioMotor {
		h.pioDirNegative = negative
		return
	}
	if !h.pins.Has[m] {
		return
	}
	h.gpio.SetPin(core.GPIOPin(h.pins.Dir[m]), negative)
}

func (h *HAL) SetEnable(m motion.Motor, enabled bool) {
	if !h.pins.Has[m] {
		return
	}
	// Most stepper drivers enable on a LOW signal.
	h.gpio.SetPin(core.GPIOPin(h.pins.En[m]), !enabled)
}

func (h *HAL) ReadEndstop(id motion.EndstopID) bool {
	if !h.pins.HasEndstop[id] {
		return false
	}
	return h.gpio.ReadPin(core.GPIOPin(h.pins.Endstop[id])) != h.pins.InvertEndstop[id]
}

func (h *HAL) ScheduleNextTick(intervalTicks uint32) {
	disableIRQ()
	defer restoreIRQ()

	now := readNow()
	target := h.lastTarget + intervalTicks
	if target <= now+h.guardTicks {
		target = now + h.guardTicks
	}
	h.lastTarget = target
	armAlarm(target)
}

func (h *HAL) EnableTickInterrupt()  { enableAlarmInterrupt(true) }
func (h *HAL) DisableTickInterrupt() { enableAlarmInterrupt(false) }

func (h *HAL) Now() uint32         { return readNow() }
func (h *HAL) GuardTicks() uint32  { return h.guardTicks }
func (h *HAL) TimerRateHz() uint32 { return h.timerRateHz }

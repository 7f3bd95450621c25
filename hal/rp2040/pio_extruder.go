//go:build tinygo

package rp2040

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIOExtruder offloads one extruder's step train onto a PIO state
// machine so it costs no CPU time regardless of extrusion rate, adapted
// from targets/pio/stepper_pio.go's assembler program. HAL.UsePIOExtruder
// attaches one to a motor index; SetStep/SetDir then queue pulses here
// instead of bit-banging that motor's GPIO pins, so motion.Advance's
// StepExtruder calls reach the PIO program without motion knowing PIO
// exists.
type PIOExtruder struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	stepPin machine.Pin
	dirPin  machine.Pin
	offset  uint8
}

func buildExtruderProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestX, 16).Encode(),
		asm.Out(rp2pio.OutDestY, 8).Encode(),
		asm.Out(rp2pio.OutDestPins, 1).Encode(),
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Encode(),
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),
	}
}

// NewPIOExtruder claims a state machine on the given PIO block (0 or 1)
// and loads the pulse-train program.
func NewPIOExtruder(pioNum, smNum uint8, stepPin, dirPin machine.Pin) (*PIOExtruder, error) {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	e := &PIOExtruder{
		pio:     pioHW,
		sm:      pioHW.StateMachine(smNum),
		stepPin: stepPin,
		dirPin:  dirPin,
	}
	if err := e.init(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *PIOExtruder) init() error {
	e.sm.TryClaim()

	program := buildExtruderProgram()
	offset, err := e.pio.AddProgram(program, 0)
	if err != nil {
		return err
	}
	e.offset = offset

	e.stepPin.Configure(machine.PinConfig{Mode: e.pio.PinMode()})
	e.dirPin.Configure(machine.PinConfig{Mode: e.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(e.stepPin, 1)
	cfg.SetOutPins(e.dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1000, 0)

	e.sm.Init(offset, cfg)
	e.sm.SetPindirsConsecutive(e.stepPin, 1, true)
	e.sm.SetPindirsConsecutive(e.dirPin, 1, true)
	e.sm.SetPinsConsecutive(e.stepPin, 1, false)
	e.sm.SetPinsConsecutive(e.dirPin, 1, false)
	e.sm.SetEnabled(true)
	return nil
}

// PushSteps queues count pulses in the given direction. Blocks briefly
// if the PIO's TX FIFO is momentarily full.
func (e *PIOExtruder) PushSteps(count uint16, negative bool) {
	if count == 0 {
		return
	}
	// The program shifts the word out LSB first: 16 bits into X (the X--
	// loop pulses X+1 times), 8 bits into Y, then 1 bit onto the dir pin.
	cmd := uint32(count-1) | (1 << 16)
	if negative {
		cmd |= 1 << 24
	}
	for e.sm.IsTxFIFOFull() {
	}
	e.sm.TxPut(cmd)
}

// Stop halts and clears the state machine, e.g. on QuickStop.
func (e *PIOExtruder) Stop() {
	e.sm.SetEnabled(false)
	e.sm.ClearFIFOs()
	e.sm.Restart()
	e.sm.SetEnabled(true)
}

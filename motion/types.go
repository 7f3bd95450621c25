// Package motion is the realtime stepper ISR pipeline: it consumes
// planned motion blocks from a BlockSource and turns them into timed
// step pulses, tracking machine position and endstop state along the
// way. Nothing in this package allocates or blocks on the hot path.
package motion

// Axis is a logical motion axis. For CoreXY machines AxisX/AxisY name
// the A/B motor pair, not the physical head directions — head direction
// is derived separately, only for endstop gating (see Endstops).
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisE
	NumAxes = 4
)

// DirBit is the per-axis bit within a Block's DirectionBits and the
// engine's out_bits: set means "negative direction".
const (
	DirBitX uint8 = 1 << AxisX
	DirBitY uint8 = 1 << AxisY
	DirBitZ uint8 = 1 << AxisZ
	DirBitE uint8 = 1 << AxisE
)

// Motor identifies a physical stepper driver channel. There can be more
// motor channels than logical axes: dual-X carriages, dual-Y and dual-Z
// stepper pairs, and up to four extruders.
type Motor uint8

const (
	MotorX Motor = iota
	MotorX2
	MotorY
	MotorY2
	MotorZ
	MotorZ2
	MotorE0
	MotorE1
	MotorE2
	MotorE3
	NumMotors
)

// MaxExtruders is the largest number of independent extruder motors this
// firmware supports (MotorE0..MotorE3).
const MaxExtruders = 4

// EndstopID identifies one physical endstop switch input.
type EndstopID uint8

const (
	EndXMin EndstopID = iota
	EndXMax
	EndYMin
	EndYMax
	EndZMin
	EndZMax
	EndZ2Min
	EndZ2Max
	EndZProbe
	NumEndstops
)

// EndstopBit is EndstopID's position in the sticky endstop_hit_bits /
// current/old sample bitmasks.
func EndstopBit(id EndstopID) uint32 { return 1 << uint(id) }

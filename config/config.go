// Package config loads the machine description —
// steps-per-unit, endstop wiring, dual-motor fan-out, and the timing
// constants the trapezoid generator and advance engine need — from a
// YAML file, the way cjeanneret-PanGo's internal/config loads its rig
// description.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stepcore/kinematics"
	"stepcore/motion"
)

// AxisConfig describes one logical axis's step scaling, rate limit and
// homing direction.
type AxisConfig struct {
	StepsPerUnit float64 `yaml:"steps_per_unit"`
	MaxRateHz    uint32  `yaml:"max_rate_hz"`
	HomeDir      int8    `yaml:"home_dir"` // +1 or -1
}

// EndstopConfig marks which physical endstop inputs are wired.
type EndstopConfig struct {
	XMin   bool `yaml:"x_min"`
	XMax   bool `yaml:"x_max"`
	YMin   bool `yaml:"y_min"`
	YMax   bool `yaml:"y_max"`
	ZMin   bool `yaml:"z_min"`
	ZMax   bool `yaml:"z_max"`
	Z2Min  bool `yaml:"z2_min"`
	Z2Max  bool `yaml:"z2_max"`
	ZProbe bool `yaml:"z_probe"`
}

// MotorFanoutConfig selects which optional dual-motor wiring this
// machine uses (see motion.Capabilities).
type MotorFanoutConfig struct {
	DualXCarriage bool `yaml:"dual_x_carriage"`
	X2HomeDir     int8 `yaml:"x2_home_dir"`

	DualYStepperDrivers bool `yaml:"dual_y_stepper_drivers"`
	InvertY2VsY         bool `yaml:"invert_y2_vs_y"`

	DualZStepperDrivers bool `yaml:"dual_z_stepper_drivers"`
	DualZEndstops       bool `yaml:"dual_z_endstops"`

	// ZLateEnable defers energizing the Z motor until a block that
	// actually moves Z is picked up, then reschedules the next tick 1ms
	// out to let the driver wake before the first step pulse.
	ZLateEnable bool `yaml:"z_late_enable"`

	NumExtruders uint8 `yaml:"num_extruders"`
}

// BabystepConfig sets each axis's babystep direction polarity,
// independent of the axis's ordinary direction-pin inversion — modeled
// on the firmware's BABYSTEP_INVERT_* build constants.
type BabystepConfig struct {
	InvertX bool `yaml:"invert_x"`
	InvertY bool `yaml:"invert_y"`
	InvertZ bool `yaml:"invert_z"`
}

// TimingConfig holds the tick-rate constants the engine and the
// advance sub-engine convert into ticks at startup.
type TimingConfig struct {
	TimerRateHz         uint32 `yaml:"timer_rate_hz"`
	MaxStepFrequency    uint32 `yaml:"max_step_frequency"`
	DoubleStepFrequency uint32 `yaml:"double_step_frequency"`
	HighSpeedStepping   bool   `yaml:"high_speed_stepping"`
	GuardTicks          uint32 `yaml:"guard_ticks"`
	AdvanceIntervalHz   uint32 `yaml:"advance_interval_hz"`

	// HomingTimeoutMS bounds how long a homing move may run before
	// Engine's watchdog QuickStops it. HomingTimeoutTicks returns 0 (no
	// watchdog) for 0, but Load replaces an omitted or 0 value with the
	// 30000ms default, so a loaded config always arms the watchdog.
	HomingTimeoutMS uint32 `yaml:"homing_timeout_ms"`
}

// HomingTimeoutTicks converts HomingTimeoutMS to ticks at TimerRateHz,
// for Engine.SetHomingTimeout.
func (t TimingConfig) HomingTimeoutTicks() uint32 {
	if t.HomingTimeoutMS == 0 {
		return 0
	}
	return t.TimerRateHz / 1000 * t.HomingTimeoutMS
}

// Machine is the top-level configuration document.
type Machine struct {
	Kinematics string `yaml:"kinematics"` // "cartesian", "corexy", or "delta"

	Axes struct {
		X AxisConfig `yaml:"x"`
		Y AxisConfig `yaml:"y"`
		Z AxisConfig `yaml:"z"`
		E AxisConfig `yaml:"e"`
	} `yaml:"axes"`

	Endstops  EndstopConfig     `yaml:"endstops"`
	Motors    MotorFanoutConfig `yaml:"motors"`
	Timing    TimingConfig      `yaml:"timing"`
	Babystep  BabystepConfig    `yaml:"babystep"`

	AdvanceEnabled bool `yaml:"advance_enabled"`
	QueueDepth     int  `yaml:"queue_depth"`
}

// Load reads and validates a machine description from path.
func Load(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var m Machine
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Machine) applyDefaults() {
	if m.Timing.TimerRateHz == 0 {
		m.Timing.TimerRateHz = 2000000
	}
	if m.Timing.MaxStepFrequency == 0 {
		m.Timing.MaxStepFrequency = 40000
	}
	if m.Timing.DoubleStepFrequency == 0 {
		m.Timing.DoubleStepFrequency = m.Timing.MaxStepFrequency / 2
	}
	if m.Timing.GuardTicks == 0 {
		m.Timing.GuardTicks = 4
	}
	if m.Timing.AdvanceIntervalHz == 0 {
		m.Timing.AdvanceIntervalHz = 10000
	}
	if m.Timing.HomingTimeoutMS == 0 {
		m.Timing.HomingTimeoutMS = 30000
	}
	if m.Motors.NumExtruders == 0 {
		m.Motors.NumExtruders = 1
	}
	if m.QueueDepth == 0 {
		m.QueueDepth = 16
	}
	if m.Axes.X.HomeDir == 0 {
		m.Axes.X.HomeDir = -1
	}
	if m.Axes.Y.HomeDir == 0 {
		m.Axes.Y.HomeDir = -1
	}
	if m.Axes.Z.HomeDir == 0 {
		m.Axes.Z.HomeDir = -1
	}
}

// Validate rejects configurations the engine cannot run: unknown
// kinematics names and steps-per-unit values that would divide by zero
// in PositionMirror.GetMM.
func (m *Machine) Validate() error {
	if _, ok := kinematics.ParseKind(m.Kinematics); !ok {
		return fmt.Errorf("config: unknown kinematics %q", m.Kinematics)
	}
	for name, a := range map[string]AxisConfig{"x": m.Axes.X, "y": m.Axes.Y, "z": m.Axes.Z, "e": m.Axes.E} {
		if a.StepsPerUnit <= 0 {
			return fmt.Errorf("config: axes.%s.steps_per_unit must be > 0", name)
		}
	}
	if m.Motors.DualZEndstops && !m.Motors.DualZStepperDrivers {
		return fmt.Errorf("config: motors.dual_z_endstops requires motors.dual_z_stepper_drivers")
	}
	if m.Motors.NumExtruders > 4 {
		return fmt.Errorf("config: motors.num_extruders supports at most 4")
	}
	return nil
}

// StepsPerUnit collects the four axes' scaling factors in motion's axis
// order, for motion.NewPositionMirror.
func (m *Machine) StepsPerUnit() [motion.NumAxes]float64 {
	return [motion.NumAxes]float64{
		m.Axes.X.StepsPerUnit,
		m.Axes.Y.StepsPerUnit,
		m.Axes.Z.StepsPerUnit,
		m.Axes.E.StepsPerUnit,
	}
}

// Capabilities derives motion.Capabilities from the fan-out and
// kinematics sections.
func (m *Machine) Capabilities() motion.Capabilities {
	kind, _ := kinematics.ParseKind(m.Kinematics)
	return motion.Capabilities{
		CoreXY: kind.IsCoreXY(),

		DualXCarriage: m.Motors.DualXCarriage,
		XHomeDir:      m.Axes.X.HomeDir,
		X2HomeDir:     m.Motors.X2HomeDir,

		DualYStepperDrivers: m.Motors.DualYStepperDrivers,
		InvertY2VsY:         m.Motors.InvertY2VsY,

		DualZStepperDrivers: m.Motors.DualZStepperDrivers,
		DualZEndstops:       m.Motors.DualZEndstops,
		ZHomeDir:            m.Axes.Z.HomeDir,
		ZLateEnable:         m.Motors.ZLateEnable,

		NumExtruders: m.Motors.NumExtruders,
	}
}

// EndstopMap converts the wiring booleans into the [NumEndstops]bool
// motion.NewEndstops expects.
func (m *Machine) EndstopMap() [motion.NumEndstops]bool {
	var has [motion.NumEndstops]bool
	has[motion.EndXMin] = m.Endstops.XMin
	has[motion.EndXMax] = m.Endstops.XMax
	has[motion.EndYMin] = m.Endstops.YMin
	has[motion.EndYMax] = m.Endstops.YMax
	has[motion.EndZMin] = m.Endstops.ZMin
	has[motion.EndZMax] = m.Endstops.ZMax
	has[motion.EndZ2Min] = m.Endstops.Z2Min
	has[motion.EndZ2Max] = m.Endstops.Z2Max
	has[motion.EndZProbe] = m.Endstops.ZProbe
	return has
}

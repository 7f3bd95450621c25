package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"stepcore/config"
	"stepcore/motion"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

const minimalCartesian = `
kinematics: cartesian
axes:
  x: { steps_per_unit: 80 }
  y: { steps_per_unit: 80 }
  z: { steps_per_unit: 400 }
  e: { steps_per_unit: 100 }
`

func TestLoadAppliesDefaults(t *testing.T) {
	m, err := config.Load(writeConfig(t, minimalCartesian))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Timing.TimerRateHz != 2_000_000 {
		t.Errorf("TimerRateHz = %d, want default 2000000", m.Timing.TimerRateHz)
	}
	if m.Timing.GuardTicks != 4 {
		t.Errorf("GuardTicks = %d, want default 4", m.Timing.GuardTicks)
	}
	if m.Motors.NumExtruders != 1 {
		t.Errorf("NumExtruders = %d, want default 1", m.Motors.NumExtruders)
	}
	if m.QueueDepth != 16 {
		t.Errorf("QueueDepth = %d, want default 16", m.QueueDepth)
	}
	if m.Axes.X.HomeDir != -1 {
		t.Errorf("Axes.X.HomeDir = %d, want default -1", m.Axes.X.HomeDir)
	}
	if m.Timing.HomingTimeoutMS != 30000 {
		t.Errorf("Timing.HomingTimeoutMS = %d, want default 30000", m.Timing.HomingTimeoutMS)
	}
}

func TestHomingTimeoutTicksConvertsAtTimerRate(t *testing.T) {
	m, err := config.Load(writeConfig(t, minimalCartesian+`
timing:
  timer_rate_hz: 1000000
  homing_timeout_ms: 5000
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Timing.HomingTimeoutTicks(); got != 5_000_000 {
		t.Errorf("HomingTimeoutTicks() = %d, want 5000000", got)
	}
}

func TestHomingTimeoutTicksZeroDisablesWatchdog(t *testing.T) {
	tc := config.TimingConfig{TimerRateHz: 1000000, HomingTimeoutMS: 0}
	if got := tc.HomingTimeoutTicks(); got != 0 {
		t.Errorf("HomingTimeoutTicks() = %d, want 0 when HomingTimeoutMS is 0", got)
	}
}

func TestLoadRejectsUnknownKinematics(t *testing.T) {
	_, err := config.Load(writeConfig(t, "kinematics: not_a_real_kind\n"))
	if err == nil {
		t.Fatal("Load succeeded with an unknown kinematics name")
	}
}

func TestLoadRejectsZeroStepsPerUnit(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
kinematics: cartesian
axes:
  x: { steps_per_unit: 0 }
  y: { steps_per_unit: 80 }
  z: { steps_per_unit: 400 }
  e: { steps_per_unit: 100 }
`))
	if err == nil {
		t.Fatal("Load succeeded with axes.x.steps_per_unit == 0")
	}
}

func TestLoadRejectsDualZEndstopsWithoutDualZDrivers(t *testing.T) {
	_, err := config.Load(writeConfig(t, minimalCartesian+`
motors:
  dual_z_endstops: true
`))
	if err == nil {
		t.Fatal("Load succeeded with dual_z_endstops set but dual_z_stepper_drivers unset")
	}
}

func TestCapabilitiesDerivesCoreXYFromKinematics(t *testing.T) {
	m, err := config.Load(writeConfig(t, `
kinematics: corexy
axes:
  x: { steps_per_unit: 80 }
  y: { steps_per_unit: 80 }
  z: { steps_per_unit: 400 }
  e: { steps_per_unit: 100 }
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Capabilities().CoreXY {
		t.Error("Capabilities().CoreXY = false for kinematics: corexy")
	}
}

func TestEndstopMapMatchesConfiguredWiring(t *testing.T) {
	m, err := config.Load(writeConfig(t, minimalCartesian+`
endstops:
  x_min: true
  z_max: true
  z2_max: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	has := m.EndstopMap()
	if !has[motion.EndXMin] {
		t.Error("EndstopMap()[EndXMin] = false, want true")
	}
	if !has[motion.EndZMax] {
		t.Error("EndstopMap()[EndZMax] = false, want true")
	}
	if !has[motion.EndZ2Max] {
		t.Error("EndstopMap()[EndZ2Max] = false, want true")
	}
	if has[motion.EndZMin] {
		t.Error("EndstopMap()[EndZMin] = true, want false (not configured)")
	}
}

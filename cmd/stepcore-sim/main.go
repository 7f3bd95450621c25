// Command stepcore-sim runs the motion engine against the in-memory
// simulation HAL: no real hardware, a manually-pumped virtual clock,
// and a debug console for injecting moves and inspecting state. Useful
// for exercising the engine's block lifecycle and endstop logic without
// a board attached.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"stepcore/config"
	"stepcore/hal/sim"
	"stepcore/hostlink"
	"stepcore/kinematics"
	"stepcore/motion"
	"stepcore/queue"
)

var (
	configPath = flag.String("config", "machine.yaml", "path to machine config")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("stepcore-sim: %v", err)
	}

	hal := sim.New(cfg.Timing.TimerRateHz, cfg.Timing.GuardTicks)

	q := queue.New(cfg.QueueDepth)
	pm := motion.NewPositionMirror(cfg.StepsPerUnit())
	router := motion.NewRouter(hal, cfg.Capabilities())
	endstops := motion.NewEndstops(hal, cfg.Capabilities(), cfg.EndstopMap())
	trap := motion.NewTrapezoid(hal, cfg.Timing.MaxStepFrequency, cfg.Timing.DoubleStepFrequency, cfg.Timing.HighSpeedStepping)

	var advance *motion.Advance
	if cfg.AdvanceEnabled {
		advance = motion.NewAdvance(hal, router, hal.TimerRateHz()/cfg.Timing.AdvanceIntervalHz)
		advance.Enabled = true
	}

	kind, _ := kinematics.ParseKind(cfg.Kinematics)
	baby := motion.NewBabystepper(hal, pm, kind.IsDelta(), cfg.Babystep.InvertX, cfg.Babystep.InvertY, cfg.Babystep.InvertZ)

	engine := motion.NewEngine(hal, cfg.Capabilities(), q, pm, router, endstops, trap, advance, baby)
	engine.SetHomingTimeout(cfg.Timing.HomingTimeoutTicks())
	hal.SetTickHandler(engine.Tick)
	engine.Init()

	fmt.Println("stepcore-sim: engine initialized, entering console (type help)")
	console := hostlink.NewConsole(os.Stdin, os.Stdout)
	registerCommands(console, engine, hal, q, pm)

	if err := console.Run(); err != nil {
		log.Fatalf("stepcore-sim: %v", err)
	}
}

package main

import (
	"fmt"
	"io"
	"strconv"

	"stepcore/hal/sim"
	"stepcore/hostlink"
	"stepcore/motion"
	"stepcore/queue"
	"stepcore/report"
)

func registerCommands(c *hostlink.Console, engine *motion.Engine, hal *sim.HAL, q *queue.Queue, pm *motion.PositionMirror) {
	c.Register("quit", func(args []string) (string, error) { return "", io.EOF })

	c.Register("pos", func(args []string) (string, error) {
		return fmt.Sprintf("X:%.3f Y:%.3f Z:%.3f E:%.3f",
			engine.GetPositionMM(motion.AxisX), engine.GetPositionMM(motion.AxisY),
			engine.GetPositionMM(motion.AxisZ), engine.GetPositionMM(motion.AxisE)), nil
	})

	c.Register("queue_len", func(args []string) (string, error) {
		return fmt.Sprintf("queued: %d", q.Len()), nil
	})

	c.Register("pump", func(args []string) (string, error) {
		n := 1
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				n = v
			}
		}
		ran := hal.Pump(n)
		return fmt.Sprintf("ran %d ticks", ran), nil
	})

	c.Register("push", func(args []string) (string, error) {
		if len(args) < 5 {
			return "", fmt.Errorf("usage: push <steps_x> <steps_y> <steps_z> <steps_e> <nominal_rate>")
		}
		var steps [4]uint32
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseUint(args[i], 10, 32)
			if err != nil {
				return "", err
			}
			steps[i] = uint32(v)
		}
		rate, err := strconv.ParseUint(args[4], 10, 32)
		if err != nil {
			return "", err
		}
		max := steps[0]
		for _, s := range steps[1:] {
			if s > max {
				max = s
			}
		}
		block := motion.Block{
			Steps:            [motion.NumAxes]uint32{steps[0], steps[1], steps[2], steps[3]},
			StepEventCount:   max,
			AccelerateUntil:  max,
			DecelerateAfter:  max,
			InitialRate:      uint32(rate),
			NominalRate:      uint32(rate),
			FinalRate:        uint32(rate),
			AccelerationRate: 0,
		}
		if !q.Push(block) {
			return "", fmt.Errorf("queue full")
		}
		engine.WakeUp()
		return "queued", nil
	})

	c.Register("endstop", func(args []string) (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("usage: endstop <name> <0|1>")
		}
		id, ok := endstopByName(args[0])
		if !ok {
			return "", fmt.Errorf("unknown endstop %q", args[0])
		}
		hal.SetEndstop(id, args[1] == "1")
		return "ok", nil
	})

	c.Register("hit", func(args []string) (string, error) {
		hit, bits := engine.CheckHitEndstops()
		if !hit {
			return "hit=false", nil
		}
		return report.FormatEndstopHit(bits, engine.GetPositionMM), nil
	})

	c.Register("quickstop", func(args []string) (string, error) {
		engine.QuickStop()
		return "stopped", nil
	})

	c.Register("babystep", func(args []string) (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("usage: babystep <x|y|z> <0|1>")
		}
		axis, ok := babystepAxisByName(args[0])
		if !ok {
			return "", fmt.Errorf("unknown babystep axis %q", args[0])
		}
		engine.RequestBabystep(axis, args[1] == "1")
		return "queued", nil
	})
}

func babystepAxisByName(name string) (motion.BabystepAxis, bool) {
	switch name {
	case "x":
		return motion.BabystepX, true
	case "y":
		return motion.BabystepY, true
	case "z":
		return motion.BabystepZ, true
	default:
		return 0, false
	}
}

func endstopByName(name string) (motion.EndstopID, bool) {
	switch name {
	case "x_min":
		return motion.EndXMin, true
	case "x_max":
		return motion.EndXMax, true
	case "y_min":
		return motion.EndYMin, true
	case "y_max":
		return motion.EndYMax, true
	case "z_min":
		return motion.EndZMin, true
	case "z_max":
		return motion.EndZMax, true
	case "z2_min":
		return motion.EndZ2Min, true
	case "z2_max":
		return motion.EndZ2Max, true
	case "z_probe":
		return motion.EndZProbe, true
	default:
		return 0, false
	}
}

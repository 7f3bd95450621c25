// Command stepcore-rpi runs the motion engine on a Raspberry Pi against
// real GPIO, exposing a WebSocket status feed and an optional serial
// link to a host-side controller.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"stepcore/config"
	"stepcore/hal/rpi"
	"stepcore/hostlink"
	"stepcore/kinematics"
	"stepcore/motion"
	"stepcore/queue"
	"stepcore/report"
)

var (
	configPath = flag.String("config", "/etc/stepcore/machine.yaml", "path to machine config")
	listenAddr = flag.String("listen", ":8080", "status websocket listen address")
	serialDev  = flag.String("serial", "", "optional serial device for a host-side link (empty disables it)")
)

// pins is the BCM GPIO assignment for a typical RAMPS-style Cartesian
// wiring; a real deployment would load this from config instead.
var pins = rpi.PinMap{
	Step: [motion.NumMotors]int{motion.MotorX: 2, motion.MotorY: 3, motion.MotorZ: 4, motion.MotorE0: 17},
	Dir:  [motion.NumMotors]int{motion.MotorX: 5, motion.MotorY: 6, motion.MotorZ: 13, motion.MotorE0: 27},
	En:   [motion.NumMotors]int{motion.MotorX: 22, motion.MotorY: 23, motion.MotorZ: 24, motion.MotorE0: 25},
	Has:  [motion.NumMotors]bool{motion.MotorX: true, motion.MotorY: true, motion.MotorZ: true, motion.MotorE0: true},

	Endstop:    [motion.NumEndstops]int{motion.EndXMin: 9, motion.EndYMin: 10, motion.EndZMin: 11},
	HasEndstop: [motion.NumEndstops]bool{motion.EndXMin: true, motion.EndYMin: true, motion.EndZMin: true},
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("stepcore-rpi: %v", err)
	}

	hal, err := rpi.Open(pins, cfg.Timing.TimerRateHz, cfg.Timing.GuardTicks)
	if err != nil {
		log.Fatalf("stepcore-rpi: gpio open: %v", err)
	}

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
	hal.Run()
	defer hal.Stop()
	engine.Init()

	source := &statusAdapter{engine: engine, queue: q}
	status := report.NewStatusServer(source, 250*time.Millisecond)
	stop := make(chan struct{})
	go status.Run(stop)
	defer close(stop)

	if *serialDev != "" {
		go runSerialLink(*serialDev, engine, source)
	}

	http.HandleFunc("/status", status.Handler())
	log.Printf("stepcore-rpi: listening on %s", *listenAddr)
	log.Fatal(http.ListenAndServe(*listenAddr, nil))
}

// statusAdapter is the single consumer of Engine.CheckHitEndstops: the
// sticky latch clears on read, so a second independent poller would
// race it for the same hit instead of ever seeing it. When a serial
// link is attached, the status poll loop forwards the formatted echo
// line to it instead of a separate loop re-reading the latch.
type statusAdapter struct {
	engine *motion.Engine
	queue  *queue.Queue

	muLink sync.Mutex
	link   *hostlink.Link
}

func (a *statusAdapter) setLink(link *hostlink.Link) {
	a.muLink.Lock()
	a.link = link
	a.muLink.Unlock()
}

func (a *statusAdapter) Snapshot() report.Snapshot {
	hit, bits := a.engine.CheckHitEndstops()
	if hit {
		a.muLink.Lock()
		link := a.link
		a.muLink.Unlock()
		if link != nil {
			link.WriteLine(report.FormatEndstopHit(bits, a.engine.GetPositionMM))
		}
	}
	return report.Snapshot{
		PositionMM: [motion.NumAxes]float64{
			a.engine.GetPositionMM(motion.AxisX),
			a.engine.GetPositionMM(motion.AxisY),
			a.engine.GetPositionMM(motion.AxisZ),
			a.engine.GetPositionMM(motion.AxisE),
		},
		QueueDepth:  a.queue.Len(),
		EndstopHit:  hit,
		EndstopBits: bits,
	}
}

func runSerialLink(device string, engine *motion.Engine, status *statusAdapter) {
	port, err := hostlink.Open(hostlink.DefaultConfig(device))
	if err != nil {
		log.Printf("stepcore-rpi: serial link disabled: %v", err)
		return
	}
	link := hostlink.NewLink(port)
	defer link.Close()
	status.setLink(link)
	defer status.setLink(nil)

	for {
		line, err := link.ReadLine()
		if err != nil {
			log.Printf("stepcore-rpi: serial link closed: %v", err)
			return
		}
		switch {
		case line == "get_position":
			link.WriteLine(fmt.Sprintf("ok X:%.3f Y:%.3f Z:%.3f E:%.3f",
				engine.GetPositionMM(motion.AxisX), engine.GetPositionMM(motion.AxisY),
				engine.GetPositionMM(motion.AxisZ), engine.GetPositionMM(motion.AxisE)))
		case strings.HasPrefix(line, "babystep "):
			handleBabystepLine(link, engine, line)
		}
	}
}

func handleBabystepLine(link *hostlink.Link, engine *motion.Engine, line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		link.WriteLine("error: usage: babystep <x|y|z> <0|1>")
		return
	}
	var axis motion.BabystepAxis
	switch fields[1] {
	case "x":
		axis = motion.BabystepX
	case "y":
		axis = motion.BabystepY
	case "z":
		axis = motion.BabystepZ
	default:
		link.WriteLine(fmt.Sprintf("error: unknown babystep axis %q", fields[1]))
		return
	}
	engine.RequestBabystep(axis, fields[2] == "1")
	link.WriteLine("ok")
}

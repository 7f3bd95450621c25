// Package rpi is a Linux/Raspberry Pi motion.HAL backend: GPIO through
// github.com/stianeikeland/go-rpio/v4's mmap'd /dev/gpiomem access, and
// a software tick loop paced against golang.org/x/sys's monotonic clock
// instead of a hardware comparator. This is a soft-realtime substitute
// for the tinygo backend's timer interrupt — Linux gives no comparable
// guarantee, so GuardTicks is set generously to absorb scheduler jitter.
// Grounded on cjeanneret-PanGo's internal/hw/gpio/rpio.go pin wrapper.
package rpi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"golang.org/x/sys/unix"

	"stepcore/core"
	"stepcore/motion"
)

// PinMap assigns a BCM GPIO number to each motor's step/dir/enable line
// and each configured endstop input.
type PinMap struct {
	Step [motion.NumMotors]int
	Dir  [motion.NumMotors]int
	En   [motion.NumMotors]int
	Has  [motion.NumMotors]bool

	Endstop    [motion.NumEndstops]int
	HasEndstop [motion.NumEndstops]bool

	InvertStep    [motion.NumMotors]bool
	InvertEndstop [motion.NumEndstops]bool
}

// HAL runs the tick handler on its own goroutine, paced by
// CLOCK_MONOTONIC, and drives GPIO through go-rpio.
type HAL struct {
	stepPin [motion.NumMotors]rpio.Pin
	dirPin  [motion.NumMotors]rpio.Pin
	enPin   [motion.NumMotors]rpio.Pin
	hasM    [motion.NumMotors]bool
	invStep [motion.NumMotors]bool

	endPin    [motion.NumEndstops]rpio.Pin
	hasEnd    [motion.NumEndstops]bool
	invEnd    [motion.NumEndstops]bool

	timerRateHz uint32
	guardTicks  uint32

	startNs    int64
	nextTarget uint32 // atomic
	tickOn     int32  // atomic bool
	onTick     func()

	stop chan struct{}
	wg   sync.WaitGroup
}

// Open maps GPIO memory and configures every pin pins declares present.
// Requires /dev/gpiomem access (root, or the gpio group on modern
// Raspberry Pi OS).
func Open(pins PinMap, timerRateHz, guardTicks uint32) (*HAL, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}

	h := &HAL{timerRateHz: timerRateHz, guardTicks: guardTicks, stop: make(chan struct{})}
	for m := motion.Motor(0); m < motion.NumMotors; m++ {
		if !pins.Has[m] {
			continue
		}
		h.hasM[m] = true
		h.invStep[m] = pins.InvertStep[m]
		h.stepPin[m] = rpio.Pin(pins.Step[m])
		h.dirPin[m] = rpio.Pin(pins.Dir[m])
		h.enPin[m] = rpio.Pin(pins.En[m])
		h.stepPin[m].Output()
		h.dirPin[m].Output()
		h.enPin[m].Output()
	}
	for id := motion.EndstopID(0); id < motion.NumEndstops; id++ {
		if !pins.HasEndstop[id] {
			continue
		}
		h.hasEnd[id] = true
		h.invEnd[id] = pins.InvertEndstop[id]
		h.endPin[id] = rpio.Pin(pins.Endstop[id])
		h.endPin[id].Input()
		h.endPin[id].PullUp()
	}

	var ts unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	h.startNs = ts.Nano()

	return h, nil
}

// SetTickHandler wires the engine's Tick method as the pacing loop's
// callback.
func (h *HAL) SetTickHandler(fn func()) { h.onTick = fn }

// Run starts the pacing goroutine. Call once, after SetTickHandler.
func (h *HAL) Run() {
	h.wg.Add(1)
	go h.loop()
}

// Stop halts the pacing goroutine and releases the GPIO mapping.
func (h *HAL) Stop() {
	close(h.stop)
	h.wg.Wait()
	rpio.Close()
}

func (h *HAL) loop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.stop:
			return
		default:
		}
		if atomic.LoadInt32(&h.tickOn) == 0 {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		target := atomic.LoadUint32(&h.nextTarget)
		targetNs := h.startNs + int64(target)*int64(time.Second)/int64(h.timerRateHz)
		nowNs := h.nowNs()
		if wait := targetNs - nowNs; wait > 0 {
			if wait > int64(200*time.Microsecond) {
				time.Sleep(time.Duration(wait) - 100*time.Microsecond)
			}
			for h.nowNs() < targetNs {
				// short busy-spin for the last stretch: Linux's
				// scheduler wakeup jitter is worse than the spin cost.
			}
		}
		if h.onTick != nil {
			h.onTick()
		}
	}
}

func (h *HAL) nowNs() int64 {
	var ts unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return ts.Nano()
}

func (h *HAL) SetStep(m motion.Motor, high bool) {
	if !h.hasM[m] {
		return
	}
	if high != h.invStep[m] {
		h.stepPin[m].High()
	} else {
		h.stepPin[m].Low()
	}
}

func (h *HAL) SetDir(m motion.Motor, negative bool) {
	if !h.hasM[m] {
		return
	}
	if negative {
		h.dirPin[m].High()
	} else {
		h.dirPin[m].Low()
	}
}

func (h *HAL) SetEnable(m motion.Motor, enabled bool) {
	if !h.hasM[m] {
		return
	}
	if enabled {
		h.enPin[m].Low()
	} else {
		h.enPin[m].High()
	}
}

func (h *HAL) ReadEndstop(id motion.EndstopID) bool {
	if !h.hasEnd[id] {
		return false
	}
	triggered := h.endPin[id].Read() == rpio.High
	return triggered != h.invEnd[id]
}

func (h *HAL) ScheduleNextTick(intervalTicks uint32) {
	next := atomic.LoadUint32(&h.nextTarget) + intervalTicks
	now := h.Now()
	if next <= now+h.guardTicks {
		clamped := now + h.guardTicks
		core.RecordTiming(core.EvtGuardClamp, 0, now, intervalTicks, clamped)
		next = clamped
	}
	atomic.StoreUint32(&h.nextTarget, next)
}

func (h *HAL) EnableTickInterrupt()  { atomic.StoreInt32(&h.tickOn, 1) }
func (h *HAL) DisableTickInterrupt() { atomic.StoreInt32(&h.tickOn, 0) }

func (h *HAL) Now() uint32 {
	elapsed := h.nowNs() - h.startNs
	return uint32(elapsed * int64(h.timerRateHz) / int64(time.Second))
}

func (h *HAL) GuardTicks() uint32  { return h.guardTicks }
func (h *HAL) TimerRateHz() uint32 { return h.timerRateHz }

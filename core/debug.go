package core

import "strconv"

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis.
type TimingEvent struct {
	EventType uint8  // event type code
	Axis      uint8  // axis or motor index, when applicable
	Clock     uint32 // system clock at event
	Value1    uint32
	Value2    uint32
}

// Event type codes for the stepper ISR's hot-path ring buffer.
const (
	EvtBlockStart    = 1 // engine dequeued a new block
	EvtBlockDone     = 2 // block fully traced, discarded
	EvtTickFire      = 3 // tick handler ran, timer reprogrammed
	EvtGuardClamp    = 4 // ScheduleNextTick had to clamp to GuardTicks
	EvtEndstopHit    = 5 // an endstop latched
	EvtQuickStop     = 6 // QuickStop invoked
	EvtHomingTimeout = 7 // homing watchdog fired while homing was still in progress
)

const TimingRingSize = 32

var (
	debugPrintln  DebugWriter = func(s string) {}
	debugEnabled  bool
	timingRing    [TimingRingSize]TimingEvent
	timingHead    uint8
	timingEnabled = true
	totalSteps    uint32
)

// SetDebugWriter sets the platform-specific debug output function,
// letting a backend redirect it to UART, USB, or stdout.
func SetDebugWriter(w DebugWriter) { debugPrintln = w }

// SetDebugEnabled toggles synchronous debug output. Off by default:
// even a cheap format+write is too slow for the tick handler.
func SetDebugEnabled(enabled bool) { debugEnabled = enabled }

func IsDebugEnabled() bool { return debugEnabled }

// DebugPrintln writes a debug message through the platform writer, if
// enabled. Never call this from the tick handler with debug enabled on
// real hardware; it exists for thread-context diagnostics.
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// RecordTiming appends an event to the ring buffer. Always non-blocking
// and safe to call from ISR context.
func RecordTiming(eventType, axis uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	timingRing[timingHead] = TimingEvent{
		EventType: eventType,
		Axis:      axis,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingHead = (timingHead + 1) % TimingRingSize
	if eventType == EvtTickFire {
		totalSteps++
	}
}

// DumpTimingRing renders the ring buffer through the debug writer,
// oldest event first. Intended for post-mortem use after QuickStop or a
// fatal endstop condition, from thread context.
func DumpTimingRing() {
	debugPrintln("[TIMING] === Timing Ring Dump ===")
	debugPrintln("[TIMING] total ticks recorded: " + strconv.Itoa(int(totalSteps)))
	for i := uint8(0); i < TimingRingSize; i++ {
		idx := (timingHead + i) % TimingRingSize
		evt := &timingRing[idx]
		if evt.EventType == 0 {
			continue
		}
		debugPrintln("[TIMING] " + eventName(evt.EventType) +
			" axis=" + strconv.Itoa(int(evt.Axis)) +
			" clock=" + strconv.Itoa(int(evt.Clock)) +
			" v1=" + strconv.Itoa(int(evt.Value1)) +
			" v2=" + strconv.Itoa(int(evt.Value2)))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

func eventName(t uint8) string {
	switch t {
	case EvtBlockStart:
		return "BLOCK_START"
	case EvtBlockDone:
		return "BLOCK_DONE"
	case EvtTickFire:
		return "TICK_FIRE"
	case EvtGuardClamp:
		return "GUARD_CLAMP"
	case EvtEndstopHit:
		return "ENDSTOP_HIT"
	case EvtQuickStop:
		return "QUICK_STOP"
	case EvtHomingTimeout:
		return "HOMING_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// ClearTimingRing resets the ring buffer, called after a DumpTimingRing
// the caller doesn't want to see repeated.
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingHead = 0
}

package core_test

import (
	"strings"
	"testing"

	"stepcore/core"
)

func TestDebugPrintlnOnlyWritesWhenEnabled(t *testing.T) {
	var lines []string
	core.SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer core.SetDebugWriter(func(string) {})

	core.SetDebugEnabled(false)
	core.DebugPrintln("should not appear")
	if len(lines) != 0 {
		t.Fatalf("DebugPrintln wrote %d lines while disabled, want 0", len(lines))
	}

	core.SetDebugEnabled(true)
	defer core.SetDebugEnabled(false)
	core.DebugPrintln("hello")
	if len(lines) != 1 || lines[0] != "hello" {
		t.Fatalf("lines = %v, want [\"hello\"]", lines)
	}
}

func TestTimingRingRecordsAndDumpsEvents(t *testing.T) {
	core.ClearTimingRing()
	defer core.ClearTimingRing()

	var out []string
	core.SetDebugWriter(func(s string) { out = append(out, s) })
	defer core.SetDebugWriter(func(string) {})
	core.SetDebugEnabled(true)
	defer core.SetDebugEnabled(false)

	core.RecordTiming(core.EvtBlockStart, 0, 100, 5, 0)
	core.RecordTiming(core.EvtTickFire, 0, 101, 0, 0)
	core.RecordTiming(core.EvtEndstopHit, 1, 102, 0, 0)

	core.DumpTimingRing()

	joined := strings.Join(out, "\n")
	for _, want := range []string{"BLOCK_START", "TICK_FIRE", "ENDSTOP_HIT", "clock=102"} {
		if !strings.Contains(joined, want) {
			t.Errorf("dump output missing %q:\n%s", want, joined)
		}
	}
}

func TestTimingRingWrapsAroundCapacity(t *testing.T) {
	core.ClearTimingRing()
	defer core.ClearTimingRing()

	for i := 0; i < core.TimingRingSize+5; i++ {
		core.RecordTiming(core.EvtTickFire, 0, uint32(i), 0, 0)
	}

	var out []string
	core.SetDebugWriter(func(s string) { out = append(out, s) })
	defer core.SetDebugWriter(func(string) {})
	core.SetDebugEnabled(true)
	defer core.SetDebugEnabled(false)

	core.DumpTimingRing()
	// After wrapping, the oldest surviving clock value should be
	// TimingRingSize+5 - TimingRingSize == 5, not 0.
	joined := strings.Join(out, "\n")
	if strings.Contains(joined, "clock=0 ") {
		t.Error("dump still contains an overwritten event (clock=0)")
	}
	if !strings.Contains(joined, "clock=5") {
		t.Error("dump missing the oldest surviving event (clock=5)")
	}
}

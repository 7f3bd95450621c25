package motion

// Tracer walks the Bresenham line algorithm across the block's four
// axis step counts against the dominant-axis StepEventCount, one
// StepAxis call per axis per step event. Each axis has its own signed
// accumulator seeded to -StepEventCount/2, matching the source's
// counter_x/y/z/e initialization.
type Tracer struct {
	counter               [NumAxes]int64
	StepEventsCompleted   uint32
	OutBits               uint8
	CleaningBufferCounter uint32
}

// ArmCleaningBuffer puts the tracer into "flush after quick-stop" mode
// for n ticks: Engine.Tick discards any block it finds instead of
// tracing it until the counter decays to zero, so a block pushed by the
// producer immediately after a QuickStop still gets discarded during
// the settle window instead of being picked up and run.
func (tr *Tracer) ArmCleaningBuffer(n uint32) {
	tr.CleaningBufferCounter = n
}

// ResetForBlock seeds the accumulators for a freshly started block.
func (tr *Tracer) ResetForBlock(stepEventCount uint32) {
	init := -int64(stepEventCount / 2)
	for i := range tr.counter {
		tr.counter[i] = init
	}
	tr.StepEventsCompleted = 0
}

// StepAxis advances axis's Bresenham accumulator by its per-event step
// count and reports whether that axis should pulse this event.
func (tr *Tracer) StepAxis(axis Axis, steps uint32, stepEventCount uint32) bool {
	tr.counter[axis] += int64(steps)
	if tr.counter[axis] <= 0 {
		return false
	}
	tr.counter[axis] -= int64(stepEventCount)
	return true
}

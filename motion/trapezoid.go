package motion

// Trapezoid is the per-tick step-rate recurrence
// driving the accel/cruise/decel phases of the current block, and the
// step-rate-to-timer-interval conversion including the optional
// step-doubling/quadrupling used above DoubleStepFrequency.
type Trapezoid struct {
	hal HAL

	MaxStepFrequency    uint32
	DoubleStepFrequency uint32
	HighSpeedStepping   bool

	AccStepRate      uint32
	AccelerationTime uint32
	DecelerationTime uint32

	StepLoops        uint8
	StepLoopsNominal uint8
	NominalInterval  uint32
}

func NewTrapezoid(hal HAL, maxStepFrequency, doubleStepFrequency uint32, highSpeedStepping bool) *Trapezoid {
	return &Trapezoid{
		hal:                 hal,
		MaxStepFrequency:    maxStepFrequency,
		DoubleStepFrequency: doubleStepFrequency,
		HighSpeedStepping:   highSpeedStepping,
	}
}

// CalcTimer converts a step rate (Hz) into a timer interval (ticks),
// clamping the rate to MaxStepFrequency and, when HighSpeedStepping is
// set, folding two or four Bresenham iterations into a single timer
// period once the rate climbs past DoubleStepFrequency thresholds —
// calc_timer in the original firmware.
func (t *Trapezoid) CalcTimer(rate uint32) uint32 {
	if rate > t.MaxStepFrequency {
		rate = t.MaxStepFrequency
	}
	t.StepLoops = 1
	if t.HighSpeedStepping {
		switch {
		case rate > 2*t.DoubleStepFrequency:
			rate >>= 2
			t.StepLoops = 4
		case rate > t.DoubleStepFrequency:
			rate >>= 1
			t.StepLoops = 2
		}
	}
	if rate < 1 {
		rate = 1
	}
	return t.hal.TimerRateHz() / rate
}

// Reset re-arms the recurrence at the start of a new block —
// trapezoid_generator_reset.
func (t *Trapezoid) Reset(block *Block) {
	t.NominalInterval = t.CalcTimer(block.NominalRate)
	t.StepLoopsNominal = t.StepLoops
	t.AccStepRate = block.InitialRate
	t.AccelerationTime = t.CalcTimer(block.InitialRate)
	t.DecelerationTime = 0
}

// Advance computes the timer interval for the next tick given how many
// step events have completed so far in the current block, mutating the
// accumulated accel/decel time exactly like the ISR's inline recurrence.
func (t *Trapezoid) Advance(block *Block, stepEventsCompleted uint32) uint32 {
	switch {
	case stepEventsCompleted <= block.AccelerateUntil:
		delta := mulU32X32H32(t.AccelerationTime, block.AccelerationRate)
		rate := block.InitialRate + delta
		if rate > block.NominalRate {
			rate = block.NominalRate
		}
		t.AccStepRate = rate
		timer := t.CalcTimer(rate)
		t.AccelerationTime += timer
		return timer

	case stepEventsCompleted > block.DecelerateAfter:
		delta := mulU32X32H32(t.DecelerationTime, block.AccelerationRate)
		var rate uint32
		if delta > t.AccStepRate {
			rate = block.FinalRate
		} else {
			rate = t.AccStepRate - delta
		}
		if rate < block.FinalRate {
			rate = block.FinalRate
		}
		t.AccStepRate = rate
		timer := t.CalcTimer(rate)
		t.DecelerationTime += timer
		return timer

	default:
		t.StepLoops = t.StepLoopsNominal
		return t.NominalInterval
	}
}

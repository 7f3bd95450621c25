package core

import "testing"

func TestSchedulerFiresTimerOnceDue(t *testing.T) {
	SetTime(0)
	fired := 0
	ScheduleTimer(&Timer{
		WakeTime: 100,
		Handler: func(*Timer) uint8 {
			fired++
			return SF_DONE
		},
	})

	SetTime(50)
	ProcessTimers()
	if fired != 0 {
		t.Fatalf("fired = %d before WakeTime, want 0", fired)
	}

	SetTime(100)
	ProcessTimers()
	if fired != 1 {
		t.Fatalf("fired = %d at WakeTime, want 1", fired)
	}

	SetTime(200)
	ProcessTimers()
	if fired != 1 {
		t.Fatalf("fired = %d after a SF_DONE timer's WakeTime passed again, want 1 (no re-fire)", fired)
	}
}

func TestSchedulerReschedulesOnReschedule(t *testing.T) {
	SetTime(0)
	runs := 0
	t1 := &Timer{WakeTime: 10}
	t1.Handler = func(*Timer) uint8 {
		runs++
		if runs < 3 {
			t1.WakeTime = GetTime() + 10
			return SF_RESCHEDULE
		}
		return SF_DONE
	}
	ScheduleTimer(t1)

	SetTime(10)
	ProcessTimers()
	SetTime(20)
	ProcessTimers()
	SetTime(30)
	ProcessTimers()

	if runs != 3 {
		t.Fatalf("runs = %d, want 3", runs)
	}

	SetTime(100)
	ProcessTimers()
	if runs != 3 {
		t.Fatalf("runs = %d after the timer returned SF_DONE, want 3 (no further dispatch)", runs)
	}
}

func TestSchedulerDispatchesInWakeTimeOrder(t *testing.T) {
	SetTime(0)
	var order []int
	ScheduleTimer(&Timer{WakeTime: 30, Handler: func(*Timer) uint8 {
		order = append(order, 30)
		return SF_DONE
	}})
	ScheduleTimer(&Timer{WakeTime: 10, Handler: func(*Timer) uint8 {
		order = append(order, 10)
		return SF_DONE
	}})
	ScheduleTimer(&Timer{WakeTime: 20, Handler: func(*Timer) uint8 {
		order = append(order, 20)
		return SF_DONE
	}})

	SetTime(30)
	ProcessTimers()

	want := []int{10, 20, 30}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestTimerDispatchUsesFrozenCurrentTime(t *testing.T) {
	currentTime = 0
	fired := false
	ScheduleTimer(&Timer{WakeTime: 5, Handler: func(*Timer) uint8 {
		fired = true
		return SF_DONE
	}})

	currentTime = 4
	TimerDispatch()
	if fired {
		t.Fatal("TimerDispatch fired a timer before currentTime reached WakeTime")
	}

	currentTime = 5
	TimerDispatch()
	if !fired {
		t.Fatal("TimerDispatch did not fire a timer due at currentTime")
	}
}

package capture

import (
	"testing"
	"time"
)

func TestNewCaptureClock_RejectsOutOfRangeFrameRate(t *testing.T) {
	for _, fps := range []int{0, -1, 121, 1000} {
		if _, err := NewCaptureClock(0, Real(time.Now()), fps, nil); err == nil {
			t.Fatalf("frame_rate=%d: expected error, got nil", fps)
		}
	}
}

func TestNewCaptureClock_AcceptsBoundaryFrameRates(t *testing.T) {
	for _, fps := range []int{1, 120} {
		if _, err := NewCaptureClock(0, Real(time.Now()), fps, nil); err != nil {
			t.Fatalf("frame_rate=%d: unexpected error: %v", fps, err)
		}
	}
}

func TestCaptureClock_DueAndAdvance(t *testing.T) {
	clk, err := NewCaptureClock(0, Real(time.Now()), 25, nil)
	if err != nil {
		t.Fatalf("NewCaptureClock: %v", err)
	}
	if !clk.Due(0) {
		t.Fatal("expected due at t=0")
	}
	clk.Advance(0)
	if clk.Due(0) {
		t.Fatal("expected not due immediately after advance")
	}
	if !Monotonic(0).Before(clk.nextTraceTime) {
		t.Fatalf("next_trace_time must be strictly after now: got %v", clk.nextTraceTime)
	}
}

func TestCaptureClock_AdvanceNeverBacklogsAfterLongStall(t *testing.T) {
	clk, err := NewCaptureClock(0, Real(time.Now()), 25, nil)
	if err != nil {
		t.Fatalf("NewCaptureClock: %v", err)
	}
	stall := Monotonic(10 * time.Second)
	clk.Advance(stall)
	if clk.nextTraceTime.Sub(stall) <= 0 {
		t.Fatalf("expected next_trace_time strictly after stall point")
	}
	// Exactly one frame interval ahead, not a decade of missed frames.
	if d := clk.nextTraceTime.Sub(stall); d <= 0 || d > clk.FrameInterval() {
		t.Fatalf("expected single frame_interval catch-up, got %v", d)
	}
}

func TestCaptureClock_SynchronizeTimesInvariant(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk, err := NewCaptureClock(0, Real(start), 25, time.UTC)
	if err != nil {
		t.Fatalf("NewCaptureClock: %v", err)
	}
	m := Monotonic(5 * time.Second)
	r := Real(start.Add(time.Hour))
	clk.SynchronizeTimes(m, r)
	if got := clk.ToReal(m); time.Time(got) != time.Time(r) {
		t.Fatalf("ToReal(m) = %v, want %v", got, r)
	}
	// Idempotent: re-applying the same pair changes nothing observable.
	clk.SynchronizeTimes(m, r)
	if got := clk.ToReal(m); time.Time(got) != time.Time(r) {
		t.Fatalf("ToReal(m) after repeat sync = %v, want %v", got, r)
	}
}

func TestCaptureClock_WaitUntilNextFlooredAtZero(t *testing.T) {
	clk, err := NewCaptureClock(0, Real(time.Now()), 25, nil)
	if err != nil {
		t.Fatalf("NewCaptureClock: %v", err)
	}
	if d := clk.WaitUntilNext(Monotonic(time.Second)); d != 0 {
		t.Fatalf("WaitUntilNext past deadline = %v, want 0", d)
	}
}

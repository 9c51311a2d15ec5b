package capture

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFrameRate is returned when frame_rate falls outside [1, 120].
var ErrInvalidFrameRate = errors.New("capture: invalid frame rate")

// Monotonic is a steady, never-decreasing instant with no relation to wall
// clock time. It is the sole authority used for scheduling.
type Monotonic time.Duration

// Real is a wall-clock instant, used only for overlay rendering and
// broken-down local time.
type Real time.Time

// Add returns m advanced by d.
func (m Monotonic) Add(d time.Duration) Monotonic {
	return Monotonic(time.Duration(m) + d)
}

// Sub returns the duration between m and o (m - o).
func (m Monotonic) Sub(o Monotonic) time.Duration {
	return time.Duration(m) - time.Duration(o)
}

// Before reports whether m occurs before o.
func (m Monotonic) Before(o Monotonic) bool {
	return m < o
}

// CaptureClock converts monotonic instants to wall-clock instants and
// schedules frame deadlines at a fixed 1/frame_rate cadence. It never reads
// wall-clock time in the hot path: the real-time mapping is consulted only
// when a frame is actually stamped, so NTP steps cannot introduce scheduling
// jitter.
type CaptureClock struct {
	frameInterval  time.Duration
	nextTraceTime  Monotonic
	lastCaptureAt  Monotonic
	monotonicAnchor Monotonic
	realAnchor      Real
	loc             *time.Location
}

// NewCaptureClock builds a clock anchored at (monotonicNow, realNow) with
// the given frame_rate (frames per second, 1..120 inclusive). loc is the
// timezone used for ToBrokenDown; passing nil selects time.Local. Injecting
// the timezone here, rather than relying on process-global state, is
// deliberate: see SPEC_FULL.md §9.
func NewCaptureClock(monotonicNow Monotonic, realNow Real, frameRate int, loc *time.Location) (*CaptureClock, error) {
	if frameRate < 1 || frameRate > 120 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameRate, frameRate)
	}
	if loc == nil {
		loc = time.Local
	}
	return &CaptureClock{
		frameInterval:   time.Second / time.Duration(frameRate),
		nextTraceTime:   monotonicNow,
		lastCaptureAt:   monotonicNow,
		monotonicAnchor: monotonicNow,
		realAnchor:      realNow,
		loc:             loc,
	}, nil
}

// FrameInterval returns the fixed 1/frame_rate duration.
func (c *CaptureClock) FrameInterval() time.Duration {
	return c.frameInterval
}

// SynchronizeTimes sets the monotonic-to-real mapping so that
// ToReal(m) == r. Idempotent for a (m, r) pair already in effect.
func (c *CaptureClock) SynchronizeTimes(m Monotonic, r Real) {
	c.monotonicAnchor = m
	c.realAnchor = r
}

// ToReal maps a monotonic instant to wall-clock time using the current
// affine offset.
func (c *CaptureClock) ToReal(m Monotonic) Real {
	offset := m.Sub(c.monotonicAnchor)
	return Real(time.Time(c.realAnchor).Add(offset))
}

// ToBrokenDown returns the local-time components (per the injected
// timezone) corresponding to m.
func (c *CaptureClock) ToBrokenDown(m Monotonic) time.Time {
	return time.Time(c.ToReal(m)).In(c.loc)
}

// Due reports whether now has reached or passed the next scheduled frame
// deadline.
func (c *CaptureClock) Due(now Monotonic) bool {
	return !now.Before(c.nextTraceTime)
}

// Advance moves the next frame deadline forward by the smallest positive
// multiple of frame_interval that puts it strictly after now. This bounds a
// long stall to emitting a single catch-up frame rather than a backlog.
func (c *CaptureClock) Advance(now Monotonic) {
	if now.Before(c.lastCaptureAt) {
		// ClockWentBackwards: treated as idempotent, no state change; callers
		// detect and report the condition through WentBackwards.
		return
	}
	c.lastCaptureAt = now

	delta := now.Sub(c.nextTraceTime)
	var k time.Duration = 1
	if delta >= 0 {
		k = delta/c.frameInterval + 1
	}
	c.nextTraceTime = c.nextTraceTime.Add(k * c.frameInterval)
}

// WaitUntilNext reports the duration until the next scheduled frame
// deadline, floored at zero.
func (c *CaptureClock) WaitUntilNext(now Monotonic) time.Duration {
	d := c.nextTraceTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// WentBackwards reports whether now precedes the last successfully
// processed capture instant (the ClockWentBackwards error condition).
func (c *CaptureClock) WentBackwards(now Monotonic) bool {
	return now.Before(c.lastCaptureAt)
}

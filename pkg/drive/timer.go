package drive

import (
	"math"
	"time"
)

// Clock reports monotonic time in milliseconds.
type Clock interface {
	NowMillis() uint64
}

// SystemClock counts milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock starts a clock at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// NowMillis returns milliseconds since the clock started.
func (c *SystemClock) NowMillis() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

// Timer is a non-blocking gate on the current action. It never sleeps; the
// control loop polls Elapsed every cycle.
type Timer struct {
	clock      Clock
	durationMs uint64
	startMs    uint64
}

// NewTimer creates an elapsed timer.
func NewTimer(clock Clock) *Timer {
	return &Timer{clock: clock}
}

// Arm starts a new action lasting the given number of seconds.
func (t *Timer) Arm(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	t.startMs = t.clock.NowMillis()
	t.durationMs = uint64(math.Round(seconds * 1000))
}

// Elapsed reports whether the armed duration has passed.
func (t *Timer) Elapsed() bool {
	return t.clock.NowMillis() >= t.startMs+t.durationMs
}

// Remaining returns the time left on the current action.
func (t *Timer) Remaining() time.Duration {
	now, end := t.clock.NowMillis(), t.startMs+t.durationMs
	if now >= end {
		return 0
	}
	return time.Duration(end-now) * time.Millisecond
}

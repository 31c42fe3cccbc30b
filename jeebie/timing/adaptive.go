package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	targetFrameTime time.Duration
	nextFrameTime   time.Time
	frameCounter    int64
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	return &AdaptiveLimiter{
		targetFrameTime: FrameDuration(),
		nextFrameTime:   time.Now(),
	}
}

// spinUntil busy-waits until t, used for the last stretch of a frame wait
// where time.Sleep's scheduling granularity would overshoot.
func spinUntil(t time.Time) {
	for time.Now().Before(t) {
	}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	sleepTime := a.nextFrameTime.Sub(now)

	if sleepTime > 0 {
		if sleepTime >= 2*time.Millisecond {
			time.Sleep(sleepTime - time.Millisecond)
		}
		spinUntil(a.nextFrameTime)
	} else if sleepTime < -5*time.Millisecond {
		// We've fallen badly behind (e.g. after a pause) - resync instead of
		// trying to catch up frame by frame.
		a.nextFrameTime = now
	}

	a.nextFrameTime = a.nextFrameTime.Add(a.targetFrameTime)
	a.frameCounter++

	if a.frameCounter%60 == 0 {
		a.correctDrift()
	}
}

// correctDrift nudges nextFrameTime toward actual wall-clock time once every
// 60 frames, so small per-frame rounding errors don't accumulate into a
// noticeable lag over a long play session.
func (a *AdaptiveLimiter) correctDrift() {
	drift := time.Now().Sub(a.nextFrameTime)
	if drift.Abs() <= 10*time.Millisecond {
		return
	}

	a.nextFrameTime = a.nextFrameTime.Add(drift / 10)
	slog.Debug("Frame timing drift correction",
		"drift_ms", drift.Milliseconds(),
		"frame", a.frameCounter)
}

func (a *AdaptiveLimiter) Reset() {
	a.nextFrameTime = time.Now()
	a.frameCounter = 0
}

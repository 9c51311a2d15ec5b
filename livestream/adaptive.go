// Package livestream delivers the same frames the capture pipeline emits
// to segment files over a WebRTC peer connection, with an AIMD bitrate
// controller reacting to RTCP receiver reports — adapted from the
// teacher's internal/remote/desktop session/adaptive bitrate stack.
package livestream

import (
	"sync"
	"time"
)

// BitrateLimits bounds the AIMD controller's output.
type BitrateLimits struct {
	Min, Max, Initial int // bits per second
}

// AdaptiveBitrate implements additive-increase/multiplicative-decrease
// bitrate control off periodic RTCP feedback, mirroring the teacher's
// adaptive.go: a cooldown between increases, an immediate decrease on loss,
// clamped to configured bounds.
type AdaptiveBitrate struct {
	mu sync.Mutex

	limits BitrateLimits
	current int

	increaseStep   int
	decreaseFactor float64
	cooldown       time.Duration
	lastIncrease   time.Time

	now func() time.Time
}

// NewAdaptiveBitrate builds a controller starting at limits.Initial.
func NewAdaptiveBitrate(limits BitrateLimits) *AdaptiveBitrate {
	return &AdaptiveBitrate{
		limits:         limits,
		current:        limits.Initial,
		increaseStep:   limits.Initial / 10,
		decreaseFactor: 0.75,
		cooldown:       2 * time.Second,
		now:            time.Now,
	}
}

// Current returns the controller's current target bitrate.
func (a *AdaptiveBitrate) Current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// OnReceiverReport feeds one RTCP receiver report's observed fraction lost
// (0..255, per RFC 3550) into the controller. A nonzero loss triggers an
// immediate multiplicative decrease; zero loss triggers an additive
// increase, but only once per cooldown window, to avoid oscillating on
// report jitter.
func (a *AdaptiveBitrate) OnReceiverReport(fractionLost uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if fractionLost > 0 {
		a.current = int(float64(a.current) * a.decreaseFactor)
		a.lastIncrease = a.now() // reset cooldown so we don't immediately re-increase
	} else {
		if a.now().Sub(a.lastIncrease) < a.cooldown {
			return
		}
		a.current += a.increaseStep
		a.lastIncrease = a.now()
	}
	a.clamp()
}

func (a *AdaptiveBitrate) clamp() {
	if a.current < a.limits.Min {
		a.current = a.limits.Min
	}
	if a.current > a.limits.Max {
		a.current = a.limits.Max
	}
}

package capture

import (
	"hash/crc32"
	"sync"
)

// frameDiffer is a CRC32 pixel-hash change detector that sits beside
// DamageTracker's rect-union tracking, mirroring the CRC32 hint the
// teacher's screen-capture pipeline uses to skip re-encoding unchanged
// frames. CaptureCtx constructs one, but no frame path consults it: the
// timestamp band is stamped on every prepared frame and emission cadence is
// purely clock-driven per spec.md §4.1.
type frameDiffer struct {
	mu       sync.Mutex
	lastSum  uint32
	lastSet  bool
	changed  uint64
	unchanged uint64
}

func newFrameDiffer() *frameDiffer {
	return &frameDiffer{}
}

// HasChanged reports whether pix differs from the last observed buffer,
// updating the running checksum as a side effect.
func (d *frameDiffer) HasChanged(pix []byte) bool {
	sum := crc32.ChecksumIEEE(pix)
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := !d.lastSet || sum != d.lastSum
	d.lastSum = sum
	d.lastSet = true
	if changed {
		d.changed++
	} else {
		d.unchanged++
	}
	return changed
}

// Reset forgets the last observed checksum, forcing the next HasChanged
// call to report a change.
func (d *frameDiffer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSet = false
}

// Stats returns the number of HasChanged calls so far, split by outcome.
func (d *frameDiffer) Stats() (changed, unchanged uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed, d.unchanged
}

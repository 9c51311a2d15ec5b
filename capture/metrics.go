package capture

import (
	"sync"
	"time"
)

// StreamMetrics is a mutex-guarded counter block tracking capture-pipeline
// throughput, adapted from the teacher's session-level StreamMetrics to
// capture-specific fields (no WebRTC send/bandwidth accounting here — that
// lives in livestream.Metrics instead).
type StreamMetrics struct {
	mu sync.Mutex

	framesCaptured uint64
	framesEmitted  uint64
	framesSkipped  uint64
	framesDropped  uint64
	segmentsOpened uint64
	segmentsClosed uint64

	lastCaptureDuration time.Duration
	lastEncodeDuration  time.Duration
	startedAt           time.Time
}

// NewStreamMetrics returns a zeroed metrics block stamped with the current
// time as its start instant.
func NewStreamMetrics(startedAt time.Time) *StreamMetrics {
	return &StreamMetrics{startedAt: startedAt}
}

func (m *StreamMetrics) RecordCapture(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesCaptured++
	m.lastCaptureDuration = d
}

func (m *StreamMetrics) RecordEmit(encodeDuration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesEmitted++
	m.lastEncodeDuration = encodeDuration
}

func (m *StreamMetrics) RecordSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesSkipped++
}

func (m *StreamMetrics) RecordDrop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesDropped++
}

func (m *StreamMetrics) RecordSegmentOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segmentsOpened++
}

func (m *StreamMetrics) RecordSegmentClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segmentsClosed++
}

// MetricsSnapshot is a value-type copy of the current counters, safe to
// read without holding the metrics lock.
type MetricsSnapshot struct {
	FramesCaptured, FramesEmitted, FramesSkipped, FramesDropped uint64
	SegmentsOpened, SegmentsClosed                              uint64
	LastCaptureDuration, LastEncodeDuration                     time.Duration
	Uptime                                                      time.Duration
}

// Snapshot returns a consistent point-in-time copy of the counters.
func (m *StreamMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		FramesCaptured:      m.framesCaptured,
		FramesEmitted:       m.framesEmitted,
		FramesSkipped:       m.framesSkipped,
		FramesDropped:       m.framesDropped,
		SegmentsOpened:      m.segmentsOpened,
		SegmentsClosed:      m.segmentsClosed,
		LastCaptureDuration: m.lastCaptureDuration,
		LastEncodeDuration:  m.lastEncodeDuration,
		Uptime:              time.Since(m.startedAt),
	}
}

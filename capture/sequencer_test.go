package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testBackend is a minimal capture.Backend registered under "raw" for these
// tests, avoiding a dependency on the capture/codec subpackage (which
// imports capture itself and would create an import cycle from an internal
// test file).
type testBackend struct {
	f *os.File
}

func init() {
	RegisterCodec("raw", func() Backend { return &testBackend{} })
}

func (b *testBackend) Open(opts EncoderOptions) error {
	f, err := os.OpenFile(opts.Filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	b.f = f
	return nil
}

func (b *testBackend) PushFrame(view ImageView, _ Monotonic) error {
	_, err := b.f.Write(view.Pix)
	return err
}

func (b *testBackend) Flush() error { return b.f.Sync() }
func (b *testBackend) Close() error { return b.f.Close() }
func (b *testBackend) Name() string { return "raw" }

type recordingObserver struct {
	reasons []RotationReason
}

func (r *recordingObserver) Notify(_ Monotonic, reason RotationReason) {
	r.reasons = append(r.reasons, reason)
}

func newTestSequencer(t *testing.T, breakInterval time.Duration, frameRate int) (*Sequencer, *recordingObserver, string) {
	t.Helper()
	dir := t.TempDir()
	d := NewRasterDrawable(64, 48)
	ctx, err := NewCaptureCtx(0, Real(time.Now()), d, nil, Config{
		FrameRate: frameRate,
		CropRect:  Rect{X: 0, Y: 0, CX: 64, CY: 48},
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewCaptureCtx: %v", err)
	}
	obs := &recordingObserver{}
	seq, err := NewSequencer(ctx, SequencedConfig{
		BreakInterval:   breakInterval,
		FilenamePrefix:  filepath.Join(dir, "seg"),
		VideoExtension:  "raw",
		CodecName:       "raw",
		FrameRate:       frameRate,
		FilePermissions: 0o644,
	}, 0, obs, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewSequencer: %v", err)
	}
	return seq, obs, dir
}

// TestSequencer_TwoSecondBreakTenSecondRun reproduces spec.md §8's 6-segment
// scenario: a 10s run at 25fps with a 2s break_interval rotates 5 times
// after the initial segment, for 6 video files total.
func TestSequencer_TwoSecondBreakTenSecondRun(t *testing.T) {
	seq, obs, dir := newTestSequencer(t, 2*time.Second, 25)
	frameInterval := time.Second / 25

	for i := 0; i < 250; i++ { // 10s at 25fps
		now := Monotonic(time.Duration(i+1) * frameInterval)
		if _, err := seq.PeriodicSnapshot(now, 0, 0); err != nil {
			t.Fatalf("PeriodicSnapshot(%d): %v", i, err)
		}
	}

	for i, r := range obs.reasons {
		if r != ReasonInterval {
			t.Fatalf("rotation %d: reason = %v, want ReasonInterval", i, r)
		}
	}
	if got, want := len(obs.reasons), 5; got != want {
		t.Fatalf("rotation count = %d, want %d (breaks at 2s, 4s, 6s, 8s and 10s)", got, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	videoCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".raw" {
			videoCount++
		}
	}
	if videoCount != 6 {
		t.Fatalf("video segment count = %d, want 6", videoCount)
	}
}

// TestSequencer_FiveSecondBreakTenSecondRun reproduces spec.md §8's 3-segment
// scenario.
func TestSequencer_FiveSecondBreakTenSecondRun(t *testing.T) {
	seq, obs, _ := newTestSequencer(t, 5*time.Second, 25)
	frameInterval := time.Second / 25

	for i := 0; i < 250; i++ {
		now := Monotonic(time.Duration(i+1) * frameInterval)
		if _, err := seq.PeriodicSnapshot(now, 0, 0); err != nil {
			t.Fatalf("PeriodicSnapshot(%d): %v", i, err)
		}
	}

	// Breaks at 5s and 10s: segments 000000, 000001 and the trailing 000002.
	if got, want := len(obs.reasons), 2; got != want {
		t.Fatalf("rotation count = %d, want %d", got, want)
	}
}

// TestSequencer_NextVideoFirstCallIgnored verifies the initial NextVideo
// call after construction is silently ignored (spec.md §4.5).
func TestSequencer_NextVideoFirstCallIgnored(t *testing.T) {
	seq, obs, _ := newTestSequencer(t, time.Hour, 25)
	if err := seq.NextVideo(0); err != nil {
		t.Fatalf("NextVideo: %v", err)
	}
	if len(obs.reasons) != 0 {
		t.Fatalf("expected first NextVideo to be ignored, got %d rotations", len(obs.reasons))
	}
	if err := seq.NextVideo(Monotonic(0)); err != nil {
		t.Fatalf("NextVideo: %v", err)
	}
	if got, want := len(obs.reasons), 1; got != want {
		t.Fatalf("rotation count = %d, want %d", got, want)
	}
	if obs.reasons[0] != ReasonExternal {
		t.Fatalf("reason = %v, want ReasonExternal", obs.reasons[0])
	}
}

// TestSequencer_EncoderOpenFailureRetainsPartialFile exercises the Open
// Question 2 decision: once an encoder failure (open or write) has left the
// sequencer unavailable, the segment file already on disk is kept rather
// than deleted. The sequencer stays marked unavailable until the next
// break_interval boundary, at which point PeriodicSnapshot retries rotation
// on its own.
func TestSequencer_EncoderOpenFailureRetainsPartialFile(t *testing.T) {
	dir := t.TempDir()
	d := NewRasterDrawable(32, 32)
	ctx, err := NewCaptureCtx(0, Real(time.Now()), d, nil, Config{
		FrameRate: 10,
		CropRect:  Rect{X: 0, Y: 0, CX: 32, CY: 32},
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewCaptureCtx: %v", err)
	}
	seq, err := NewSequencer(ctx, SequencedConfig{
		BreakInterval:   time.Hour,
		FilenamePrefix:  filepath.Join(dir, "seg"),
		VideoExtension:  "raw",
		CodecName:       "raw",
		FrameRate:       10,
		FilePermissions: 0o644,
	}, 0, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewSequencer: %v", err)
	}

	firstFile := seq.vcGen.CurrentFilename()
	if _, err := os.Stat(firstFile); err != nil {
		t.Fatalf("expected first segment file to exist: %v", err)
	}

	// Drop the encoder and mark the slot unavailable, the state a failed
	// open or write leaves behind, without touching disk state.
	seq.encoder = nil
	seq.encoderUnavailable = true

	wait, err := seq.PeriodicSnapshot(Monotonic(time.Second), 0, 0)
	if err != nil {
		t.Fatalf("PeriodicSnapshot while unavailable: %v", err)
	}
	if wait < 0 {
		t.Fatalf("expected non-negative wait, got %v", wait)
	}
	if _, err := os.Stat(firstFile); err != nil {
		t.Fatalf("partial segment file should remain on disk: %v", err)
	}
}

// TestSequencer_DegradedSequencerRetriesRotationAtBoundary verifies that a
// sequencer left unavailable by a prior open/write failure keeps attempting
// rotation at every break_interval boundary, recovering on its own without a
// caller-driven NextVideo (spec.md §7).
func TestSequencer_DegradedSequencerRetriesRotationAtBoundary(t *testing.T) {
	seq, obs, _ := newTestSequencer(t, time.Second, 25)

	seq.encoder = nil
	seq.encoderUnavailable = true

	if _, err := seq.PeriodicSnapshot(Monotonic(2*time.Second), 0, 0); err != nil {
		t.Fatalf("PeriodicSnapshot at boundary: %v", err)
	}

	if seq.encoderUnavailable {
		t.Fatalf("expected sequencer to recover automatically at the break boundary")
	}
	if got, want := len(obs.reasons), 1; got != want {
		t.Fatalf("rotation count = %d, want %d", got, want)
	}
	if obs.reasons[0] != ReasonInterval {
		t.Fatalf("reason = %v, want ReasonInterval", obs.reasons[0])
	}
}

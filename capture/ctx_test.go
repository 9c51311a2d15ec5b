package capture

import (
	"errors"
	"testing"
	"time"
)

// stubEncoder is a minimal Encoder fake, in the style of the teacher's
// stubEncoder in adaptive_test.go: records calls instead of doing real I/O.
type stubEncoder struct {
	pushed    int
	lastView  ImageView
	failWrite bool
	flushed   int
	closed    bool
}

func (s *stubEncoder) PushFrame(view ImageView, _ Monotonic) error {
	if s.failWrite {
		return errors.New("forced write failure")
	}
	s.pushed++
	s.lastView = view
	return nil
}

func (s *stubEncoder) Flush() error { s.flushed++; return nil }
func (s *stubEncoder) Close() error { s.closed = true; return nil }

func newTestCtx(t *testing.T, cfg Config) (*CaptureCtx, *RasterDrawable) {
	t.Helper()
	d := NewRasterDrawable(80, 60)
	if cfg.CropRect == (Rect{}) {
		cfg.CropRect = Rect{X: 0, Y: 0, CX: 80, CY: 60}
	}
	if cfg.FrameRate == 0 {
		cfg.FrameRate = 25
	}
	ctx, err := NewCaptureCtx(0, Real(time.Now()), d, nil, cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewCaptureCtx: %v", err)
	}
	return ctx, d
}

func TestCaptureCtx_EmitsWhenDue(t *testing.T) {
	ctx, _ := newTestCtx(t, Config{})
	enc := &stubEncoder{}
	_, err := ctx.Snapshot(enc, 0, 0, 0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if enc.pushed != 1 {
		t.Fatalf("pushed = %d, want 1", enc.pushed)
	}
	if ctx.FrameIndex() != 1 {
		t.Fatalf("frame index = %d, want 1", ctx.FrameIndex())
	}
}

func TestCaptureCtx_NotDueNoDamageReturnsWaitNoEmit(t *testing.T) {
	ctx, _ := newTestCtx(t, Config{FrameRate: 25})
	enc := &stubEncoder{}
	// First call to establish baseline next_trace_time in the future relative
	// to itself is impossible at t=0 since due(0) is true for a freshly
	// constructed clock; emit once, then check immediate re-snapshot at the
	// same instant is not due.
	if _, err := ctx.Snapshot(enc, 0, 0, 0); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	wait, err := ctx.Snapshot(enc, 0, 0, 0)
	if err != nil {
		t.Fatalf("Snapshot (2nd): %v", err)
	}
	if enc.pushed != 1 {
		t.Fatalf("pushed = %d, want 1 (second call should not emit)", enc.pushed)
	}
	if wait <= 0 {
		t.Fatalf("expected positive wait, got %v", wait)
	}
}

func TestCaptureCtx_FrameMarkerGatingBitClear(t *testing.T) {
	bitset := NewFrameMarkerBitset([]bool{false, true}, FrameMarkerGateClosedWhenExhausted)
	d := NewRasterDrawable(80, 60)
	cfg := Config{
		FrameRate:       25,
		CropRect:        Rect{X: 0, Y: 0, CX: 80, CY: 60},
		FrameMarkerMode: true,
	}
	ctx, err := NewCaptureCtx(0, Real(time.Now()), d, nil, cfg, bitset, nil, nil)
	if err != nil {
		t.Fatalf("NewCaptureCtx: %v", err)
	}
	enc := &stubEncoder{}

	if _, err := ctx.Snapshot(enc, 0, 0, 0); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if enc.pushed != 0 {
		t.Fatalf("pushed = %d, want 0 (bit clear must not emit)", enc.pushed)
	}
	if ctx.LogicalFrameEnded() {
		t.Fatal("expected AwaitingMarker state")
	}

	if err := ctx.FrameMarkerEvent(enc, 0, 0, 0); err != nil {
		t.Fatalf("FrameMarkerEvent: %v", err)
	}
	if enc.pushed != 0 {
		t.Fatalf("pushed = %d, want 0 after a marker for a bit-clear frame", enc.pushed)
	}
	if ctx.LogicalFrameEnded() {
		t.Fatal("expected AwaitingMarker state to persist after a bit-clear marker")
	}
}

func TestCaptureCtx_SetCroppingForcesFullDamage(t *testing.T) {
	ctx, _ := newTestCtx(t, Config{})
	enc := &stubEncoder{}
	if _, err := ctx.Snapshot(enc, 0, 0, 0); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if err := ctx.SetCropping(Rect{X: 10, Y: 10, CX: 20, CY: 20}); err != nil {
		t.Fatalf("SetCropping: %v", err)
	}
	if !ctx.damage.HasDamage() {
		t.Fatal("expected full damage to be marked after SetCropping")
	}
}

func TestCaptureCtx_SetCroppingRejectsOutOfBounds(t *testing.T) {
	ctx, _ := newTestCtx(t, Config{})
	err := ctx.SetCropping(Rect{X: 1000, Y: 1000, CX: 10, CY: 10})
	if !errors.Is(err, ErrInvalidCropRect) {
		t.Fatalf("expected ErrInvalidCropRect, got %v", err)
	}
}

func TestCaptureCtx_EncoderWriteFailureReportsAndReturnsError(t *testing.T) {
	ctx, _ := newTestCtx(t, Config{})
	enc := &stubEncoder{failWrite: true}
	_, err := ctx.Snapshot(enc, 0, 0, 0)
	if err == nil {
		t.Fatal("expected an error from a failing encoder")
	}
	var ce *CaptureError
	if !errors.As(err, &ce) || ce.Kind != EncoderWriteFailed {
		t.Fatalf("expected EncoderWriteFailed CaptureError, got %v", err)
	}
}

func TestCaptureCtx_ClockWentBackwardsIsIdempotent(t *testing.T) {
	ctx, _ := newTestCtx(t, Config{})
	enc := &stubEncoder{}
	if _, err := ctx.Snapshot(enc, Monotonic(time.Second), 0, 0); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	firstPushed := enc.pushed
	if _, err := ctx.Snapshot(enc, 0, 0, 0); err != nil {
		t.Fatalf("Snapshot with earlier time: %v", err)
	}
	if enc.pushed != firstPushed {
		t.Fatalf("pushed changed after backwards clock: %d -> %d", firstPushed, enc.pushed)
	}
}

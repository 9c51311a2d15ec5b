package capture

import (
	"log/slog"
	"time"
)

// ImageByInterval selects whether the timestamp band is stamped onto
// emitted frames, matching the original's ImageByInterval enum.
type ImageByInterval int

const (
	ImageWithTimestamp ImageByInterval = iota
	ImageWithoutTimestamp
)

// Mode selects between the original's FullVideoCaptureImpl and
// SequencedVideoCaptureImpl split (spec.md §11 supplement).
type Mode int

const (
	ModeFullVideo Mode = iota
	ModeSequenced
)

// FrameMarkerPolicy resolves spec.md §9's first open question: what
// happens when the frame-marker bitset runs out of bits.
type FrameMarkerPolicy int

const (
	// FrameMarkerGateClosedWhenExhausted: once the bitset is exhausted, an
	// exhausted bit reads as "not set" — no emission happens from a marker
	// event past the recorded length. This is the conservative default:
	// silence is read as "do not emit."
	FrameMarkerGateClosedWhenExhausted FrameMarkerPolicy = iota
	// FrameMarkerGateOpenWhenExhausted: an exhausted bit reads as "set" —
	// every marker event past the recorded length authorises emission.
	FrameMarkerGateOpenWhenExhausted
)

// ctxState is the two-state machine from spec.md §4.4.
type ctxState int

const (
	stateIdle ctxState = iota
	stateAwaitingMarker
)

// FrameMarkerBitset is the externally-provided per-frame replay bitset
// (spec.md §4.4, §9): bit i says whether historical frame i was
// authorised by a frame-marker event, for bit-exact session replay.
type FrameMarkerBitset struct {
	bits   []bool
	policy FrameMarkerPolicy
}

// NewFrameMarkerBitset wraps bits under policy.
func NewFrameMarkerBitset(bits []bool, policy FrameMarkerPolicy) *FrameMarkerBitset {
	return &FrameMarkerBitset{bits: bits, policy: policy}
}

// At reports the bit for frameIndex, resolving exhaustion per policy.
func (b *FrameMarkerBitset) At(frameIndex int64) bool {
	if b == nil || frameIndex < 0 || int(frameIndex) >= len(b.bits) {
		return b != nil && b.policy == FrameMarkerGateOpenWhenExhausted
	}
	return b.bits[frameIndex]
}

// Config bundles the construction-time parameters CaptureCtx needs,
// independent of mode-specific Sequencer parameters (kept in SequencedConfig
// per spec.md §11's parameter-object split).
type Config struct {
	FrameRate       int
	ImageByInterval ImageByInterval
	CropRect        Rect
	Location        *time.Location
	MarkerPolicy    FrameMarkerPolicy
	// FrameMarkerMode activates the AwaitingMarker gating path. When false,
	// every due snapshot emits immediately (the "no marker mode" row of
	// spec.md §4.4's state table).
	FrameMarkerMode bool
}

// CaptureCtx is the core orchestrator: holds pipeline state and implements
// frame_marker_event / snapshot / next_video per spec.md §4.4.
type CaptureCtx struct {
	mode Mode

	clock    *CaptureClock
	damage   *DamageTracker
	preparer *FramePreparer
	pointer  *LazyDrawablePointer
	differ   *frameDiffer
	saver    *BufferSaver

	cfg      Config
	bitset   *FrameMarkerBitset
	state    ctxState
	frameIdx int64

	cursorX, cursorY int

	reporter Reporter
	metrics  *StreamMetrics
	log      *slog.Logger
}

// NewCaptureCtx wires together a clock, damage tracker, and frame preparer
// for drawable, per cfg. pointer supplies pointer overlay bitmaps; bitset
// may be nil, in which case every bit reads as clear, so with
// FrameMarkerMode set no marker event ever emits a frame.
func NewCaptureCtx(
	monotonicNow Monotonic, realNow Real,
	drawable Drawable, pointer *LazyDrawablePointer,
	cfg Config, bitset *FrameMarkerBitset,
	reporter Reporter, log *slog.Logger,
) (*CaptureCtx, error) {
	clock, err := NewCaptureClock(monotonicNow, realNow, cfg.FrameRate, cfg.Location)
	if err != nil {
		return nil, err
	}
	preparer, err := NewFramePreparer(drawable, cfg.CropRect)
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CaptureCtx{
		mode:     ModeFullVideo,
		clock:    clock,
		damage:   NewDamageTracker(drawable.Width(), drawable.Height()),
		preparer: preparer,
		pointer:  pointer,
		differ:   newFrameDiffer(),
		saver:    NewBufferSaver(),
		cfg:      cfg,
		bitset:   bitset,
		state:    stateIdle,
		reporter: reporter,
		metrics:  NewStreamMetrics(time.Now()),
		log:      log,
	}, nil
}

// SetMode selects full-video vs sequenced orchestration; Sequencer itself
// enforces sequenced-only operations (next_video, rotation).
func (c *CaptureCtx) SetMode(m Mode) { c.mode = m }

// GraphicsAPI returns the DamageTracker as a DrawSink: callers MUST route
// all drawing primitives through it to keep damage consistent
// (spec.md §6).
func (c *CaptureCtx) GraphicsAPI() DrawSink { return c.damage }

// Metrics exposes the context's running counters.
func (c *CaptureCtx) Metrics() *StreamMetrics { return c.metrics }

// WaitUntil is the Go shape of the original's WaitingTimeBeforeNextSnapshot.
type WaitUntil time.Duration

// Snapshot implements spec.md §4.4's periodic_snapshot operation.
func (c *CaptureCtx) Snapshot(enc Encoder, now Monotonic, cursorX, cursorY int) (WaitUntil, error) {
	c.cursorX, c.cursorY = cursorX, cursorY
	if c.pointer != nil {
		c.pointer.SetPosition(cursorX, cursorY)
	}

	if c.clock.WentBackwards(now) {
		c.reporter.Report(ClockWentBackwards, "capture: monotonic time moved backwards",
			slog.Int64("frame_index", c.frameIdx))
		return WaitUntil(c.clock.WaitUntilNext(now)), nil
	}

	due := c.clock.Due(now)
	if !due && !c.damage.HasDamage() {
		return WaitUntil(c.clock.WaitUntilNext(now)), nil
	}

	// Under marker mode, a due snapshot unconditionally waits for the next
	// frame_marker_event — the bit at frame_idx is only consulted there, not
	// here (spec.md §4.4: "if the current frame_index's bit is set, this
	// marker end authorises emitting the pending frame").
	if c.cfg.FrameMarkerMode {
		c.state = stateAwaitingMarker
		return WaitUntil(c.clock.FrameInterval()), nil
	}

	if err := c.emit(enc, now); err != nil {
		return WaitUntil(c.clock.FrameInterval()), err
	}
	c.state = stateIdle
	return WaitUntil(c.clock.WaitUntilNext(now)), nil
}

// FrameMarkerEvent implements spec.md §4.4's frame_marker_event.
func (c *CaptureCtx) FrameMarkerEvent(enc Encoder, now Monotonic, cursorX, cursorY int) error {
	c.cursorX, c.cursorY = cursorX, cursorY
	if c.pointer != nil {
		c.pointer.SetPosition(cursorX, cursorY)
	}
	if c.state != stateAwaitingMarker {
		return nil
	}
	if !c.bitset.At(c.frameIdx) {
		return nil
	}
	if err := c.emit(enc, now); err != nil {
		return err
	}
	c.state = stateIdle
	return nil
}

func (c *CaptureCtx) emit(enc Encoder, now Monotonic) error {
	start := time.Now()
	opts := PrepareOptions{
		CursorX:       c.cursorX,
		CursorY:       c.cursorY,
		BrokenDown:    c.clock.ToBrokenDown(now),
		DrawTimestamp: c.cfg.ImageByInterval == ImageWithTimestamp,
		DrawPointer:   c.pointer != nil,
	}
	if c.pointer != nil {
		opts.Pointer = c.pointer.MaterializeInto()
	}

	view, err := c.preparer.Prepare(opts, c.saver)
	if err != nil {
		return err
	}
	c.metrics.RecordCapture(time.Since(start))

	encodeStart := time.Now()
	if err := enc.PushFrame(view, now); err != nil {
		c.metrics.RecordDrop()
		c.reporter.Report(EncoderWriteFailed, err.Error(), slog.Int64("frame_index", c.frameIdx))
		c.preparer.Release(view, c.saver)
		return newCaptureError(EncoderWriteFailed, ErrEncoderWriteFailed, err.Error())
	}
	c.metrics.RecordEmit(time.Since(encodeStart))

	c.preparer.Release(view, c.saver)
	c.clock.Advance(now)
	c.damage.Reset()
	if c.pointer != nil {
		c.pointer.InvalidateCache()
	}
	c.frameIdx++
	return nil
}

// EncodingEndFrame forces the encoder to flush the current frame (stream
// end, sequenced rotation points).
func (c *CaptureCtx) EncodingEndFrame(enc Encoder) error {
	return enc.Flush()
}

// SynchronizeTimes forwards to CaptureClock; already-emitted frames are
// unaffected (spec.md §4.4).
func (c *CaptureCtx) SynchronizeTimes(m Monotonic, r Real) {
	c.clock.SynchronizeTimes(m, r)
}

// SetCropping updates the crop rectangle and forces full damage on the
// next frame.
func (c *CaptureCtx) SetCropping(rect Rect) error {
	if err := c.preparer.SetCropping(rect); err != nil {
		return newCaptureError(InvalidCropRect, ErrInvalidCropRect, err.Error())
	}
	c.damage.MarkFullDamage()
	return nil
}

// UpdateFullscreen recomputes is_fullscreen after a drawable resize and
// updates the damage tracker's area to width x height; the caller is
// responsible for having already resized the Drawable.
func (c *CaptureCtx) UpdateFullscreen(width, height int) error {
	c.damage.SetArea(width, height)
	return c.preparer.RecomputeFullscreen()
}

// LogicalFrameEnded reports whether the context is idle (not mid-way
// through an awaited frame marker).
func (c *CaptureCtx) LogicalFrameEnded() bool {
	return c.state == stateIdle
}

// FrameIndex returns the number of frames emitted so far.
func (c *CaptureCtx) FrameIndex() int64 { return c.frameIdx }

// MarkFullDamage forces the next frame to carry full damage — used by
// Sequencer at the start of each new segment to guarantee an I-frame.
func (c *CaptureCtx) MarkFullDamage() { c.damage.MarkFullDamage() }

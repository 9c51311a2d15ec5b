package capture

// PrimitiveKind enumerates the drawing primitive categories that flow
// through the graphics tap. There is no RDP wire decoder in this module
// (spec.md §1 Non-goals), so the wide set of RDP order types the original
// RectTracker dispatches on (RDPDstBlt, RDPOpaqueRect, RDPMemBlt, ...) is
// collapsed to the handful of damage-relevant categories it actually
// distinguishes.
type PrimitiveKind int

const (
	// PrimitiveRect covers ordinary clipped drawing orders (blits, rects,
	// lines, polygons, glyphs): damage is the clipped bounding rect unioned
	// into the running total.
	PrimitiveRect PrimitiveKind = iota
	// PrimitiveSurfaceReplace is a full bitmap surface replacement: damages
	// the whole image regardless of the supplied rect.
	PrimitiveSurfaceReplace
	// PrimitiveRowWrite is a raw scanline write: damages the whole image.
	PrimitiveRowWrite
	// PrimitivePointerUpdate is a pointer-cache change: the overlay may move
	// anywhere, so it damages the whole image.
	PrimitivePointerUpdate
	// PrimitiveFrameMarkerEnd brackets an atomic rendering group; it never
	// contributes damage on its own.
	PrimitiveFrameMarkerEnd
	// PrimitiveRAILWindow is RAIL windowing traffic, opaque to pixel damage;
	// ignored.
	PrimitiveRAILWindow
)

// DrawSink is the drawing interface the orchestrator routes all primitives
// through. DamageTracker and a pixel renderer are both leaves implementing
// this interface; callers fan a single primitive out to both.
type DrawSink interface {
	Draw(kind PrimitiveKind, rect Rect)
}

// DamageTracker observes the drawing primitive stream and maintains the
// union rectangle of content changed since the last reset. It does not
// itself hold or mutate pixels.
type DamageTracker struct {
	bounds Rect
	damage Rect
}

// NewDamageTracker creates a tracker for an image of the given dimensions.
func NewDamageTracker(width, height int) *DamageTracker {
	return &DamageTracker{bounds: Rect{X: 0, Y: 0, CX: width, CY: height}}
}

// Draw implements DrawSink: clip rect is assumed caller-intersected with
// image bounds upstream of the tracker for PrimitiveRect entries; full-image
// primitives ignore the supplied rect entirely.
func (t *DamageTracker) Draw(kind PrimitiveKind, rect Rect) {
	switch kind {
	case PrimitiveFrameMarkerEnd, PrimitiveRAILWindow:
		return
	case PrimitiveSurfaceReplace, PrimitiveRowWrite, PrimitivePointerUpdate:
		t.damage = t.bounds
	case PrimitiveRect:
		clipped := rect.Intersect(t.bounds)
		if clipped.IsEmpty() {
			return
		}
		t.damage = t.damage.Disjunct(clipped)
	}
}

// HasDamage reports whether any primitive has damaged the image since the
// last Reset.
func (t *DamageTracker) HasDamage() bool {
	return !t.damage.IsEmpty()
}

// Damage returns the current union damage rectangle.
func (t *DamageTracker) Damage() Rect {
	return t.damage
}

// Reset clears the accumulated damage to empty.
func (t *DamageTracker) Reset() {
	t.damage = Rect{}
}

// SetArea updates the tracked image bounds after a drawable resize. It does
// not itself force damage; callers that need a forced full-damage keyframe
// (e.g. CaptureCtx.SetCropping) call MarkFullDamage explicitly.
func (t *DamageTracker) SetArea(width, height int) {
	t.bounds = Rect{X: 0, Y: 0, CX: width, CY: height}
}

// MarkFullDamage forces the damage rectangle to cover the entire tracked
// area, used when the orchestrator needs the next frame to be a full
// keyframe (crop change, segment rotation).
func (t *DamageTracker) MarkFullDamage() {
	t.damage = t.bounds
}

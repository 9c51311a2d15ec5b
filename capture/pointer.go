package capture

// PointerBitmap is a lazily-materialised rendering of the current RDP
// pointer: a packed BGR bitmap plus a hot-spot, matching the original's
// PointerOverlay data model. It is materialised on first use per frame and
// cached by LazyDrawablePointer.
type PointerBitmap struct {
	Width, Height int
	HotspotX, HotspotY int
	// Pix is Width*Height*BytesPerPixel bytes, row-major, no per-row padding.
	Pix []byte
	// Mask selects which pixels are opaque (true) vs. transparent (false),
	// one entry per pixel, row-major. A nil Mask means fully opaque.
	Mask []bool
}

// opaqueAt reports whether pixel (x, y) of the bitmap is opaque.
func (p *PointerBitmap) opaqueAt(x, y int) bool {
	if p.Mask == nil {
		return true
	}
	return p.Mask[y*p.Width+x]
}

// LazyDrawablePointer tracks the current cursor position and produces a
// PointerBitmap on demand, caching the materialised bitmap for the
// lifetime of one frame. It mirrors the original LazyDrawablePointer
// collaborator contract (spec.md §6).
type LazyDrawablePointer struct {
	x, y     int
	source   func() PointerBitmap
	cached   *PointerBitmap
}

// NewLazyDrawablePointer builds a pointer tracker that materialises bitmaps
// via source (typically backed by the RDP pointer cache, out of scope
// here; tests and the demo supply a static bitmap).
func NewLazyDrawablePointer(source func() PointerBitmap) *LazyDrawablePointer {
	return &LazyDrawablePointer{source: source}
}

// SetPosition records the current cursor position.
func (p *LazyDrawablePointer) SetPosition(x, y int) {
	p.x, p.y = x, y
}

// Position returns the last recorded cursor position.
func (p *LazyDrawablePointer) Position() (x, y int) {
	return p.x, p.y
}

// MaterializeInto returns the current pointer bitmap, materialising it on
// first call since the last InvalidateCache and caching the result.
func (p *LazyDrawablePointer) MaterializeInto() PointerBitmap {
	if p.cached == nil {
		bmp := p.source()
		p.cached = &bmp
	}
	return *p.cached
}

// InvalidateCache drops the cached bitmap, forcing the next
// MaterializeInto to re-render. Called by CaptureCtx after each emitted
// frame.
func (p *LazyDrawablePointer) InvalidateCache() {
	p.cached = nil
}

// bufferRecord is one (offset, original bytes) entry saved by BufferSaver
// before an overlay overwrite.
type bufferRecord struct {
	offset int
	orig   []byte
}

// BufferSaver is a bounded, reusable save/restore arena: it records the
// pre-overlay bytes at each offset the pointer-compositing step overwrites
// in a fullscreen Drawable, so FramePreparer.Release can put the drawable
// back exactly as it was before the encoder consumed the frame. It is
// reset once per frame rather than allocating a record per pixel.
type BufferSaver struct {
	records []bufferRecord
	scratch []byte // reusable backing store for orig slices, sliced out per record
}

// NewBufferSaver builds an empty saver.
func NewBufferSaver() *BufferSaver {
	return &BufferSaver{}
}

// Reset discards all recorded save entries, retaining the underlying
// capacity for reuse on the next frame.
func (s *BufferSaver) Reset() {
	s.records = s.records[:0]
	s.scratch = s.scratch[:0]
}

// Save records buf[offset:offset+n] as it stood before being overwritten;
// callers must call Save before mutating buf.
func (s *BufferSaver) Save(buf []byte, offset int, n int) {
	start := len(s.scratch)
	s.scratch = append(s.scratch, buf[offset:offset+n]...)
	s.records = append(s.records, bufferRecord{offset: offset, orig: s.scratch[start : start+n]})
}

// Restore writes every recorded entry back into buf, undoing the overlay
// overwrites in the order they were saved.
func (s *BufferSaver) Restore(buf []byte) {
	for _, rec := range s.records {
		copy(buf[rec.offset:rec.offset+len(rec.orig)], rec.orig)
	}
}

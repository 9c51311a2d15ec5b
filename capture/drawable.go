package capture

import "fmt"

// BytesPerPixel is the fixed pixel width the core operates on: 24-bit BGR.
// Colour-space conversion beyond this is the encoder's concern
// (spec.md §1 Non-goals).
const BytesPerPixel = 3

// Drawable is the mutable in-memory raster the core reads frames from. It
// is the authoritative view of the remote screen as accumulated by the RDP
// decoder (out of scope here); the core only ever borrows it during frame
// preparation.
type Drawable interface {
	// Width and Height report the current raster dimensions in pixels.
	Width() int
	Height() int
	// Stride reports the row stride in bytes (may exceed Width()*BytesPerPixel).
	Stride() int
	// Pixels returns the full backing buffer; callers must not retain it
	// past the borrow window during which they hold the core's lock.
	Pixels() []byte
}

// RasterDrawable is a reference Drawable implementation backed by a flat
// byte slice, used by tests and by cmd/capturedemo's synthetic generator.
type RasterDrawable struct {
	width, height int
	stride        int
	pix           []byte
}

// NewRasterDrawable allocates a zeroed width x height 24-bit BGR raster.
func NewRasterDrawable(width, height int) *RasterDrawable {
	stride := width * BytesPerPixel
	return &RasterDrawable{
		width:  width,
		height: height,
		stride: stride,
		pix:    make([]byte, stride*height),
	}
}

func (d *RasterDrawable) Width() int    { return d.width }
func (d *RasterDrawable) Height() int   { return d.height }
func (d *RasterDrawable) Stride() int   { return d.stride }
func (d *RasterDrawable) Pixels() []byte { return d.pix }

// Resize reallocates the backing buffer to the new dimensions, discarding
// prior pixel content (mirrors a resize notification from the RDP decoder).
func (d *RasterDrawable) Resize(width, height int) {
	d.width = width
	d.height = height
	d.stride = width * BytesPerPixel
	d.pix = make([]byte, d.stride*height)
}

// FillRect paints a solid BGR colour into rect, clipped to bounds. Intended
// for tests and the synthetic demo drawable, not production pixel paths.
func (d *RasterDrawable) FillRect(r Rect, b, g, rr byte) {
	bounds := Rect{X: 0, Y: 0, CX: d.width, CY: d.height}
	clipped := r.Intersect(bounds)
	if clipped.IsEmpty() {
		return
	}
	for y := clipped.Y; y < clipped.Bottom(); y++ {
		row := d.pix[y*d.stride : (y+1)*d.stride]
		for x := clipped.X; x < clipped.Right(); x++ {
			off := x * BytesPerPixel
			row[off] = b
			row[off+1] = g
			row[off+2] = rr
		}
	}
}

func (d *RasterDrawable) String() string {
	return fmt.Sprintf("RasterDrawable(%dx%d, stride=%d)", d.width, d.height, d.stride)
}

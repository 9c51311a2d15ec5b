package capture

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCropRect is returned by SetCropping when the requested crop is
// not fully contained within the drawable's current bounds.
var ErrInvalidCropRect = errors.New("capture: crop rect not contained in drawable bounds")

// ImageView is a stable view of prepared pixel data handed to the encoder.
// BasePointer lets callers (and tests) compare identity against the drawable's own
// backing slice to verify the fullscreen zero-copy path (spec.md §8
// Boundaries: "crop rect == drawable bounds MUST skip the copy").
type ImageView struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// BasePointer returns a stable identity for Pix's backing array, suitable
// only for equality comparisons (not dereferencing).
func (v ImageView) BasePointer() *byte {
	if len(v.Pix) == 0 {
		return nil
	}
	return &v.Pix[0]
}

// PrepareOptions carries the per-frame inputs FramePreparer needs beyond
// the drawable itself.
type PrepareOptions struct {
	CursorX, CursorY int
	BrokenDown       time.Time
	DrawTimestamp    bool
	DrawPointer      bool
	Pointer          PointerBitmap
}

// FramePreparer produces a stable ImageView pointing at pixels in the
// encoder's expected layout: optional crop, optional timestamp band,
// optional pointer overlay. See spec.md §4.3 for the full algorithm this
// implements.
type FramePreparer struct {
	drawable Drawable
	crop     Rect
	fullscreen bool
	shadow   []byte
	shadowW, shadowH, shadowStride int

	timestampFG, timestampBG [3]byte
}

// NewFramePreparer builds a preparer for drawable cropped to crop. crop
// must be fully contained in drawable's bounds.
func NewFramePreparer(drawable Drawable, crop Rect) (*FramePreparer, error) {
	p := &FramePreparer{
		drawable:    drawable,
		timestampFG: [3]byte{255, 255, 255},
		timestampBG: [3]byte{0, 0, 0},
	}
	if err := p.SetCropping(crop); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FramePreparer) bounds() Rect {
	return Rect{X: 0, Y: 0, CX: p.drawable.Width(), CY: p.drawable.Height()}
}

// SetCropping updates the crop rectangle. Re-applying the same rect twice
// is equivalent to applying it once (spec.md §8 round-trip property).
func (p *FramePreparer) SetCropping(crop Rect) error {
	bounds := p.bounds()
	if !bounds.Contains(crop) {
		return fmt.Errorf("%w: %+v not within %+v", ErrInvalidCropRect, crop, bounds)
	}
	if crop == p.crop {
		return nil
	}
	p.crop = crop
	p.fullscreen = crop.Equal(bounds)
	if p.fullscreen {
		p.shadow = nil
		p.shadowW, p.shadowH, p.shadowStride = 0, 0, 0
	} else {
		p.shadowW, p.shadowH = crop.CX, crop.CY
		p.shadowStride = p.shadowW * BytesPerPixel
		need := p.shadowStride * p.shadowH
		if cap(p.shadow) < need {
			p.shadow = make([]byte, need)
		} else {
			p.shadow = p.shadow[:need]
		}
	}
	return nil
}

// RecomputeFullscreen re-derives is_fullscreen and the shadow buffer
// against the drawable's current bounds without requiring the crop
// rectangle value itself to change — used after a drawable resize, where
// SetCropping's identical-crop idempotence would otherwise short-circuit.
func (p *FramePreparer) RecomputeFullscreen() error {
	crop := p.crop
	p.crop = Rect{}
	return p.SetCropping(crop)
}

// IsFullscreen reports whether the current crop equals the drawable's full
// bounds (the zero-copy path).
func (p *FramePreparer) IsFullscreen() bool {
	return p.fullscreen
}

// CropRect returns the current crop rectangle.
func (p *FramePreparer) CropRect() Rect {
	return p.crop
}

// Prepare materialises the current frame per spec.md §4.3's four-step
// algorithm and returns the view to push to the encoder. saver is reset and,
// when a pointer overlay is composited directly into the drawable, records
// the overwritten bytes so Release can undo them.
func (p *FramePreparer) Prepare(opts PrepareOptions, saver *BufferSaver) (ImageView, error) {
	saver.Reset()

	var view ImageView
	if p.fullscreen {
		view = ImageView{
			Pix:    p.drawable.Pixels(),
			Width:  p.drawable.Width(),
			Height: p.drawable.Height(),
			Stride: p.drawable.Stride(),
		}
	} else {
		p.copyCropIntoShadow()
		view = ImageView{
			Pix:    p.shadow,
			Width:  p.shadowW,
			Height: p.shadowH,
			Stride: p.shadowStride,
		}
	}

	if opts.DrawTimestamp {
		renderTimestampBand(view.Pix, view.Stride, opts.BrokenDown, p.timestampFG, p.timestampBG)
	}

	if opts.DrawPointer {
		p.compositePointer(view, opts, saver)
	}

	return view, nil
}

// Release undoes any pointer-overlay overwrites Prepare made directly into
// the drawable (fullscreen path only — the shadow buffer is re-copied from
// the drawable on the next Prepare call and needs no restore).
func (p *FramePreparer) Release(view ImageView, saver *BufferSaver) {
	if !p.fullscreen {
		return
	}
	saver.Restore(view.Pix)
}

func (p *FramePreparer) copyCropIntoShadow() {
	src := p.drawable.Pixels()
	srcStride := p.drawable.Stride()
	rowBytes := p.shadowW * BytesPerPixel
	for row := 0; row < p.shadowH; row++ {
		srcOff := (p.crop.Y+row)*srcStride + p.crop.X*BytesPerPixel
		dstOff := row * p.shadowStride
		copy(p.shadow[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
}

func (p *FramePreparer) compositePointer(view ImageView, opts PrepareOptions, saver *BufferSaver) {
	bmp := opts.Pointer
	if bmp.Width == 0 || bmp.Height == 0 {
		return
	}
	originX := opts.CursorX - bmp.HotspotX
	originY := opts.CursorY - bmp.HotspotY

	for row := 0; row < bmp.Height; row++ {
		py := originY + row
		if py < 0 || py >= view.Height {
			continue
		}
		for col := 0; col < bmp.Width; col++ {
			px := originX + col
			if px < 0 || px >= view.Width {
				continue
			}
			if !bmp.opaqueAt(col, row) {
				continue
			}
			dstOff := py*view.Stride + px*BytesPerPixel
			srcOff := (row*bmp.Width + col) * BytesPerPixel
			if p.fullscreen {
				saver.Save(view.Pix, dstOff, BytesPerPixel)
			}
			copy(view.Pix[dstOff:dstOff+BytesPerPixel], bmp.Pix[srcOff:srcOff+BytesPerPixel])
		}
	}
}

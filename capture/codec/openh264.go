package codec

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/breeze-rmm/rdpcapture/capture"
	"github.com/y9o/go-openh264/openh264"
)

// h264Backend is a real hardware-free H.264 backend built on
// github.com/y9o/go-openh264, a direct dependency of the teacher's go.mod
// that had zero actual usages anywhere in the retrieved pack — wiring it
// here is the "make it real rather than drop it" case DESIGN.md records for
// codec/openh264.go.
//
// codec_options (spec.md §6 "opaque to core") is parsed here as a small
// space-separated "key=value" list (e.g. "bitrate=2000000 maxfps=30"),
// the same shape the original's Codec{name, options} constant uses
// ("profile=baseline preset=ultrafast b=100000" in
// original_source/.../test_video_capture.cpp).
type h264Backend struct {
	enc *openh264.Encoder
	f   *os.File
	w   *bufio.Writer

	width, height int
	i420          []byte

	liveSink capture.LiveSink
}

func newH264Backend() *h264Backend {
	return &h264Backend{}
}

func init() {
	capture.RegisterCodec("h264", func() capture.Backend {
		return newH264Backend()
	})
}

func parseCodecOptions(raw string) map[string]string {
	out := map[string]string{}
	for _, field := range strings.Fields(raw) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func (b *h264Backend) Open(opts capture.EncoderOptions) error {
	perm := opts.FilePermissions
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(opts.Filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrEncoderOpenFailed, err)
	}

	fields := parseCodecOptions(opts.CodecOptions)
	bitrate := 2_000_000
	if v, ok := fields["bitrate"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			bitrate = n
		}
	} else if v, ok := fields["b"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			bitrate = n
		}
	}

	params := openh264.EncoderParams{
		Width:     opts.Width,
		Height:    opts.Height,
		BitrateBps: bitrate,
		MaxFrameRate: float32(opts.FrameRate),
	}
	enc, err := openh264.NewEncoder(params)
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", capture.ErrEncoderOpenFailed, err)
	}

	b.enc = enc
	b.f = f
	b.w = bufio.NewWriter(f)
	b.width, b.height = opts.Width, opts.Height
	b.i420 = make([]byte, opts.Width*opts.Height*3/2)
	return nil
}

func (b *h264Backend) PushFrame(view capture.ImageView, timestamp capture.Monotonic) error {
	if b.enc == nil {
		return fmt.Errorf("%w: push before open", capture.ErrEncoderWriteFailed)
	}
	bgrToI420(view, b.i420)
	nals, err := b.enc.Encode(b.i420)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrEncoderWriteFailed, err)
	}
	for _, nal := range nals {
		if _, err := b.w.Write(nal); err != nil {
			return fmt.Errorf("%w: %v", capture.ErrEncoderWriteFailed, err)
		}
		if b.liveSink != nil {
			b.liveSink(nal, timestamp)
		}
	}
	return nil
}

// SetLiveSink implements the optional live-delivery capability: every NAL
// written to the segment file is also forwarded to sink, letting a live
// viewer session consume the same encoded stream without re-encoding.
func (b *h264Backend) SetLiveSink(sink capture.LiveSink) {
	b.liveSink = sink
}

func (b *h264Backend) Flush() error {
	if b.w == nil {
		return nil
	}
	return b.w.Flush()
}

func (b *h264Backend) Close() error {
	if b.enc != nil {
		b.enc.Close()
		b.enc = nil
	}
	if b.f == nil {
		return nil
	}
	if err := b.w.Flush(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}

func (b *h264Backend) Name() string { return "h264" }

// ForceKeyframe requests an IDR on the next Encode call, implementing the
// optional keyframe-forcer capability capture.VideoEncoder checks for —
// grounded on the teacher's forced-IDR-on-session-start and
// PLI/FIR-triggered keyframe pattern in internal/remote/desktop/webrtc.go.
func (b *h264Backend) ForceKeyframe() error {
	if b.enc == nil {
		return fmt.Errorf("%w: not open", capture.ErrEncoderWriteFailed)
	}
	b.enc.ForceIntraFrame()
	return nil
}

// bgrToI420 performs a BT.601 fixed-point BGR24 -> I420 (YUV 4:2:0)
// conversion, the pixel-format adaptation spec.md §1 assigns to the
// encoder rather than the core. Grounded on the teacher's bgraToNV12 in
// internal/remote/desktop/colorconv.go, adapted from BGRA/NV12 to BGR/I420
// (planar Y plane followed by subsampled U and V planes, the layout
// go-openh264 expects, rather than NV12's interleaved UV plane).
func bgrToI420(view capture.ImageView, out []byte) {
	w, h := view.Width, view.Height
	ySize := w * h
	uSize := (w / 2) * (h / 2)
	yPlane := out[:ySize]
	uPlane := out[ySize : ySize+uSize]
	vPlane := out[ySize+uSize : ySize+2*uSize]

	for y := 0; y < h; y++ {
		row := view.Pix[y*view.Stride:]
		for x := 0; x < w; x++ {
			off := x * capture.BytesPerPixel
			bb, g, r := int(row[off]), int(row[off+1]), int(row[off+2])
			yPlane[y*w+x] = byte(clamp((66*r+129*g+25*bb+128)>>8 + 16))
		}
	}

	for cy := 0; cy < h/2; cy++ {
		for cx := 0; cx < w/2; cx++ {
			sy, sx := cy*2, cx*2
			row := view.Pix[sy*view.Stride:]
			off := sx * capture.BytesPerPixel
			bb, g, r := int(row[off]), int(row[off+1]), int(row[off+2])
			u := clamp((-38*r-74*g+112*bb+128)>>8 + 128)
			v := clamp((112*r-94*g-18*bb+128)>>8 + 128)
			uPlane[cy*(w/2)+cx] = byte(u)
			vPlane[cy*(w/2)+cx] = byte(v)
		}
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

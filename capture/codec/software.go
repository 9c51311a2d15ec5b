// Package codec provides capture.Backend implementations for
// capture.VideoEncoder: a raw passthrough backend (for tests and
// full-fidelity PNG-preview-only pipelines) and a real H.264 backend
// backed by github.com/y9o/go-openh264.
package codec

import (
	"bufio"
	"fmt"
	"os"

	"github.com/breeze-rmm/rdpcapture/capture"
)

// rawBackend is a passthrough backend: it writes each pushed frame's raw
// BGR bytes (the view's Pix buffer, with no length prefix or framing) to the
// target file. It performs no actual
// compression — grounded on the teacher's encoder_software.go placeholder
// passthrough backend, generalized to write real file output instead of
// just echoing bytes in memory, since this module must actually produce
// the files spec.md's Persisted state layout describes.
type rawBackend struct {
	f    *os.File
	w    *bufio.Writer
	opts capture.EncoderOptions
}

func newRawBackend() *rawBackend {
	return &rawBackend{}
}

func init() {
	capture.RegisterCodec("raw", func() capture.Backend {
		return newRawBackend()
	})
}

func (b *rawBackend) Open(opts capture.EncoderOptions) error {
	perm := opts.FilePermissions
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(opts.Filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrEncoderOpenFailed, err)
	}
	b.f = f
	b.w = bufio.NewWriter(f)
	b.opts = opts
	return nil
}

func (b *rawBackend) PushFrame(view capture.ImageView, _ capture.Monotonic) error {
	if b.w == nil {
		return fmt.Errorf("%w: push before open", capture.ErrEncoderWriteFailed)
	}
	if _, err := b.w.Write(view.Pix); err != nil {
		return fmt.Errorf("%w: %v", capture.ErrEncoderWriteFailed, err)
	}
	return nil
}

func (b *rawBackend) Flush() error {
	if b.w == nil {
		return nil
	}
	return b.w.Flush()
}

func (b *rawBackend) Close() error {
	if b.f == nil {
		return nil
	}
	if err := b.w.Flush(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}

func (b *rawBackend) Name() string { return "raw" }

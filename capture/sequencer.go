package capture

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"time"
)

// RotationReason is the Go shape of the original's NotifyNextVideo::Reason.
type RotationReason int

const (
	ReasonInterval RotationReason = iota
	ReasonExternal
)

// RotationObserver is the Go shape of spec.md §6's NotifyNextVideo
// collaborator.
type RotationObserver interface {
	Notify(now Monotonic, reason RotationReason)
}

// NopRotationObserver discards every notification.
type NopRotationObserver struct{}

func (NopRotationObserver) Notify(Monotonic, RotationReason) {}

// SegmentUploader is invoked after each segment (video + PNG) closes — a
// supplemental feature beyond spec.md (see SPEC_FULL.md §6, §11), disabled
// by default (nil = local-only, matching the original's literal behaviour).
type SegmentUploader interface {
	Upload(localPath, remoteKey string) error
}

// SequencedConfig bundles Sequencer's construction-time parameters,
// separate from CaptureCtx's Config per the original's CaptureParams /
// VideoParams / SequencedVideoParams split (spec.md §11).
type SequencedConfig struct {
	BreakInterval   time.Duration
	FilenamePrefix  string
	VideoExtension  string
	CodecName       string
	CodecOptions    string
	FrameRate       int
	FilePermissions os.FileMode
}

// ErrZeroBreakInterval rejects a zero-duration break_interval at
// construction (spec.md §8 Boundaries).
var ErrZeroBreakInterval = fmt.Errorf("capture: break_interval must be positive")

// Sequencer implements spec.md §4.5: file rotation for sequenced mode.
type Sequencer struct {
	ctx *CaptureCtx
	cfg SequencedConfig

	vcGen *FilenameGenerator
	icGen *FilenameGenerator

	encoder *VideoEncoder
	encoderUnavailable bool

	startMonotonic Monotonic
	firstNextVideo bool

	observer RotationObserver
	uploader SegmentUploader
	reporter Reporter
	log      *slog.Logger

	liveSink LiveSink
}

// NewSequencer builds a rotation-capable sequencer atop ctx. now is the
// monotonic instant the first segment opens at.
func NewSequencer(ctx *CaptureCtx, cfg SequencedConfig, now Monotonic, observer RotationObserver, uploader SegmentUploader, reporter Reporter, log *slog.Logger) (*Sequencer, error) {
	if cfg.BreakInterval <= 0 {
		return nil, ErrZeroBreakInterval
	}
	if observer == nil {
		observer = NopRotationObserver{}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if log == nil {
		log = slog.Default()
	}
	ctx.SetMode(ModeSequenced)
	s := &Sequencer{
		ctx:            ctx,
		cfg:            cfg,
		vcGen:          NewFilenameGenerator(cfg.FilenamePrefix, cfg.VideoExtension, 6),
		icGen:          NewFilenameGenerator(cfg.FilenamePrefix, "png", 6),
		startMonotonic: now,
		firstNextVideo: true,
		observer:       observer,
		uploader:       uploader,
		reporter:       reporter,
		log:            log,
	}
	if err := s.openEncoder(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sequencer) openEncoder() error {
	enc, err := NewVideoEncoder(EncoderOptions{
		Filename:        s.vcGen.CurrentFilename(),
		CodecName:       s.cfg.CodecName,
		CodecOptions:    s.cfg.CodecOptions,
		Width:           s.ctx.preparer.CropRect().CX,
		Height:          s.ctx.preparer.CropRect().CY,
		FrameRate:       s.cfg.FrameRate,
		FilePermissions: s.cfg.FilePermissions,
	})
	if err != nil {
		s.encoderUnavailable = true
		s.reporter.Report(EncoderOpenFailed, err.Error(), slog.String("filename", s.vcGen.CurrentFilename()))
		return newCaptureError(EncoderOpenFailed, ErrEncoderOpenFailed, err.Error())
	}
	if s.liveSink != nil {
		enc.SetLiveSink(s.liveSink)
	}
	s.encoder = enc
	s.encoderUnavailable = false
	s.ctx.MarkFullDamage() // first frame in each segment is a forced keyframe
	s.ctx.Metrics().RecordSegmentOpened()
	return nil
}

// SetLiveSink attaches sink to every encoder this sequencer opens from now
// on (including the current one), for simultaneous live delivery alongside
// file sequencing. Pass nil to detach.
func (s *Sequencer) SetLiveSink(sink LiveSink) {
	s.liveSink = sink
	if s.encoder != nil {
		s.encoder.SetLiveSink(sink)
	}
}

// PeriodicSnapshot wraps CaptureCtx.Snapshot with sequenced-mode rotation:
// after emission, if the break_interval has elapsed, rotate.
func (s *Sequencer) PeriodicSnapshot(now Monotonic, cursorX, cursorY int) (WaitUntil, error) {
	if s.encoderUnavailable {
		// Failure handling (spec.md §4.5/§7): slot unavailable, snapshots
		// dropped while damage continues to accumulate, but rotation is
		// still attempted at every break_interval boundary so the segment
		// recovers on its own without requiring a caller-driven NextVideo.
		s.ctx.damage.MarkFullDamage()
		if now.Sub(s.startMonotonic) >= s.cfg.BreakInterval {
			if rotErr := s.rotate(now, ReasonInterval); rotErr != nil {
				return WaitUntil(s.ctx.clock.WaitUntilNext(now)), rotErr
			}
		}
		return WaitUntil(s.ctx.clock.WaitUntilNext(now)), nil
	}

	wait, err := s.ctx.Snapshot(s.encoder, now, cursorX, cursorY)
	if err != nil {
		s.encoderUnavailable = true
		return wait, err
	}

	if now.Sub(s.startMonotonic) >= s.cfg.BreakInterval {
		if rotErr := s.rotate(now, ReasonInterval); rotErr != nil {
			return wait, rotErr
		}
	}
	return wait, nil
}

// NextVideo is the caller-driven early rotation with Reason::External; the
// first call after construction is silently ignored (the initial video has
// just been opened), per spec.md §4.5.
func (s *Sequencer) NextVideo(now Monotonic) error {
	if s.firstNextVideo {
		s.firstNextVideo = false
		return nil
	}
	return s.rotate(now, ReasonExternal)
}

func (s *Sequencer) rotate(now Monotonic, reason RotationReason) error {
	// 1. Flush and close current encoder.
	if s.encoder != nil {
		if err := s.encoder.Flush(); err != nil {
			s.reporter.Report(EncoderWriteFailed, err.Error())
		}
		if err := s.encoder.Close(); err != nil {
			s.reporter.Report(EncoderWriteFailed, err.Error())
		}
		s.ctx.Metrics().RecordSegmentClosed()
		if s.uploader != nil {
			videoPath := s.vcGen.CurrentFilename()
			if err := s.uploader.Upload(videoPath, videoPath); err != nil {
				s.reporter.Report(EncoderWriteFailed, fmt.Sprintf("segment upload failed: %v", err))
			}
		}
	}
	s.encoder = nil

	// 2. Write a PNG of the last emitted frame.
	if err := s.writePreview(); err != nil {
		s.reporter.Report(EncoderWriteFailed, fmt.Sprintf("preview write failed: %v", err))
	} else if s.uploader != nil {
		pngPath := s.icGen.CurrentFilename()
		if err := s.uploader.Upload(pngPath, pngPath); err != nil {
			s.reporter.Report(EncoderWriteFailed, fmt.Sprintf("preview upload failed: %v", err))
		}
	}

	// 3. Advance both filename generators.
	if err := s.vcGen.Next(); err != nil {
		s.reporter.Report(FilenameGenerationOverflow, err.Error())
		return newCaptureError(FilenameGenerationOverflow, ErrFilenameGenerationOverflow, err.Error())
	}
	if err := s.icGen.Next(); err != nil {
		s.reporter.Report(FilenameGenerationOverflow, err.Error())
		return newCaptureError(FilenameGenerationOverflow, ErrFilenameGenerationOverflow, err.Error())
	}

	// 4. Open a new encoder at the new video filename.
	if err := s.openEncoder(); err != nil {
		return err
	}

	// 5. Reset start time; notify observer.
	s.startMonotonic = now
	s.observer.Notify(now, reason)
	s.log.Debug("segment rotated", "reason", reason, "video", s.vcGen.CurrentFilename())
	return nil
}

// writePreview captures the current frame exactly as a video frame would
// be prepared, and encodes it to a PNG at the current preview filename.
func (s *Sequencer) writePreview() error {
	saver := NewBufferSaver()
	opts := PrepareOptions{
		CursorX:       s.ctx.cursorX,
		CursorY:       s.ctx.cursorY,
		BrokenDown:    s.ctx.clock.ToBrokenDown(s.startMonotonic),
		DrawTimestamp: s.ctx.cfg.ImageByInterval == ImageWithTimestamp,
		DrawPointer:   s.ctx.pointer != nil,
	}
	if s.ctx.pointer != nil {
		opts.Pointer = s.ctx.pointer.MaterializeInto()
	}
	view, err := s.ctx.preparer.Prepare(opts, saver)
	if err != nil {
		return err
	}
	defer s.ctx.preparer.Release(view, saver)

	img := viewToImage(view)
	f, err := os.OpenFile(s.icGen.CurrentFilename(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, s.cfg.FilePermissions)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func viewToImage(view ImageView) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, view.Width, view.Height))
	for y := 0; y < view.Height; y++ {
		row := view.Pix[y*view.Stride:]
		for x := 0; x < view.Width; x++ {
			off := x * BytesPerPixel
			b, g, r := row[off], row[off+1], row[off+2]
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

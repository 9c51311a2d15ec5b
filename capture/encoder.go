package capture

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	ErrInvalidCodec   = errors.New("capture: invalid codec name")
	ErrEncoderClosed  = errors.New("capture: encoder already closed")
)

// EncoderOptions carries the open-time parameters spec.md §6's Encoder
// contract requires.
type EncoderOptions struct {
	Filename       string
	CodecName      string
	CodecOptions   string
	Width, Height  int
	FrameRate      int
	FilePermissions os.FileMode
}

// Encoder is the Go shape of spec.md §6's Encoder collaborator contract:
// open/push_frame/flush/close. The core never knows which concrete
// implementation backs it.
type Encoder interface {
	PushFrame(view ImageView, timestamp Monotonic) error
	Flush() error
	Close() error
}

// Backend is the pluggable implementation an Encoder dispatches to.
// Mirrors the teacher's encoderBackend interface in internal/remote/desktop/encoder.go:
// a mutex-wrapped VideoEncoder delegates every call to a swappable backend,
// so hardware and software codecs share one call surface. Exported so
// out-of-tree codec packages (capture/codec and beyond) can implement it.
type Backend interface {
	Open(opts EncoderOptions) error
	PushFrame(view ImageView, timestamp Monotonic) error
	Flush() error
	Close() error
	Name() string
}

// optionalKeyframeForcer lets a backend opt into explicit keyframe forcing
// (checked via type assertion, same capability-interface pattern the
// teacher uses for ForceKeyframe/flusher checks).
type optionalKeyframeForcer interface {
	ForceKeyframe() error
}

// LiveSink receives each encoded access unit a backend also writes to file,
// for simultaneous live delivery. Only backends implementing
// optionalLiveSink (the h264 backend) forward to it.
type LiveSink func(payload []byte, timestamp Monotonic)

// optionalLiveSink lets a backend opt into forwarding its encoded output to
// a LiveSink, the same capability-interface pattern as optionalKeyframeForcer.
type optionalLiveSink interface {
	SetLiveSink(sink LiveSink)
}

// BackendFactory constructs a fresh, unopened backend instance.
type BackendFactory func() Backend

var (
	backendRegistryMu sync.Mutex
	backendRegistry    = map[string]BackendFactory{}
)

// RegisterCodec registers a backend factory under a codec name so
// VideoEncoder.Open can select it. Called from codec sub-package init()s
// (software, openh264) rather than hard-wiring a switch statement here,
// mirroring the teacher's registerHardwareFactory pattern.
func RegisterCodec(name string, factory BackendFactory) {
	backendRegistryMu.Lock()
	defer backendRegistryMu.Unlock()
	backendRegistry[name] = factory
}

func lookupCodec(name string) (BackendFactory, bool) {
	backendRegistryMu.Lock()
	defer backendRegistryMu.Unlock()
	f, ok := backendRegistry[name]
	return f, ok
}

// VideoEncoder is the mutex-wrapped dispatcher implementing Encoder by
// delegating to a backend selected by codec name at Open time.
type VideoEncoder struct {
	mu      sync.Mutex
	backend Backend
	closed  bool
}

// NewVideoEncoder opens a backend registered under opts.CodecName.
func NewVideoEncoder(opts EncoderOptions) (*VideoEncoder, error) {
	factory, ok := lookupCodec(opts.CodecName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCodec, opts.CodecName)
	}
	backend := factory()
	if err := backend.Open(opts); err != nil {
		return nil, err
	}
	return &VideoEncoder{backend: backend}, nil
}

func (e *VideoEncoder) PushFrame(view ImageView, timestamp Monotonic) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEncoderClosed
	}
	return e.backend.PushFrame(view, timestamp)
}

func (e *VideoEncoder) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEncoderClosed
	}
	return e.backend.Flush()
}

func (e *VideoEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.backend.Close()
}

// ForceKeyframe requests an immediate keyframe from the backend if it
// supports the optional capability; a no-op otherwise.
func (e *VideoEncoder) ForceKeyframe() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEncoderClosed
	}
	if f, ok := e.backend.(optionalKeyframeForcer); ok {
		return f.ForceKeyframe()
	}
	return nil
}

// Name returns the backend's display name, for logging.
func (e *VideoEncoder) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Name()
}

// SetLiveSink forwards sink to the backend if it supports live delivery
// (the h264 backend does); a no-op otherwise.
func (e *VideoEncoder) SetLiveSink(sink LiveSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.backend.(optionalLiveSink); ok {
		s.SetLiveSink(sink)
	}
}

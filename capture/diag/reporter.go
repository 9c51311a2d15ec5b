package diag

import (
	"context"
	"log/slog"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/breeze-rmm/rdpcapture/capture"
)

// SlogReporter implements capture.Reporter on top of the package logger,
// attaching a host resource snapshot to the two failure kinds most likely
// to be resource-driven (encoder open/write failures) so an operator
// triaging a report doesn't have to separately correlate host metrics —
// grounded on the teacher's diagnostics collectors in internal/collectors,
// generalized from periodic polling to attach-on-demand.
type SlogReporter struct {
	log *slog.Logger
}

// NewSlogReporter builds a reporter writing through log, or the package
// logger if log is nil.
func NewSlogReporter(log *slog.Logger) *SlogReporter {
	if log == nil {
		log = Logger()
	}
	return &SlogReporter{log: log}
}

func (r *SlogReporter) Report(kind capture.ErrorKind, message string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("kind", kind.String()))
	for _, a := range attrs {
		args = append(args, a)
	}

	level := slog.LevelWarn
	switch kind {
	case capture.EncoderOpenFailed, capture.EncoderWriteFailed:
		level = slog.LevelError
		args = append(args, slog.Any("host", snapshotHost()))
	case capture.FilenameGenerationOverflow, capture.InvalidCropRect:
		level = slog.LevelError
	case capture.ClockWentBackwards:
		level = slog.LevelDebug
	}

	r.log.LogAttrs(context.Background(), level, message, slog.Group("capture", args...))
}

// hostSnapshot is a small, JSON/text-loggable slice of host state.
type hostSnapshot struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	Platform          string  `json:"platform"`
	Uptime            uint64  `json:"uptime_seconds"`
}

func snapshotHost() hostSnapshot {
	var snap hostSnapshot
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryUsedPercent = vm.UsedPercent
	}
	if info, err := host.Info(); err == nil {
		snap.Platform = info.Platform
		snap.Uptime = info.Uptime
	}
	return snap
}

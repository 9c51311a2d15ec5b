package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/rdpcapture/capture"
	"github.com/breeze-rmm/rdpcapture/capture/config"
	"github.com/breeze-rmm/rdpcapture/capture/diag"
	"github.com/breeze-rmm/rdpcapture/capture/storage"
	"github.com/breeze-rmm/rdpcapture/livestream"
)

var (
	serveDuration time.Duration
	serveWidth    int
	serveHeight   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture pipeline with storage upload and live WebRTC delivery wired from config",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().DurationVar(&serveDuration, "duration", 0, "how long to run before exiting (0 = run until interrupted)")
	serveCmd.Flags().IntVar(&serveWidth, "width", 640, "synthetic drawable width")
	serveCmd.Flags().IntVar(&serveHeight, "height", 480, "synthetic drawable height")
}

// buildUploader constructs the capture.SegmentUploader named by cfg.Provider,
// the wiring SPEC_FULL.md's live-config section promises: storage.provider
// selects one of capture/storage's five backends.
func buildUploader(ctx context.Context, cfg config.StorageConfig) (capture.SegmentUploader, error) {
	switch cfg.Provider {
	case "", "local":
		dir := cfg.LocalDir
		if dir == "" {
			dir = "segments"
		}
		return storage.NewLocalProvider(dir)
	case "s3":
		return storage.NewS3Provider(ctx, cfg.Bucket, cfg.Region, cfg.Prefix)
	case "azure":
		return storage.NewAzureBlobProvider(cfg.AzureConnectionString, cfg.Bucket, cfg.Prefix)
	case "gcs":
		return storage.NewGCSProvider(ctx, cfg.Bucket, cfg.Prefix)
	case "b2":
		return storage.NewBackblazeProvider(ctx, cfg.B2AccountID, cfg.B2ApplicationKey, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("serve: unknown storage provider %q", cfg.Provider)
	}
}

// runServe wires capture.Config.Storage into a real SegmentUploader and, when
// capture.Config.Livestream.Enabled, starts a livestream.Session plus its
// signaling HTTP server alongside the same synthetic capture loop run uses —
// the subcommand SPEC_FULL.md's config doc already describes as the only
// reader of livestream.* settings.
func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := diag.Configure(diag.Options{
		Level:  diag.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	reporter := diag.NewSlogReporter(log)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	uploader, err := buildUploader(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("build uploader: %w", err)
	}

	var (
		session *livestream.Session
		server  *http.Server
	)
	if cfg.Livestream.Enabled {
		session, err = livestream.NewSession(livestream.BitrateLimits{
			Min:     cfg.Livestream.MinBitrate,
			Max:     cfg.Livestream.MaxBitrate,
			Initial: cfg.Livestream.InitialBitrate,
		}, log)
		if err != nil {
			return fmt.Errorf("new livestream session: %w", err)
		}
		defer session.Close()

		mux := http.NewServeMux()
		mux.HandleFunc("/signaling", func(w http.ResponseWriter, r *http.Request) {
			if err := session.HandleSignaling(w, r); err != nil {
				log.Warn("signaling session ended", "error", err)
			}
		})
		server = &http.Server{Addr: cfg.Livestream.SignalAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("signaling server failed", "error", err)
			}
		}()
		defer server.Close()
		log.Info("livestream signaling listening", "addr", cfg.Livestream.SignalAddr)
	}

	drawable := capture.NewRasterDrawable(serveWidth, serveHeight)
	ctx, err := capture.NewCaptureCtx(0, capture.Real(time.Now()), drawable, nil, capture.Config{
		FrameRate:       cfg.FrameRate,
		CropRect:        capture.Rect{X: 0, Y: 0, CX: serveWidth, CY: serveHeight},
		ImageByInterval: imageByInterval(cfg.DrawTimestamp),
	}, nil, reporter, log)
	if err != nil {
		return fmt.Errorf("new capture ctx: %w", err)
	}

	seq, err := capture.NewSequencer(ctx, capture.SequencedConfig{
		BreakInterval:   cfg.BreakInterval,
		FilenamePrefix:  cfg.OutputDir + "/" + cfg.FilenamePrefix,
		VideoExtension:  "h264",
		CodecName:       cfg.CodecName,
		CodecOptions:    cfg.CodecOptions,
		FrameRate:       cfg.FrameRate,
		FilePermissions: 0o644,
	}, 0, nil, uploader, reporter, log)
	if err != nil {
		return fmt.Errorf("new sequencer: %w", err)
	}

	if session != nil {
		frameInterval := time.Second / time.Duration(cfg.FrameRate)
		seq.SetLiveSink(func(payload []byte, _ capture.Monotonic) {
			if err := session.PushSample(payload, frameInterval); err != nil {
				log.Warn("live push_sample failed", "error", err)
			}
		})
	}

	frameInterval := time.Second / time.Duration(cfg.FrameRate)
	rectSize := serveWidth / 10
	i := 0
	tick := func() {
		now := capture.Monotonic(time.Duration(i+1) * frameInterval)
		x := (i * 4) % (serveWidth - rectSize)
		rect := capture.Rect{X: x, Y: serveHeight/2 - rectSize/2, CX: rectSize, CY: rectSize}
		drawable.FillRect(rect, byte(i*7), byte(i*3), byte(i*11))
		ctx.GraphicsAPI().Draw(capture.PrimitiveRect, rect)
		if _, err := seq.PeriodicSnapshot(now, x+rectSize/2, serveHeight/2); err != nil {
			log.Error("snapshot failed", "error", err, "frame", i)
		}
		i++
	}

	if serveDuration <= 0 {
		for range time.Tick(frameInterval) {
			tick()
		}
		return nil
	}
	deadline := time.After(serveDuration)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			log.Info("serve run complete", "frames", i, "output_dir", cfg.OutputDir)
			return nil
		case <-ticker.C:
			tick()
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.FrameRate != want.FrameRate {
		t.Fatalf("FrameRate = %d, want %d", cfg.FrameRate, want.FrameRate)
	}
	if cfg.Storage.Provider != "local" {
		t.Fatalf("Storage.Provider = %q, want %q", cfg.Storage.Provider, "local")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	content := "frame_rate: 30\nstorage:\n  provider: s3\n  bucket: my-bucket\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FrameRate != 30 {
		t.Fatalf("FrameRate = %d, want 30", cfg.FrameRate)
	}
	if cfg.Storage.Provider != "s3" || cfg.Storage.Bucket != "my-bucket" {
		t.Fatalf("Storage = %+v, want provider=s3 bucket=my-bucket", cfg.Storage)
	}
	// Untouched fields still resolve to the default baseline.
	if cfg.CodecName != Default().CodecName {
		t.Fatalf("CodecName = %q, want default %q", cfg.CodecName, Default().CodecName)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	if err := os.WriteFile(path, []byte("frame_rate: 30\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CAPTURE_FRAME_RATE", "60")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FrameRate != 60 {
		t.Fatalf("FrameRate = %d, want 60 (env override)", cfg.FrameRate)
	}
}

package capture

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestReplayManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	bits := []bool{true, false, true, true, false}

	if err := SaveReplayManifest(path, 25, FrameMarkerGateOpenWhenExhausted, bits); err != nil {
		t.Fatalf("SaveReplayManifest: %v", err)
	}

	m, err := LoadReplayManifest(path)
	if err != nil {
		t.Fatalf("LoadReplayManifest: %v", err)
	}
	if m.FrameRate != 25 {
		t.Fatalf("FrameRate = %d, want 25", m.FrameRate)
	}
	if len(m.FrameMarkerBits) != len(bits) {
		t.Fatalf("bit count = %d, want %d", len(m.FrameMarkerBits), len(bits))
	}
	for i, b := range bits {
		if m.FrameMarkerBits[i] != b {
			t.Fatalf("bit %d = %v, want %v", i, m.FrameMarkerBits[i], b)
		}
	}

	bitset, err := m.Bitset()
	if err != nil {
		t.Fatalf("Bitset: %v", err)
	}
	for i, b := range bits {
		if got := bitset.At(int64(i)); got != b {
			t.Fatalf("bitset.At(%d) = %v, want %v", i, got, b)
		}
	}
	// Exhaustion resolves per the saved open policy.
	if !bitset.At(int64(len(bits) + 10)) {
		t.Fatal("expected exhausted read to resolve open per saved policy")
	}
}

func TestReplayManifest_UnknownPolicyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	m := ReplayManifest{FrameRate: 10, MarkerPolicy: "bogus", FrameMarkerBits: []bool{true}}
	raw, err := yaml.Marshal(&m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadReplayManifest(path)
	if err != nil {
		t.Fatalf("LoadReplayManifest: %v", err)
	}
	if _, err := loaded.Bitset(); err == nil {
		t.Fatal("expected ErrUnknownMarkerPolicy")
	}
}

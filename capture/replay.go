package capture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReplayManifest is the on-disk shape of a recorded frame-marker session,
// letting a captured run be bit-exactly replayed against the same
// FrameMarkerBitset (SPEC_FULL.md §8 supplement; spec.md §9's "for bit-exact
// session replay" note on FrameMarkerBitset).
type ReplayManifest struct {
	FrameRate       int    `yaml:"frame_rate"`
	MarkerPolicy    string `yaml:"marker_policy"`
	FrameMarkerBits []bool `yaml:"frame_marker_bits"`
}

// ErrUnknownMarkerPolicy is returned when a manifest names a policy this
// build does not recognise.
var ErrUnknownMarkerPolicy = fmt.Errorf("capture: unknown marker_policy")

// LoadReplayManifest reads and parses a YAML replay manifest from path.
func LoadReplayManifest(path string) (*ReplayManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read replay manifest: %w", err)
	}
	var m ReplayManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("capture: parse replay manifest: %w", err)
	}
	return &m, nil
}

// Bitset builds the FrameMarkerBitset the manifest describes.
func (m *ReplayManifest) Bitset() (*FrameMarkerBitset, error) {
	var policy FrameMarkerPolicy
	switch m.MarkerPolicy {
	case "", "gate_closed_when_exhausted":
		policy = FrameMarkerGateClosedWhenExhausted
	case "gate_open_when_exhausted":
		policy = FrameMarkerGateOpenWhenExhausted
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarkerPolicy, m.MarkerPolicy)
	}
	return NewFrameMarkerBitset(m.FrameMarkerBits, policy), nil
}

// SaveReplayManifest writes bits and policy to path as YAML, for recording
// a live session's frame-marker decisions for later replay.
func SaveReplayManifest(path string, frameRate int, policy FrameMarkerPolicy, bits []bool) error {
	policyName := "gate_closed_when_exhausted"
	if policy == FrameMarkerGateOpenWhenExhausted {
		policyName = "gate_open_when_exhausted"
	}
	m := ReplayManifest{
		FrameRate:       frameRate,
		MarkerPolicy:    policyName,
		FrameMarkerBits: bits,
	}
	raw, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("capture: marshal replay manifest: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/rdpcapture/capture"
)

var replayManifestPath string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Load a frame-marker replay manifest and print its resolved bitset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay()
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayManifestPath, "manifest", "", "path to a replay manifest YAML file")
	replayCmd.MarkFlagRequired("manifest")
}

func runReplay() error {
	manifest, err := capture.LoadReplayManifest(replayManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	bitset, err := manifest.Bitset()
	if err != nil {
		return fmt.Errorf("build bitset: %w", err)
	}

	fmt.Printf("frame_rate: %d\n", manifest.FrameRate)
	fmt.Printf("marker_policy: %s\n", manifest.MarkerPolicy)
	fmt.Printf("frames: %d\n", len(manifest.FrameMarkerBits))
	for i := range manifest.FrameMarkerBits {
		fmt.Printf("  frame %d: authorised=%v\n", i, bitset.At(int64(i)))
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyhookml/cvsprep/normalize"
)

// errFailures is returned when a run completed but some inputs failed.
var errFailures = errors.New("some inputs failed")

func newRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "cvsprep",
		Short: "Prepare CVS annotation exports and surgical videos for review",
		Long: `cvsprep reshapes CVS annotation exports into frame-level, video-level and
per-video tables, and normalizes surgical videos to a fixed number of frames.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			normalize.Debug = cfg.Debug
		},
	}
	root.PersistentFlags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "print all ffmpeg/ffprobe stderr output")
	root.AddCommand(
		newAnnotationsCmd(cfg),
		newNormalizeCmd(cfg),
		newServeCmd(cfg),
	)
	return root
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

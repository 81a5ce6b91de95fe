package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/skyhookml/cvsprep/cvs"
)

func newAnnotationsCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations [export.json]",
		Short: "Reshape an annotation export into frame, video, combined and wrong tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Input = args[0]
			}
			opts, err := cfg.RunOptions()
			if err != nil {
				return err
			}
			report, err := cvs.Run(opts)
			if err != nil {
				return err
			}
			log.Printf(
				"[annotations] report %s: %d videos, %d complete, %d wrong rows, %d per-video folders",
				report.ID, len(report.Validation.Groups), report.Validation.CompleteCount(),
				report.Wrong.Len(), len(report.PerVideo),
			)
			return nil
		},
	}
	addAnnotationFlags(cmd, cfg)
	cmd.Flags().StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "output directory")
	cmd.Flags().StringVarP(&cfg.Format, "format", "f", cfg.Format, "table format: xlsx, csv, json or sqlite3")
	return cmd
}

// Flags shared by every command that builds a report.
func addAnnotationFlags(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVarP(&cfg.Mapping, "mapping", "m", cfg.Mapping, "CSV mapping videoId to video_name")
	cmd.Flags().StringVar(&cfg.Dedup, "dedup", cfg.Dedup, "video row deduplication: first-row or merge-fields")
	cmd.Flags().BoolVar(&cfg.AllowRaterMismatch, "allow-rater-mismatch", cfg.AllowRaterMismatch, "take the last rater name seen when categories disagree on who rated a slot")
}

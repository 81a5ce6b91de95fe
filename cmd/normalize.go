package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/skyhookml/cvsprep/normalize"
)

const untrimmedListName = "untrimmed_videos.txt"

func newNormalizeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [video.mp4 | directory]",
		Short: "Trim videos to the target frame count and sort them into success and fail folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.VideoSource = args[0]
			}
			if cfg.VideoSource == "" {
				return fmt.Errorf("no video source given (argument or %sVIDEO_SOURCE)", envPrefix)
			}
			opts, err := cfg.NormalizeOptions()
			if err != nil {
				return err
			}
			paths, err := normalize.Discover(cfg.VideoSource)
			if err != nil {
				return err
			}
			n, err := normalize.New(opts)
			if err != nil {
				return err
			}
			defer n.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bar := progressbar.NewOptions(len(paths),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("normalizing"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetRenderBlankState(true),
				progressbar.OptionSetVisibility(len(paths) > 1),
			)
			summary := n.Run(ctx, paths, func(res normalize.Result) {
				bar.Describe(fmt.Sprintf("%-12s %s", res.Outcome, res.Name))
				bar.Add(1)
			})
			bar.Finish()
			fmt.Fprintln(os.Stderr)

			printSummary(summary, opts.DryRun)
			return runStatus(summary, len(paths), opts.DryRun, ctx.Err() != nil)
		},
	}
	cmd.PersistentFlags().StringVarP(&cfg.VideoOutputDir, "output", "o", cfg.VideoOutputDir, "output directory for sorted videos and logs")
	cmd.Flags().IntVar(&cfg.TargetFrames, "frames", cfg.TargetFrames, "target number of frames")
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "classify and log only; do not move, encode or record anything")
	cmd.Flags().StringVar(&cfg.Ffmpeg, "ffmpeg", cfg.Ffmpeg, "ffmpeg binary")
	cmd.Flags().StringVar(&cfg.Ffprobe, "ffprobe", cfg.Ffprobe, "ffprobe binary")
	cmd.AddCommand(newListCmd(cfg))
	return cmd
}

func newListCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list [names.txt]",
		Short: "Write the names of the videos in success/untrimmed to a text file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := normalize.Layout{Root: cfg.VideoOutputDir}
			fname := filepath.Join(cfg.VideoOutputDir, untrimmedListName)
			if len(args) == 1 {
				fname = args[0]
			}
			names, err := normalize.ListVideos(layout.Untrimmed())
			if err != nil {
				return err
			}
			sort.Strings(names)
			if err := normalize.WriteNameList(names, fname); err != nil {
				return err
			}
			fmt.Printf("wrote %d names to %s\n", len(names), fname)
			return nil
		},
	}
}

// Error for the exit status of a normalize run. A dry run moves nothing into
// fail/, so would-be failures do not count.
func runStatus(summary normalize.Summary, total int, dryRun bool, cancelled bool) error {
	if cancelled || summary.Interrupted() {
		return fmt.Errorf("interrupted after %d of %d videos", len(summary.Results), total)
	}
	if summary.Failed() > 0 && !dryRun {
		return errFailures
	}
	return nil
}

func printSummary(summary normalize.Summary, dryRun bool) {
	var outcomes []string
	for outcome := range summary.Counts {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	prefix := ""
	if dryRun {
		prefix = "(dry run) "
	}
	fmt.Printf("%srun %s: %d videos\n", prefix, summary.RunID, len(summary.Results))
	for _, outcome := range outcomes {
		fmt.Printf("  %-14s %d\n", outcome, summary.Counts[normalize.Outcome(outcome)])
	}
	for _, res := range summary.Results {
		if res.Outcome.Failed() {
			fmt.Printf("  failed: %s (%v)\n", res.Name, res.Err)
		}
	}
}

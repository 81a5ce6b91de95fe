package main

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/skyhookml/cvsprep/cvs"
	"github.com/skyhookml/cvsprep/review"
)

func newServeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [export.json]",
		Short: "Serve the reshaped annotation tables over HTTP for review",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Input = args[0]
			}
			opts, err := cfg.RunOptions()
			if err != nil {
				return err
			}
			server, err := review.NewServer(func() (*cvs.Report, error) {
				return cvs.Build(opts)
			})
			if err != nil {
				return err
			}
			log.Printf("[serve] starting on %s", cfg.Addr)
			return http.ListenAndServe(cfg.Addr, server)
		},
	}
	addAnnotationFlags(cmd, cfg)
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "bind address")
	return cmd
}

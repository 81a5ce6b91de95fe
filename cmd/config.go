package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/skyhookml/cvsprep/cvs"
	"github.com/skyhookml/cvsprep/normalize"
)

// Config is read from CVSPREP_* environment variables; command line flags
// take precedence.
type Config struct {
	Input              string `env:"INPUT"`
	Mapping            string `env:"MAPPING"`
	OutputDir          string `env:"OUTPUT_DIR"           envDefault:"output"`
	Format             string `env:"FORMAT"               envDefault:"xlsx"`
	Dedup              string `env:"DEDUP"                envDefault:"first-row"`
	AllowRaterMismatch bool   `env:"ALLOW_RATER_MISMATCH" envDefault:"false"`

	VideoSource    string `env:"VIDEO_SOURCE"`
	VideoOutputDir string `env:"VIDEO_OUTPUT_DIR" envDefault:"videos"`
	TargetFrames   int    `env:"TARGET_FRAMES"    envDefault:"2700"`
	Ffmpeg         string `env:"FFMPEG"           envDefault:"ffmpeg"`
	Ffprobe        string `env:"FFPROBE"          envDefault:"ffprobe"`
	DryRun         bool   `env:"DRY_RUN"          envDefault:"false"`

	Addr  string `env:"ADDR"  envDefault:":8080"`
	Debug bool   `env:"DEBUG" envDefault:"false"`
}

const envPrefix = "CVSPREP_"

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) RunOptions() (cvs.RunOptions, error) {
	if cfg.Input == "" {
		return cvs.RunOptions{}, fmt.Errorf("no annotation export given (argument or %sINPUT)", envPrefix)
	}
	format, err := cvs.ParseFormat(cfg.Format)
	if err != nil {
		return cvs.RunOptions{}, err
	}
	dedup, err := cvs.ParseDedupMode(cfg.Dedup)
	if err != nil {
		return cvs.RunOptions{}, err
	}
	return cvs.RunOptions{
		InputPath:   cfg.Input,
		MappingPath: cfg.Mapping,
		OutputDir:   cfg.OutputDir,
		Format:      format,
		Dedup:       dedup,
		Parse:       cvs.ParseOptions{AllowRaterMismatch: cfg.AllowRaterMismatch},
	}, nil
}

func (cfg *Config) NormalizeOptions() (normalize.Options, error) {
	if cfg.TargetFrames <= 0 {
		return normalize.Options{}, fmt.Errorf("target frames must be positive, got %d", cfg.TargetFrames)
	}
	return normalize.Options{
		OutputDir:    cfg.VideoOutputDir,
		TargetFrames: cfg.TargetFrames,
		DryRun:       cfg.DryRun,
		Tool: normalize.Ffmpeg{
			FfmpegPath:  cfg.Ffmpeg,
			FfprobePath: cfg.Ffprobe,
		},
	}, nil
}

// Command framefuse merges videos, numbered image sequences, and WebP
// animations into a single uniformly encoded video, with optional per-item
// and global trimming.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/display"
	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/media"
	"github.com/stillpond/framefuse/internal/pipeline"
	"github.com/stillpond/framefuse/internal/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var (
		output     string
		trims      []string
		resolution string
		colorMode  string
	)

	cmd := &cobra.Command{
		Use:   "framefuse [flags] INPUT...",
		Short: "Merge videos, image sequences, and WebP animations into one video",
		Long: `framefuse re-encodes each input to a shared format and concatenates
them in order. Inputs may be video files, printf-style image sequence
patterns (frame_%05d.png), directories of numbered frames, or WebP files
(animated or static).

Per-item trims are given with --trim, one per input, as START:END where
each side is a frame count ("24f"), a time ("1.5s"), or a bare number
resolved heuristically. The start trims from the beginning; the end names
the last frame to keep (0 keeps everything).`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.ColorMode = config.ColorMode(colorMode)
			if resolution != "" {
				w, h, err := config.ParseResolution(resolution)
				if err != nil {
					return err
				}
				cfg.CustomWidth, cfg.CustomHeight = w, h
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			term.Configure(cfg.ColorMode)
			logging.Configure(logging.Options{Verbose: cfg.Verbose, Color: cfg.ColorMode})

			items, err := buildItems(args, trims)
			if err != nil {
				return err
			}
			return run(cmd.Context(), &cfg, items, output)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "output.mp4", "output file path")
	flags.StringArrayVar(&trims, "trim", nil, "per-item trim START:END, repeat once per input")
	flags.IntVar(&cfg.GlobalTrimStart, "trim-start", 0, "frames trimmed from the start of items without their own trim")
	flags.IntVar(&cfg.GlobalTrimEnd, "trim-end", 0, "frames trimmed from the end of items without their own trim")
	flags.BoolVar(&cfg.FrameBasedTrim, "frame-trim", false, "frame-accurate trimming (slower, re-decodes)")
	flags.Float64Var(&cfg.CustomFramerate, "fps", 0, "force output framerate")
	flags.StringVar(&resolution, "resolution", "", "force output resolution as WxH")
	flags.Float64Var(&cfg.SequenceGapTolerance, "gap-tolerance", cfg.SequenceGapTolerance,
		"missing-frame ratio tolerated in image sequences")
	flags.BoolVar(&cfg.KeepTempOnError, "keep-temp", false, "keep intermediate files when a run fails")

	pflags := cmd.PersistentFlags()
	pflags.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	pflags.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "ffprobe binary")
	pflags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	pflags.StringVar(&colorMode, "color", string(config.ColorAuto), "color output: auto, always, never")

	cmd.AddCommand(newCheckCmd(&cfg, &colorMode))
	return cmd
}

// buildItems pairs the input arguments with their optional trim specs.
func buildItems(args, trims []string) ([]media.Item, error) {
	if len(trims) > len(args) {
		return nil, fmt.Errorf("%d trims given for %d inputs", len(trims), len(args))
	}
	items := make([]media.Item, len(args))
	for i, path := range args {
		items[i] = media.Item{Path: path}
		if i < len(trims) && trims[i] != "" {
			start, end, err := parseTrim(trims[i])
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i+1, err)
			}
			items[i].TrimStart = start
			items[i].TrimEnd = end
		}
	}
	return items, nil
}

func run(ctx context.Context, cfg *config.Config, items []media.Item, output string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := display.NewProgress(os.Stdout, term.IsTerminal(os.Stdout))

	stats, err := pipeline.New(cfg).Run(ctx, pipeline.Request{
		Items:  items,
		Output: output,
		Status: progress.Update,
	})
	progress.Finish()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", term.Red, term.NC, err)
		return err
	}

	display.Summary(os.Stdout, stats)
	return nil
}

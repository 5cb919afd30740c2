package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stillpond/framefuse/internal/check"
	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/term"
)

func newCheckCmd(cfg *config.Config, colorMode *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that ffmpeg and ffprobe can run a merge on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.ColorMode = config.ColorMode(*colorMode)
			term.Configure(cfg.ColorMode)
			logging.Configure(logging.Options{Verbose: cfg.Verbose, Color: cfg.ColorMode})

			d := check.New(cfg).Run(cmd.Context())
			for _, r := range d.Results {
				if r.OK() {
					fmt.Fprintf(os.Stdout, "%s  ok%s  %-16s %s\n", term.Green, term.NC, r.Name, r.Detail)
				} else {
					fmt.Fprintf(os.Stdout, "%sfail%s  %-16s %v\n", term.Red, term.NC, r.Name, r.Err)
				}
			}
			if !d.OK() {
				return fmt.Errorf("environment check failed")
			}
			return nil
		},
	}
}

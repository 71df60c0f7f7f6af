package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petems/whisper-dictate/internal/app"
	"github.com/petems/whisper-dictate/internal/audio"
	"github.com/petems/whisper-dictate/internal/config"
	"github.com/petems/whisper-dictate/internal/handoff"
)

// captureCommand is the child side of --handoff subprocess. It is not meant
// to be run by hand.
func (c *cli) captureCommand() *cobra.Command {
	var mailbox string
	cmd := &cobra.Command{
		Use:    "capture",
		Short:  "Run the capture unit against a mailbox directory",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.capture(ctx, mailbox)
		},
	}
	cmd.Flags().StringVar(&mailbox, "mailbox", "", "mailbox directory shared with the transcription process")
	_ = cmd.MarkFlagRequired("mailbox")
	return cmd
}

func (c *cli) capture(ctx context.Context, dir string) error {
	cfg := c.cfg
	box, err := handoff.NewMailbox(dir, cfg.Audio.FrameSize)
	if err != nil {
		return err
	}

	src, err := audio.Open(ctx, cfg.Audio, audio.NewFormat(cfg.Audio))
	if err != nil {
		return err
	}
	defer src.Close()

	a := app.New(app.Config{
		Handoff: box,
		Config:  cfg,
		Logger:  c.log.With().Str("unit", "capture").Logger(),
		// the child has no /metrics endpoint; capture series are only
		// recorded in --handoff inprocess mode
		Metrics: nil,
	})
	err = a.Capture(ctx, src)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective settings (file plus flags) to the config file",
		Long: `Write the effective settings to the config file, so flags given here
become the defaults for later runs.

Examples:
  # Always use the small model with English pinned
  whisper-dictate --model small --language en config save
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := c.flags.configPath
			if path == "" {
				path = config.Path()
			}
			if err := c.cfg.Save(path); err != nil {
				return fmt.Errorf("save config %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return cmd
}

func (c *cli) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := audio.ListDevices(cmd.Context(), c.cfg.Audio.Backend)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whisper-dictate %s (%s)\n", Version, Commit)
		},
	}
}

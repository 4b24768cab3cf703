// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/cleanarr/internal/app"
	"github.com/autobrr/cleanarr/internal/buildinfo"
	"github.com/autobrr/cleanarr/internal/config"
)

func RunServeCommand() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cleanup loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.SetupLogging(cfg.General); err != nil {
				return err
			}

			log.Info().
				Str("version", buildinfo.Version).
				Str("commit", buildinfo.Commit).
				Msg("Starting cleanarr")
			if cfg.General.TestRun {
				log.Info().Msg("Test run enabled, nothing will actually be removed")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a := app.New(cfg)
			if err := a.Setup(ctx); err != nil {
				return err
			}

			if once {
				a.RunOnce(ctx)
				return nil
			}
			if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info().Msg("Shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file or directory")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single cleanup cycle and exit")

	return cmd
}

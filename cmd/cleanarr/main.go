// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/autobrr/cleanarr/internal/buildinfo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cleanarr",
		Short: "Download queue janitor for Radarr, Sonarr, Lidarr, Readarr and Whisparr",
		Long: `cleanarr watches the download queues of your *arr instances and cleans
out downloads that are stalled, failed, slow, orphaned or otherwise not
going anywhere, with optional strike-based grace periods, private-tracker
aware handling and paced upgrade searches.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand())
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(buildinfo.String())
		},
	}
}

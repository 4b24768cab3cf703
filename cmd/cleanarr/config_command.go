// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"

	"github.com/autobrr/cleanarr/internal/config"
)

func RunGenerateConfigCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write an annotated starter config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.WriteDefaultConfig(path); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "config.yaml", "Where to write the config file")

	return cmd
}

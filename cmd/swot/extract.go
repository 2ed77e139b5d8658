package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/745739396/SWOT-program/internal/archive"
)

func newExtractCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract DIR",
		Short: "Unpack the archives directly inside DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}

			result, err := archive.Extract(args[0], archive.Options{Suffix: cfg.ArchiveSuffix, Logger: logger})
			if result == nil {
				return exit(ExitStorageError, err)
			}

			fmt.Fprintf(c.stdout, "[swot] Extracted %d archives (%d files), %d failed\n",
				len(result.Extracted), result.Files, len(result.Failed))
			if err != nil {
				return exit(ExitPartialBatch, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&c.override.ArchiveSuffix, "archive-suffix", "", "file suffix of archives to unpack (default .zip)")
	return cmd
}

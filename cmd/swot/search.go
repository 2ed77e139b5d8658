package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/745739396/SWOT-program/internal/progress"
)

func newSearchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List matching granules without downloading them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			ctx, cancel := c.signalContext(cmd.Context())
			defer cancel()

			granules, err := c.search(ctx, cfg, logger)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GRANULE\tSIZE\tURL")
			for _, g := range granules {
				link := "-"
				if len(g.Links) > 0 {
					link = g.Links[0]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", g, progress.FormatBytes(g.Size()), link)
			}
			if err := tw.Flush(); err != nil {
				return exit(ExitGeneralError, err)
			}
			fmt.Fprintf(c.stdout, "[swot] %d granules\n", len(granules))
			return nil
		},
	}

	c.addQueryFlags(cmd)
	return cmd
}
